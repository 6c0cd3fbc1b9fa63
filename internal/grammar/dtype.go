package grammar

//go:generate go tool stringer -type=DType -trimprefix=DType -output=dtype_string.go

// DType selects the coercion applied to captured text when a quantity has no
// transform and no sub-grammar.
type DType int

const (
	DTypeNone    DType = iota // trimmed string, the default
	DTypeString               // trimmed string
	DTypeInt                  // base-10 integer
	DTypeFloat                // float64, Fortran "D" exponents accepted
	DTypeBool                 // true/false, T/F, .true./.false.
	DTypeInts                 // whitespace separated integers
	DTypeFloats               // whitespace separated floats
	DTypeStrings              // whitespace separated words
)

// IsVector reports whether the dtype produces a slice from a single capture.
func (d DType) IsVector() bool {
	return d == DTypeInts || d == DTypeFloats || d == DTypeStrings
}
