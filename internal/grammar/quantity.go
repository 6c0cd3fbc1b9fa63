package grammar

import (
	"fmt"
	"regexp"
)

// TransformFunc converts the captured text of a quantity into a typed value.
// It must be a pure function of its input.
type TransformFunc func(text string) (any, error)

// Kind discriminates the two quantity shapes.
type Kind int

const (
	KindLeaf    Kind = iota // regex + transform/dtype
	KindGrammar             // regex + nested grammar
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	if k == KindGrammar {
		return "grammar"
	}

	return "leaf"
}

// Quantity is a single named extraction rule.
type Quantity struct {
	Name      string
	Pattern   *regexp.Regexp
	Repeats   bool
	Sub       *Grammar
	Transform TransformFunc
	Unit      string
	DType     DType
}

// Option configures a Quantity.
type Option func(*Quantity)

// Repeats collects every match instead of the first one.
func Repeats() Option {
	return func(q *Quantity) { q.Repeats = true }
}

// WithSub parses each capture with the nested grammar.
func WithSub(g *Grammar) Option {
	return func(q *Quantity) { q.Sub = g }
}

// WithTransform converts each capture with fn.
func WithTransform(fn TransformFunc) Option {
	return func(q *Quantity) { q.Transform = fn }
}

// WithUnit tags the resulting value with a unit.
func WithUnit(unit string) Option {
	return func(q *Quantity) { q.Unit = unit }
}

// WithDType coerces the capture to the given scalar type.
func WithDType(d DType) Option {
	return func(q *Quantity) { q.DType = d }
}

// NewQuantity builds a quantity from a regex pattern. Grammars are static
// declarations, so an invalid pattern or a pattern without a capture group
// panics.
func NewQuantity(name, pattern string, opts ...Option) *Quantity {
	re := regexp.MustCompile(pattern)
	if re.NumSubexp() < 1 {
		panic(fmt.Sprintf("grammar: quantity %q: pattern has no capture group", name))
	}

	q := &Quantity{Name: name, Pattern: re}
	for _, opt := range opts {
		opt(q)
	}

	if q.Sub != nil && q.Transform != nil {
		panic(fmt.Sprintf("grammar: quantity %q: sub-grammar and transform are exclusive", name))
	}

	return q
}

// Kind reports whether q is a leaf or grammar-valued quantity.
func (q *Quantity) Kind() Kind {
	if q.Sub != nil {
		return KindGrammar
	}

	return KindLeaf
}
