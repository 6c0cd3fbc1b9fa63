package schema

import (
	"reflect"
	"sort"

	"simulation-parsers/internal/common"
)

// TagKey is the struct tag that declares a mappable field.
const TagKey = "archive"

// FieldKind represents the kind of a section field.
type FieldKind int

const (
	FieldKindUnknown         FieldKind = iota
	FieldKindQuantity                  // scalar, slice or units.Quantity
	FieldKindSection                   // single sub-section (struct or *struct)
	FieldKindRepeatedSection           // repeated sub-section ([]*struct or []struct)
)

// String returns a human-readable representation of the FieldKind.
func (k FieldKind) String() string {
	switch k {
	case FieldKindQuantity:
		return "quantity"
	case FieldKindSection:
		return "section"
	case FieldKindRepeatedSection:
		return "repeated section"
	default:
		return common.UnknownStr
	}
}

// Field describes one declared field of a section.
type Field struct {
	Name    string       // archive name, e.g. "total_energy"
	GoName  string       // Go field name, e.g. "TotalEnergy"
	Kind    FieldKind    // quantity or (repeated) sub-section
	Type    reflect.Type // Go type of the field
	Index   []int        // field index for reflect.Value.FieldByIndex
	Section *Section     // definition of the sub-section, nil for quantities
	Unit    bool         // true when the field holds a units.Quantity
	Parent  *Section     // section that declares the field
}

// IsSection returns true for single and repeated sub-sections.
func (f *Field) IsSection() bool {
	return f.Kind == FieldKindSection || f.Kind == FieldKindRepeatedSection
}

// IsRepeated returns true for repeated sub-sections.
func (f *Field) IsRepeated() bool {
	return f.Kind == FieldKindRepeatedSection
}

// Path returns "Section.field".
func (f *Field) Path() string {
	if f.Parent == nil {
		return f.Name
	}

	return f.Parent.Name + "." + f.Name
}

// Section is the definition of a struct type of the archive.
type Section struct {
	Name   string       // Go type name, e.g. "Outputs"
	Type   reflect.Type // struct type (never a pointer)
	Fields []*Field     // declared fields in struct order
	index  map[string]*Field
}

// Field returns the declared field with the given archive name, or nil.
func (s *Section) Field(name string) *Field {
	return s.index[name]
}

// FieldNames returns the archive names of all declared fields.
func (s *Section) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}

	return names
}

// Graph holds every section reachable from the registered roots.
type Graph struct {
	// Sections maps section name to definition.
	Sections map[string]*Section
	// Roots are the sections passed to Build, in order.
	Roots []*Section
}

// Section returns the section with the given name, or nil.
func (g *Graph) Section(name string) *Section {
	return g.Sections[name]
}

// Names returns all section names sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.Sections))
	for n := range g.Sections {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Of returns the section describing the dynamic type of v (a struct or a
// pointer to one), or nil.
func (g *Graph) Of(v any) *Section {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil {
		return nil
	}

	s := g.Sections[t.Name()]
	if s == nil || s.Type != t {
		return nil
	}

	return s
}
