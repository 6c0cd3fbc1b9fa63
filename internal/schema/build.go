package schema

import (
	"fmt"
	"reflect"
	"strings"

	"simulation-parsers/internal/units"
)

var quantityType = reflect.TypeOf(units.Quantity{})

// Build walks the struct types of roots (values or pointers) and returns the
// section graph. Only fields tagged `archive:"name"` are declared.
func Build(roots ...any) (*Graph, error) {
	g := &Graph{Sections: make(map[string]*Section)}

	for _, r := range roots {
		t := reflect.TypeOf(r)
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}

		if t == nil || t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("schema: root %T is not a struct", r)
		}

		s, err := g.section(t)
		if err != nil {
			return nil, err
		}

		g.Roots = append(g.Roots, s)
	}

	return g, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(roots ...any) *Graph {
	g, err := Build(roots...)
	if err != nil {
		panic(err)
	}

	return g
}

func (g *Graph) section(t reflect.Type) (*Section, error) {
	if s, ok := g.Sections[t.Name()]; ok {
		if s.Type != t {
			return nil, fmt.Errorf("schema: section name %q used by %s and %s", t.Name(), s.Type, t)
		}

		return s, nil
	}

	if t.Name() == "" {
		return nil, fmt.Errorf("schema: anonymous struct %s cannot be a section", t)
	}

	s := &Section{Name: t.Name(), Type: t, index: make(map[string]*Field)}
	// registered before recursing so cyclic definitions terminate
	g.Sections[s.Name] = s

	for i := range t.NumField() {
		sf := t.Field(i)

		name, _, _ := strings.Cut(sf.Tag.Get(TagKey), ",")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}

		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("schema: %s: duplicate field %q", s.Name, name)
		}

		f := &Field{Name: name, GoName: sf.Name, Type: sf.Type, Index: sf.Index, Parent: s}

		if err := g.classify(f); err != nil {
			return nil, err
		}

		s.Fields = append(s.Fields, f)
		s.index[name] = f
	}

	return s, nil
}

func (g *Graph) classify(f *Field) error {
	t := f.Type

	if t == quantityType || (t.Kind() == reflect.Pointer && t.Elem() == quantityType) {
		f.Kind = FieldKindQuantity
		f.Unit = true

		return nil
	}

	switch {
	case isStruct(t):
		sub, err := g.section(deref(t))
		if err != nil {
			return err
		}

		f.Kind = FieldKindSection
		f.Section = sub
	case t.Kind() == reflect.Slice && isStruct(t.Elem()) && deref(t.Elem()) != quantityType:
		sub, err := g.section(deref(t.Elem()))
		if err != nil {
			return err
		}

		f.Kind = FieldKindRepeatedSection
		f.Section = sub
	case t.Kind() == reflect.Func, t.Kind() == reflect.Chan, t.Kind() == reflect.UnsafePointer:
		return fmt.Errorf("schema: %s: unsupported type %s", f.Path(), t)
	default:
		f.Kind = FieldKindQuantity
	}

	return nil
}

func isStruct(t reflect.Type) bool {
	return deref(t).Kind() == reflect.Struct
}

func deref(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}

	return t
}
