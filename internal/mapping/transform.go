package mapping

import (
	"fmt"
	"sort"
)

// TransformFunc is a reader function callable from mapping expressions.
// Positional arguments are the evaluated argument expressions (nil when
// absent), kwargs the evaluated keyword arguments.
type TransformFunc func(args []any, kwargs map[string]any) (any, error)

// Transform is a registered transform.
type Transform struct {
	Name        string
	Description string
	Func        TransformFunc
}

// TransformRegistry holds the transforms of one reader and provides lookup.
// It is filled once when the reader is constructed and only read afterwards.
type TransformRegistry struct {
	transforms map[string]*Transform
}

// NewTransformRegistry creates a new empty transform registry.
func NewTransformRegistry() *TransformRegistry {
	return &TransformRegistry{
		transforms: make(map[string]*Transform),
	}
}

// Register adds a transform. Names must be unique and must not shadow the
// built-in functions.
func (r *TransformRegistry) Register(name, description string, fn TransformFunc) error {
	switch {
	case name == "" || !isIdent(name):
		return fmt.Errorf("invalid transform name %q", name)
	case name == BuiltinLength:
		return fmt.Errorf("transform %q shadows a built-in", name)
	case fn == nil:
		return fmt.Errorf("transform %q: nil function", name)
	}

	if _, dup := r.transforms[name]; dup {
		return fmt.Errorf("duplicate transform %q", name)
	}

	r.transforms[name] = &Transform{Name: name, Description: description, Func: fn}

	return nil
}

// MustRegister is like Register but panics on error.
func (r *TransformRegistry) MustRegister(name, description string, fn TransformFunc) {
	if err := r.Register(name, description, fn); err != nil {
		panic(err)
	}
}

// Get returns a transform by name, or nil if not found.
func (r *TransformRegistry) Get(name string) *Transform {
	return r.transforms[name]
}

// Has returns true if a transform with the given name exists.
func (r *TransformRegistry) Has(name string) bool {
	_, exists := r.transforms[name]
	return exists
}

// Names returns all transform names sorted.
func (r *TransformRegistry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// All returns all transforms sorted by name.
func (r *TransformRegistry) All() []*Transform {
	names := r.Names()

	result := make([]*Transform, len(names))
	for i, name := range names {
		result[i] = r.transforms[name]
	}

	return result
}

// Arg returns the i-th positional argument, or the keyword argument name when
// there are fewer positional arguments.
func Arg(args []any, kwargs map[string]any, i int, name string) any {
	if i < len(args) {
		return args[i]
	}

	return kwargs[name]
}

// StringsArg returns a keyword argument holding a list of strings.
func StringsArg(kwargs map[string]any, name string) []string {
	switch v := kwargs[name].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	}

	list, _ := AsList(kwargs[name])

	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}

	return out
}
