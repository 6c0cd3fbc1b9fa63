package grammar

import (
	"fmt"
)

// Record is the nested mapping produced by evaluating a grammar. Values are
// scalars, slices ([]any or typed numeric slices), nested Records or
// units.Quantity.
type Record = map[string]any

// Grammar is an ordered set of quantities, unique by name.
type Grammar struct {
	quantities []*Quantity
	index      map[string]int
}

// New builds a grammar from the given quantities.
func New(quantities ...*Quantity) (*Grammar, error) {
	g := &Grammar{index: make(map[string]int, len(quantities))}

	for _, q := range quantities {
		if err := g.add(q); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// MustNew is like New but panics on error. Intended for package-level grammar
// declarations.
func MustNew(quantities ...*Quantity) *Grammar {
	g, err := New(quantities...)
	if err != nil {
		panic(err)
	}

	return g
}

func (g *Grammar) add(q *Quantity) error {
	if q == nil {
		return fmt.Errorf("grammar: nil quantity")
	}

	if _, dup := g.index[q.Name]; dup {
		return fmt.Errorf("grammar: duplicate quantity %q", q.Name)
	}

	g.index[q.Name] = len(g.quantities)
	g.quantities = append(g.quantities, q)

	return nil
}

// Quantities returns the quantities in declaration order.
func (g *Grammar) Quantities() []*Quantity {
	return append([]*Quantity(nil), g.quantities...)
}

// Get returns the quantity with the given name, or nil.
func (g *Grammar) Get(name string) *Quantity {
	i, ok := g.index[name]
	if !ok {
		return nil
	}

	return g.quantities[i]
}

// Len returns the number of quantities.
func (g *Grammar) Len() int {
	return len(g.quantities)
}
