// Package units provides the opaque physical quantity value carried through
// grammars, transforms and the field mapper.
//
// A Quantity is a magnitude (a number, a []float64, a [][]float64, ...) tagged
// with a unit expression such as "hartree", "bohr" or "eV/angstrom". The only
// arithmetic performed is multiplication by a scalar conversion factor.
package units

import (
	"fmt"
	"strings"
)

// Quantity is a magnitude tagged with a unit.
type Quantity struct {
	Magnitude any    `json:"magnitude" yaml:"magnitude"`
	Unit      string `json:"unit" yaml:"unit"`
}

// New tags magnitude with unit.
func New(magnitude any, unit string) Quantity {
	return Quantity{Magnitude: magnitude, Unit: unit}
}

// String returns e.g. "-10.5 hartree".
func (q Quantity) String() string {
	if q.Unit == "" {
		return fmt.Sprint(q.Magnitude)
	}

	return fmt.Sprintf("%v %s", q.Magnitude, q.Unit)
}

// Float returns the magnitude as float64 if it is a scalar number.
func (q Quantity) Float() (float64, bool) {
	return toFloat(q.Magnitude)
}

// Scale multiplies every number in the magnitude by factor.
// Non-numeric magnitudes are returned unchanged.
func (q Quantity) Scale(factor float64) Quantity {
	return Quantity{Magnitude: scale(q.Magnitude, factor), Unit: q.Unit}
}

// To converts q into the target unit. Both units must be known and of the same
// dimension.
func (q Quantity) To(unit string) (Quantity, error) {
	if normalize(q.Unit) == normalize(unit) {
		return Quantity{Magnitude: q.Magnitude, Unit: unit}, nil
	}

	factor, err := Factor(q.Unit, unit)
	if err != nil {
		return Quantity{}, err
	}

	out := q.Scale(factor)
	out.Unit = unit

	return out, nil
}

func scale(v any, factor float64) any {
	switch m := v.(type) {
	case float64:
		return m * factor
	case int:
		return float64(m) * factor
	case []float64:
		out := make([]float64, len(m))
		for i := range m {
			out[i] = m[i] * factor
		}

		return out
	case [][]float64:
		out := make([][]float64, len(m))
		for i := range m {
			out[i] = scale(m[i], factor).([]float64)
		}

		return out
	case [][][]float64:
		out := make([][][]float64, len(m))
		for i := range m {
			out[i] = scale(m[i], factor).([][]float64)
		}

		return out
	case []any:
		out := make([]any, len(m))
		for i := range m {
			out[i] = scale(m[i], factor)
		}

		return out
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch m := v.(type) {
	case float64:
		return m, true
	case float32:
		return float64(m), true
	case int:
		return float64(m), true
	case int64:
		return float64(m), true
	default:
		return 0, false
	}
}

func normalize(unit string) string {
	return strings.ReplaceAll(strings.TrimSpace(unit), " ", "")
}
