package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned when a unit expression cannot be resolved.
var ErrUnknownUnit = errors.New("unknown unit")

// Common unit names used by the readers.
const (
	Hartree        = "hartree"
	ElectronVolt   = "eV"
	Bohr           = "bohr"
	Angstrom       = "angstrom"
	InverseBohr    = "1/bohr"
	InverseHartree = "1/hartree"
	Second         = "s"
	Charge         = "elementary_charge"
	HartreePerBohr = "hartree/bohr"
	EVPerAngstrom  = "eV/angstrom"
)

type dimension struct {
	name   string
	factor float64 // to SI
}

// base units: factors to SI.
var base = map[string]dimension{
	"hartree":           {"energy", 4.3597447222071e-18},
	"ha":                {"energy", 4.3597447222071e-18},
	"ev":                {"energy", 1.602176634e-19},
	"joule":             {"energy", 1},
	"j":                 {"energy", 1},
	"rydberg":           {"energy", 2.1798723611035e-18},
	"bohr":              {"length", 5.29177210903e-11},
	"angstrom":          {"length", 1e-10},
	"ang":               {"length", 1e-10},
	"meter":             {"length", 1},
	"m":                 {"length", 1},
	"nm":                {"length", 1e-9},
	"s":                 {"time", 1},
	"second":            {"time", 1},
	"elementary_charge": {"charge", 1.602176634e-19},
	"e":                 {"charge", 1.602176634e-19},
	"electron_mass":     {"mass", 9.1093837015e-31},
}

// Factor returns the multiplicative factor converting from one unit expression
// to another. Expressions are products and quotients of base units, e.g.
// "eV/angstrom" or "1/hartree".
func Factor(from, to string) (float64, error) {
	fd, ff, err := resolve(from)
	if err != nil {
		return 0, err
	}

	td, tf, err := resolve(to)
	if err != nil {
		return 0, err
	}

	if fd != td {
		return 0, fmt.Errorf("cannot convert %q to %q: dimension %s vs %s", from, to, fd, td)
	}

	return ff / tf, nil
}

// Known reports whether the unit expression can be resolved.
func Known(unit string) bool {
	_, _, err := resolve(unit)
	return err == nil
}

// resolve reduces a unit expression to a dimension signature and an SI factor.
func resolve(expr string) (string, float64, error) {
	expr = normalize(expr)
	if expr == "" || expr == "1" {
		return "", 1, nil
	}

	dims := map[string]int{}
	factor := 1.0

	num, den, _ := strings.Cut(expr, "/")

	apply := func(part string, sign int) error {
		for _, tok := range strings.Split(part, "*") {
			if tok == "" || tok == "1" {
				continue
			}

			power := 1

			if name, p, ok := strings.Cut(tok, "^"); ok {
				tok = name

				if _, err := fmt.Sscanf(p, "%d", &power); err != nil {
					return fmt.Errorf("%w: bad exponent in %q", ErrUnknownUnit, expr)
				}
			}

			d, ok := base[strings.ToLower(tok)]
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownUnit, tok)
			}

			dims[d.name] += sign * power
			for range power {
				if sign > 0 {
					factor *= d.factor
				} else {
					factor /= d.factor
				}
			}
		}

		return nil
	}

	if err := apply(num, 1); err != nil {
		return "", 0, err
	}

	if den != "" {
		if err := apply(strings.Trim(den, "()"), -1); err != nil {
			return "", 0, err
		}
	}

	return signature(dims), factor, nil
}

func signature(dims map[string]int) string {
	names := []string{"charge", "energy", "length", "mass", "time"}

	var parts []string

	for _, n := range names {
		if p := dims[n]; p != 0 {
			parts = append(parts, fmt.Sprintf("%s^%d", n, p))
		}
	}

	return strings.Join(parts, "*")
}
