package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

func coerce(s string, d DType) (any, error) {
	s = strings.TrimSpace(s)

	switch d {
	case DTypeNone, DTypeString:
		return s, nil
	case DTypeInt:
		return strconv.Atoi(s)
	case DTypeFloat:
		return ParseFloat(s)
	case DTypeBool:
		return parseBool(s)
	case DTypeInts:
		fields := strings.Fields(s)
		out := make([]int, len(fields))

		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	case DTypeFloats:
		return ParseFloats(s)
	case DTypeStrings:
		return strings.Fields(s), nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", d)
	}
}

// coerceGroups converts a multi-group match into a typed slice.
func coerceGroups(groups []string, d DType) (any, error) {
	switch d {
	case DTypeNone, DTypeString:
		out := make([]string, len(groups))
		for i, g := range groups {
			out[i] = strings.TrimSpace(g)
		}

		return out, nil
	case DTypeInt:
		out := make([]int, len(groups))

		for i, g := range groups {
			v, err := strconv.Atoi(strings.TrimSpace(g))
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	case DTypeFloat:
		out := make([]float64, len(groups))

		for i, g := range groups {
			v, err := ParseFloat(g)
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	default:
		out := make([]any, len(groups))

		for i, g := range groups {
			v, err := coerce(g, d)
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	}
}

// ParseFloat parses a float accepting Fortran double exponents (1.0D-03).
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "dD") {
		s = strings.NewReplacer("d", "e", "D", "E").Replace(s)
	}

	return strconv.ParseFloat(s, 64)
}

// ParseFloats parses whitespace separated floats.
func ParseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))

	for i, f := range fields {
		v, err := ParseFloat(f)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.Trim(s, ".")) {
	case "t", "true", "yes", "on":
		return true, nil
	case "f", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
