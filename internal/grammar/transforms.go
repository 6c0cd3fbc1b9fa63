package grammar

import (
	"fmt"
	"strings"

	"simulation-parsers/internal/units"
)

// FloatBlock reads a block of numeric lines. On each line only the part after
// the last ':' is used, so labelled rows like "atom 1 Si : 0.1 0.2 0.3" work.
// A single line yields []float64, several lines [][]float64.
func FloatBlock(text string) (any, error) {
	var rows [][]float64

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if i := strings.LastIndex(line, ":"); i >= 0 {
			line = line[i+1:]
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		row, err := ParseFloats(line)
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("no numeric rows")
	case 1:
		return rows[0], nil
	default:
		return rows, nil
	}
}

// KeyValueFloats returns a transform reading "key : value" lines into a Record.
// Values are tagged with unit when it is not empty. Lines without a colon and
// heading lines without a value are ignored; a leading "|" of table rows is
// not part of the key.
func KeyValueFloats(unit string) TransformFunc {
	return func(text string) (any, error) {
		out := Record{}

		for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
			key, val, ok := strings.Cut(line, ":")
			if !ok || strings.TrimSpace(val) == "" {
				continue
			}

			key = strings.Trim(key, " \t|")

			f, err := ParseFloat(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			if unit == "" {
				out[key] = f
			} else {
				out[key] = units.New(f, unit)
			}
		}

		return out, nil
	}
}

// StripParentheses parses "1.2E-05 (1.0E-06)" style value/target pairs.
func StripParentheses(text string) (any, error) {
	return ParseFloats(strings.NewReplacer("(", " ", ")", " ").Replace(text))
}

// SplitTrim returns a transform splitting on sep and trimming each part.
func SplitTrim(sep string) TransformFunc {
	return func(text string) (any, error) {
		parts := strings.Split(text, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		return parts, nil
	}
}

// NumericRows returns a transform reading one row per line from the numeric
// tokens of the line; other tokens ("|", "atom", "1:", species labels) are
// dropped. With ncols > 0 only the last ncols numbers of a row are kept and
// lines with fewer numbers are skipped.
func NumericRows(ncols int) TransformFunc {
	return func(text string) (any, error) {
		var rows [][]float64

		for _, line := range strings.Split(text, "\n") {
			var row []float64

			for _, tok := range strings.Fields(line) {
				if f, err := ParseFloat(tok); err == nil {
					row = append(row, f)
				}
			}

			if ncols > 0 {
				if len(row) < ncols {
					continue
				}

				row = row[len(row)-ncols:]
			}

			if len(row) > 0 {
				rows = append(rows, row)
			}
		}

		if len(rows) == 0 {
			return nil, fmt.Errorf("no numeric rows")
		}

		return rows, nil
	}
}
