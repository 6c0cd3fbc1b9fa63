// Package numeric holds the array helpers shared by the readers: reshaping,
// transposing, column loading and lattice products. Matrices are gonum
// dense matrices; values cross package boundaries as nested float slices.
package numeric

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"gonum.org/v1/gonum/mat"

	"simulation-parsers/internal/grammar"
)

// ErrShape is returned when data does not fit the requested shape.
var ErrShape = errors.New("shape mismatch")

// Dense builds a matrix from rows of equal length.
func Dense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrShape)
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)

	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(r), cols)
		}

		data = append(data, r...)
	}

	return mat.NewDense(len(rows), cols, data), nil
}

// Rows returns the rows of m as nested slices.
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)

	for i := range out {
		out[i] = make([]float64, c)
		for j := range c {
			out[i][j] = m.At(i, j)
		}
	}

	return out
}

// Transpose swaps rows and columns.
func Transpose(rows [][]float64) ([][]float64, error) {
	m, err := Dense(rows)
	if err != nil {
		return nil, err
	}

	return Rows(m.T()), nil
}

// Reshape splits flat into rows of cols values.
func Reshape(flat []float64, rows, cols int) ([][]float64, error) {
	if rows*cols != len(flat) || rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: cannot reshape %d values into (%d, %d)", ErrShape, len(flat), rows, cols)
	}

	return Rows(mat.NewDense(rows, cols, flat)), nil
}

// Reshape3 splits flat into an (a, b, c) array.
func Reshape3(flat []float64, a, b, c int) ([][][]float64, error) {
	if a*b*c != len(flat) || a <= 0 {
		return nil, fmt.Errorf("%w: cannot reshape %d values into (%d, %d, %d)", ErrShape, len(flat), a, b, c)
	}

	out := make([][][]float64, a)

	for i := range out {
		block, err := Reshape(flat[i*b*c:(i+1)*b*c], b, c)
		if err != nil {
			return nil, err
		}

		out[i] = block
	}

	return out, nil
}

// Flatten returns every number of a nested numeric value in row-major order.
// Strings are parsed, Fortran exponents included.
func Flatten(v any) ([]float64, error) {
	var out []float64

	var walk func(v any) error

	walk = func(v any) error {
		switch x := v.(type) {
		case nil:
			return nil
		case float64:
			out = append(out, x)
			return nil
		case []float64:
			out = append(out, x...)
			return nil
		case string:
			vals, err := grammar.ParseFloats(x)
			out = append(out, vals...)

			return err
		}

		rv := reflect.ValueOf(v)

		switch {
		case rv.CanInt():
			out = append(out, float64(rv.Int()))
		case rv.CanFloat():
			out = append(out, rv.Float())
		case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
			for i := range rv.Len() {
				if err := walk(rv.Index(i).Interface()); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%T is not numeric", v)
		}

		return nil
	}

	if err := walk(v); err != nil {
		return nil, err
	}

	return out, nil
}

// Matrix converts a nested numeric value ([][]float64, []any of []any, ...)
// into rows.
func Matrix(v any) ([][]float64, error) {
	if rows, ok := v.([][]float64); ok {
		return rows, nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: %T is not a sequence", ErrShape, v)
	}

	out := make([][]float64, rv.Len())

	for i := range out {
		row, err := Flatten(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}

		out[i] = row
	}

	if _, err := Dense(out); err != nil {
		return nil, err
	}

	return out, nil
}

// LoadColumns reads whitespace separated numeric columns. Empty lines and
// lines starting with # or ! are skipped.
func LoadColumns(r io.Reader) (*mat.Dense, error) {
	var rows [][]float64

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "!") {
			continue
		}

		vals, err := grammar.ParseFloats(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rows = append(rows, vals)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return Dense(rows)
}

// Column returns column j of m.
func Column(m *mat.Dense, j int) []float64 {
	return mat.Col(nil, j, m)
}

// Columns returns columns from (inclusive) to the last one, each as a slice.
func Columns(m *mat.Dense, from int) [][]float64 {
	_, c := m.Dims()
	if from >= c {
		return nil
	}

	out := make([][]float64, 0, c-from)
	for j := from; j < c; j++ {
		out = append(out, Column(m, j))
	}

	return out
}

// Cartesian converts fractional coordinates (n x 3) into cartesian ones with
// the lattice vectors given as rows (3 x 3).
func Cartesian(lattice, fractional [][]float64) ([][]float64, error) {
	l, err := Dense(lattice)
	if err != nil {
		return nil, fmt.Errorf("lattice: %w", err)
	}

	f, err := Dense(fractional)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	if _, lc := l.Dims(); lc != 3 {
		return nil, fmt.Errorf("%w: lattice vectors have %d components", ErrShape, lc)
	}

	lr, _ := l.Dims()
	if _, fc := f.Dims(); fc != lr {
		return nil, fmt.Errorf("%w: %d fractional components for %d lattice vectors", ErrShape, fc, lr)
	}

	var out mat.Dense
	out.Mul(f, l)

	return Rows(&out), nil
}

// Scale multiplies every row element by factor, returning a new slice.
func Scale(rows [][]float64, factor float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, len(r))
		for j, v := range r {
			out[i][j] = v * factor
		}
	}

	return out
}
