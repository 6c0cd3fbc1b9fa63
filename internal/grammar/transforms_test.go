package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/units"
)

func TestFloatBlock(t *testing.T) {
	v, err := FloatBlock("atom 1 Si : 0.1 0.2 0.3\natom 2 Si : 0.4 0.5 0.6\n")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}, v)

	v, err = FloatBlock("  1.0 2.0 3.0  ")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v)

	_, err = FloatBlock("\n\n")
	assert.Error(t, err)
}

func TestKeyValueFloats(t *testing.T) {
	text := `Energies :
 _______________
 Fermi energy      :   0.2
 | Number of spin channels :   2
`

	v, err := KeyValueFloats("")(text)
	require.NoError(t, err)
	assert.Equal(t, Record{"Fermi energy": 0.2, "Number of spin channels": 2.0}, v)

	v, err = KeyValueFloats(units.Hartree)("sum : -1.5D+00")
	require.NoError(t, err)
	assert.Equal(t, Record{"sum": units.New(-1.5, units.Hartree)}, v)

	_, err = KeyValueFloats("")("bad : x")
	assert.ErrorContains(t, err, "bad")
}

func TestNumericRows(t *testing.T) {
	text := `  |    1: Species Si   0.00000000   0.00000000   0.00000000
  |    2: Species Si   1.35750000   1.35750000   1.35750000
  |       Atom   x [A]   y [A]   z [A]`

	v, err := NumericRows(3)(text)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0, 0}, {1.3575, 1.3575, 1.3575}}, v)

	v, err = NumericRows(0)("|  1  0.1E+01  -2.0\n")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1, -2}}, v)

	_, err = NumericRows(3)("x y z")
	assert.Error(t, err)
}

func TestStripParentheses(t *testing.T) {
	v, err := StripParentheses("0.1E-01  ( 0.1E-05)")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.01, 1e-6}, v)
}

func TestSplitTrim(t *testing.T) {
	v, err := SplitTrim(":")(" a : b :c ")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, v)
}
