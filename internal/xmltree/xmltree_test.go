package xmltree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/grammar"
)

const vasprun = `<?xml version="1.0" encoding="ISO-8859-1"?>
<modeling>
 <generator>
  <i name="program" type="string">vasp </i>
  <i name="version" type="string">6.3.0  </i>
 </generator>
 <calculation>
  <energy>
   <i name="e_fr_energy">    -10.50000000 </i>
   <i name="e_wo_entrp">    -10.40000000 </i>
  </energy>
  <varray name="forces" >
   <v>       0.10000000      0.00000000     -0.10000000 </v>
   <v>      -0.10000000      0.00000000      0.10000000 </v>
  </varray>
 </calculation>
</modeling>
`

func TestParse_Vasprun(t *testing.T) {
	rec, err := ParseBytes([]byte(vasprun), Options{Convert: true})
	require.NoError(t, err)

	modeling, ok := rec["modeling"].(grammar.Record)
	require.True(t, ok)

	gen := modeling["generator"].(grammar.Record)
	items := gen["i"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, grammar.Record{"@name": "program", "@type": "string", "__value": "vasp"}, items[0])
	assert.Equal(t, "6.3.0", items[1].(grammar.Record)["__value"])

	calc := modeling["calculation"].(grammar.Record)
	energy := calc["energy"].(grammar.Record)["i"].([]any)
	assert.InDelta(t, -10.5, energy[0].(grammar.Record)["__value"], 1e-12)

	forces := calc["varray"].(grammar.Record)
	assert.Equal(t, "forces", forces["@name"])
	assert.Equal(t, []any{
		[]float64{0.1, 0, -0.1},
		[]float64{-0.1, 0, 0.1},
	}, forces["v"])
}

func TestParse_NoConvert(t *testing.T) {
	rec, err := ParseBytes([]byte(`<a n="3"><b> 1 2 </b></a>`), Options{})
	require.NoError(t, err)
	assert.Equal(t, grammar.Record{"a": grammar.Record{"@n": "3", "b": "1 2"}}, rec)
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		text string
		want any
		ok   bool
	}{
		{"4", 4, true},
		{" 4 4 4 ", []int{4, 4, 4}, true},
		{"0 0.5", []float64{0, 0.5}, true},
		{"1.0D-02", 0.01, true},
		{"T", nil, false},
		{"1 two", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := Numbers(tt.text)
			assert.Equal(t, tt.ok, ok)

			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := ParseBytes([]byte(""), Options{})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = ParseBytes([]byte("<a><b></a>"), Options{})
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dos.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<dos><totaldos><diagram nspin="1"/></totaldos></dos>`), 0o600))

	rec, err := ParseFile(path, Options{Convert: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rec["dos"].(grammar.Record)["totaldos"].(grammar.Record)["diagram"].(grammar.Record)["@nspin"])

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.xml"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
