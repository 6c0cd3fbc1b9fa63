package exciting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/readers"
)

func eval(t *testing.T, src string, root any) any {
	t.Helper()

	expr, err := mapping.ParseExpr(src)
	require.NoError(t, err)

	env := &mapping.Env{Root: root, Transforms: Transforms()}

	v, err := env.Eval(expr, root)
	require.NoError(t, err)

	return v
}

func TestGetXCFunctionals(t *testing.T) {
	got := eval(t, "get_xc_functionals(type=20)", nil)

	assert.Equal(t, []any{
		grammar.Record{"libxc": "GGA_C_PBE"},
		grammar.Record{"libxc": "GGA_X_PBE"},
	}, got)

	assert.Empty(t, eval(t, "get_xc_functionals(type=999)", nil))
	assert.Nil(t, XCFunctionalNames(999))
}

func TestGetInputXCFunctionals(t *testing.T) {
	root := grammar.Record{
		"libxc": grammar.Record{"@exchange": "XC_GGA_X_PBE", "@correlation": "XC_GGA_C_PBE"},
	}

	assert.Equal(t, []any{
		grammar.Record{"libxc": "XC_GGA_C_PBE", "type": "correlation"},
		grammar.Record{"libxc": "XC_GGA_X_PBE", "type": "exchange"},
	}, eval(t, "get_input_xc_functionals(.libxc)", root))

	root = grammar.Record{"@xctype": "LDA_PW"}
	assert.Equal(t, []any{
		grammar.Record{"libxc": "LDA_C_PW"},
		grammar.Record{"libxc": "LDA_X_PZ"},
	}, eval(t, `get_input_xc_functionals(.libxc, xctype=."@xctype")`, root))

	assert.Nil(t, eval(t, `get_input_xc_functionals(.libxc, xctype="unknown")`, root))
}

func TestGetConfigurations(t *testing.T) {
	gs := grammar.Record{"energy_total": -1.0}
	step1 := grammar.Record{"step": 1}
	step2 := grammar.Record{"step": 2}
	opt := grammar.Record{"optimization_step": []any{step1, step2}, "final": grammar.Record{}}

	got := eval(t, "get_configurations(.@)", grammar.Record{
		"groundstate":            gs,
		"hybrids":                grammar.Record{},
		"structure_optimization": opt,
	})

	assert.Equal(t, []any{gs, step1, step2, opt}, got)
}

func TestGetAtoms_SpeciesPositions(t *testing.T) {
	initial := grammar.Record{
		"lattice_vectors": [][]float64{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}},
		"species": []any{
			grammar.Record{
				"symbol":           "Na",
				"positions_format": "lattice",
				"positions":        []any{[]float64{0, 0, 0}},
				"radial_points":    300,
			},
			grammar.Record{
				"symbol":           "Cl",
				"positions_format": "lattice",
				"positions":        []any{[]float64{0.5, 0.5, 0.5}},
			},
		},
	}

	got, err := getAtoms([]any{grammar.Record{}}, map[string]any{"initialization": initial})
	require.NoError(t, err)

	rec := readers.Record(got)
	assert.Equal(t, []any{grammar.Record{"symbol": "Na"}, grammar.Record{"symbol": "Cl"}}, rec["atoms"])
	assert.Equal(t, [][]float64{{0, 0, 0}, {1, 1, 1}}, readers.Magnitude(rec["positions"]))
}

func TestGetAtoms_LatticeWithoutVectors(t *testing.T) {
	source := grammar.Record{"positions": []any{[]float64{0.5, 0, 0}}, "positions_format": "lattice"}

	_, err := getAtoms([]any{source}, nil)
	assert.Error(t, err)
}

func TestGetForces_SingleAtom(t *testing.T) {
	got, err := getForces([]any{grammar.Record{"forces": []float64{0.1, 0, 0}}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, readers.Record(got)["n_points"])
}

func TestGetEigenvalues_SpinMismatch(t *testing.T) {
	source := grammar.Record{"eigenvalues_occupancies": []any{
		grammar.Record{"eigenvalues": [][]float64{{1, 2}}, "occupancies": [][]float64{{2, 0}}},
		grammar.Record{"eigenvalues": [][]float64{{1}, {2}}, "occupancies": [][]float64{{1}, {0}}},
	}}

	_, err := getEigenvalues([]any{source}, nil)
	assert.Error(t, err)
}

func TestGetBandStructures_SpinChannels(t *testing.T) {
	point := func(e float64) grammar.Record { return grammar.Record{"@eval": e} }
	source := grammar.Record{"bandstructure": grammar.Record{"band": []any{
		grammar.Record{"point": []any{point(1), point(2)}},
		grammar.Record{"point": []any{point(3), point(4)}},
	}}}

	got, err := getBandStructures([]any{source}, map[string]any{"n_spin": 2})
	require.NoError(t, err)

	list, ok := got.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, 1, readers.Record(list[1])["spin_channel"])
	assert.Equal(t, [][]float64{{3}, {4}}, readers.Magnitude(readers.Record(list[1])["energies"]))

	_, err = getBandStructures([]any{source}, map[string]any{"n_spin": 3})
	assert.Error(t, err)
}

func TestDOSLabel(t *testing.T) {
	assert.Equal(t, "speciessym=Si atom=1 l=2", eval(t, "dos_label(.@)", grammar.Record{"@speciessym": "Si", "@atom": 1, "@l": 2}))
	assert.Nil(t, eval(t, "dos_label(.@)", grammar.Record{}))
}

func TestGetPartialDOS(t *testing.T) {
	points := []any{grammar.Record{"@e": -0.5, "@dos": 0.1}}
	root := grammar.Record{"dos": grammar.Record{
		"partialdos": []any{
			grammar.Record{
				"@speciessym": "Ga", "@atom": 1, "@type": "partial",
				"diagram": []any{
					grammar.Record{"@l": 0, "@m": 0, "@type": "lm", "point": points},
					grammar.Record{"@l": 1, "@m": -1, "@type": "lm", "point": points},
				},
			},
			grammar.Record{
				"@speciessym": "As", "@atom": 2,
				"diagram": grammar.Record{"@l": 0, "@m": 0, "point": points},
			},
		},
	}}

	got, ok := eval(t, "get_partial_dos(dos.partialdos)", root).([]any)
	require.True(t, ok)
	require.Len(t, got, 3)

	assert.Equal(t, grammar.Record{"@speciessym": "Ga", "@atom": 1, "@l": 0, "@m": 0, "@type": "lm", "point": points}, got[0])
	assert.Equal(t, "speciessym=Ga atom=1 l=1 m=-1", eval(t, "dos_label(.@)", got[1]))
	assert.Equal(t, "speciessym=As atom=2 l=0 m=0", eval(t, "dos_label(.@)", got[2]))

	assert.Nil(t, eval(t, "get_partial_dos(dos.partialdos)", grammar.Record{}))
}
