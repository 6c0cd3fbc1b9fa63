package grammar

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/units"
)

func TestEvaluate_AbsentOnNoMatch(t *testing.T) {
	g := MustNew(
		NewQuantity("energy_total", `Total energy\s*:\s*(\S+)`, WithDType(DTypeFloat)),
		NewQuantity("iterations", `iteration\s+(\d+)`, Repeats(), WithDType(DTypeInt)),
		NewQuantity("block", `(BEGIN[\s\S]+?END)`, WithSub(MustNew(
			NewQuantity("x", `x=(\d+)`, WithDType(DTypeInt)),
		))),
	)

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"unrelated", "nothing to see here\n"},
		{"near miss", "Total energy is unknown\niterations: none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Evaluate(g, tt.text)
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Empty(t, rec)
		})
	}
}

func TestEvaluate_RepeatsPreservesOrder(t *testing.T) {
	g := MustNew(
		NewQuantity("iteration", `iteration\s+(\d+)`, Repeats(), WithDType(DTypeInt)),
	)

	rec, err := Evaluate(g, "iteration 3\niteration 1\nother\niteration 2\n")
	require.NoError(t, err)
	assert.Equal(t, []any{3, 1, 2}, rec["iteration"])
}

func TestEvaluate_FirstMatchWithoutRepeats(t *testing.T) {
	g := MustNew(
		NewQuantity("energy", `Total energy\s*:\s*(\S+)`, WithDType(DTypeFloat)),
	)

	rec, err := Evaluate(g, "Total energy : -1.0\nTotal energy : -2.0\n")
	require.NoError(t, err)
	assert.InDelta(t, -1.0, rec["energy"], 1e-12)
}

func TestEvaluate_RoundTrip(t *testing.T) {
	want := map[string]any{
		"version":  "2.1.3",
		"n_states": 14,
		"gap":      0.12345,
		"spin":     true,
		"lattice":  []float64{1.5, 0, -2.25},
		"species":  []string{"Si", "O"},
	}

	text := fmt.Sprintf(
		"Version : %s\nNumber of states : %d\nGap : %g\nSpin polarised : %s\nLattice : %s\nSpecies : %s\n",
		want["version"], want["n_states"], want["gap"], ".true.", "1.5 0.0 -2.25", "Si O",
	)

	g := MustNew(
		NewQuantity("version", `Version\s*:\s*(\S+)`),
		NewQuantity("n_states", `Number of states\s*:\s*(\d+)`, WithDType(DTypeInt)),
		NewQuantity("gap", `Gap\s*:\s*(\S+)`, WithDType(DTypeFloat)),
		NewQuantity("spin", `Spin polarised\s*:\s*(\S+)`, WithDType(DTypeBool)),
		NewQuantity("lattice", `Lattice\s*:\s*(.+)`, WithDType(DTypeFloats)),
		NewQuantity("species", `Species\s*:\s*(.+)`, WithDType(DTypeStrings)),
	)

	rec, err := Evaluate(g, text)
	require.NoError(t, err)
	assert.Equal(t, want, map[string]any(rec))
}

func TestEvaluate_Unit(t *testing.T) {
	g := MustNew(
		NewQuantity("energy_total", `Total energy\s*:\s*(\S+)`, WithDType(DTypeFloat), WithUnit(units.Hartree)),
		NewQuantity("forces", `Forces\s*:\s*(.+)`, WithTransform(FloatBlock), WithUnit(units.HartreePerBohr)),
	)

	rec, err := Evaluate(g, "Total energy : -10.5\nForces : 0.1 0.2 0.3\n")
	require.NoError(t, err)
	assert.Equal(t, units.New(-10.5, units.Hartree), rec["energy_total"])
	assert.Equal(t, units.New([]float64{0.1, 0.2, 0.3}, units.HartreePerBohr), rec["forces"])
}

func TestEvaluate_MultipleGroups(t *testing.T) {
	g := MustNew(
		NewQuantity("kpt", `k\s+(\S+)\s+(\S+)\s+(\S+)`, Repeats(), WithDType(DTypeFloat)),
		NewQuantity("pair", `pair (\w+) (\w+)`),
	)

	rec, err := Evaluate(g, "k 0 0 0\nk 0.5 0 0.25\npair a b\n")
	require.NoError(t, err)
	assert.Equal(t, []any{[]float64{0, 0, 0}, []float64{0.5, 0, 0.25}}, rec["kpt"])
	assert.Equal(t, []string{"a", "b"}, rec["pair"])
}

func TestEvaluate_OptionalGroupsKeepPosition(t *testing.T) {
	g := MustNew(
		NewQuantity("pair", `<(a)?(b)>`, Repeats()),
		NewQuantity("counts", `n=(\d+)?/(\d+)`, WithDType(DTypeInt)),
		NewQuantity("joined", `j=(x)?(y)`, WithTransform(func(text string) (any, error) { return "[" + text + "]", nil })),
	)

	rec, err := Evaluate(g, "<b> <ab> n=/4 j=y")
	require.NoError(t, err)
	assert.Equal(t, []any{[]string{"", "b"}, []string{"a", "b"}}, rec["pair"])
	assert.Equal(t, "[y]", rec["joined"])

	_, ok := rec["counts"]
	assert.False(t, ok, "a missing integer group is malformed, not shifted")
}

func TestEvaluate_SubGrammar(t *testing.T) {
	iteration := MustNew(
		NewQuantity("number", `SCF iteration number\s*:\s*(\d+)`, WithDType(DTypeInt)),
		NewQuantity("energy_total", `Total energy\s*:\s*(\S+)`, WithDType(DTypeFloat), WithUnit(units.Hartree)),
	)
	g := MustNew(
		NewQuantity("scf_iteration", `(SCF iteration number\s*:\s*\d+[^\n]*\n(?:[^S\n][^\n]*\n?)*)`,
			Repeats(), WithSub(iteration)),
	)

	text := "SCF iteration number :    1\n Total energy : -10.1\n" +
		"SCF iteration number :    2\n Total energy : -10.5\n"

	rec, err := Evaluate(g, text)
	require.NoError(t, err)

	want := []any{
		Record{"number": 1, "energy_total": units.New(-10.1, units.Hartree)},
		Record{"number": 2, "energy_total": units.New(-10.5, units.Hartree)},
	}
	assert.Equal(t, want, rec["scf_iteration"])
}

func TestEvaluate_PolicySkip(t *testing.T) {
	logger, hook := test.NewNullLogger()

	g := MustNew(
		NewQuantity("energy", `Total energy\s*:\s*(\S+)`, WithDType(DTypeFloat)),
		NewQuantity("n_atoms", `atoms\s*:\s*(\d+)`, WithDType(DTypeInt)),
	)

	e := &Evaluator{Policy: PolicySkip, Logger: logger}
	rec, err := e.Evaluate(g, "Total energy : ***\natoms : 2\n")

	require.NoError(t, err)
	assert.NotContains(t, rec, "energy")
	assert.Equal(t, 2, rec["n_atoms"])

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "energy", hook.LastEntry().Data["quantity"])
}

func TestEvaluate_PolicyFail(t *testing.T) {
	inner := MustNew(
		NewQuantity("gap", `gap\s*:\s*(\S+)`, WithDType(DTypeFloat)),
	)
	g := MustNew(
		NewQuantity("energy", `Total energy\s*:\s*(\S+)`, WithDType(DTypeFloat)),
		NewQuantity("final", `(FINAL[\s\S]*)`, WithSub(inner)),
		NewQuantity("n_atoms", `atoms\s*:\s*(\d+)`, WithDType(DTypeInt)),
	)

	e := &Evaluator{Policy: PolicyFail}
	rec, err := e.Evaluate(g, "Total energy : NaNx\natoms : 2\nFINAL\ngap : ?\n")

	require.Error(t, err)
	assert.Equal(t, 2, rec["n_atoms"])
	assert.Equal(t, Record{}, rec["final"])

	var qerr *QuantityError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "energy", qerr.Path)
	assert.Contains(t, err.Error(), "final.gap")
}

func TestEvaluate_TransformError(t *testing.T) {
	boom := errors.New("boom")
	g := MustNew(
		NewQuantity("x", `x=(\S+)`, WithTransform(func(string) (any, error) { return nil, boom })),
	)

	rec, err := (&Evaluator{Policy: PolicyFail}).Evaluate(g, "x=1")
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, rec, "x")
}

func TestEvaluate_NilGrammar(t *testing.T) {
	rec, err := Evaluate(nil, "text")
	require.NoError(t, err)
	assert.Empty(t, rec)
}
