package orchestrate

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapper"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/schema"
)

const runRules = `
tags:
  main:
    Simulation.program: "@"
    Program.name: name
    Simulation.outputs: "@"
    Outputs.total_energy: "@"
    TotalEnergy.value: {expr: energy, unit: hartree}
  aux:
    Simulation.outputs: "@"
    Outputs.n_points: n
  gw:
    Simulation.outputs: "@"
    Outputs.total_energy: "@"
    TotalEnergy.value: {expr: gw_energy, unit: hartree}
`

// readKV parses "key=value" lines; numbers become float64.
func readKV(data []byte) (grammar.Record, error) {
	rec := grammar.Record{}

	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", line)
		}

		if f, err := grammar.ParseFloat(v); err == nil {
			rec[k] = f
		} else {
			rec[k] = v
		}
	}

	return rec, nil
}

func newTestRun(t *testing.T, files map[string]string) (*Run, *test.Hook) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	rs, err := mapping.Load([]byte(runRules))
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := mapper.DefaultConfig()
	cfg.Logger = logger

	m := mapper.New(schema.MustBuild(&archive.Simulation{}), rs, nil, cfg)

	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	return NewRun("/calc/main.out", m, WithFs(fs), WithLogger(logger), WithIDFunc(ids)), hook
}

func TestRun_SinglePoint(t *testing.T) {
	r, _ := newTestRun(t, map[string]string{
		"/calc/main.out": "name=exciting\nenergy=-10.5",
		"/calc/aux.dat":  "n=4",
	})

	assert.Equal(t, StateIdle, r.State())
	require.NoError(t, r.ParseMain("main", readKV))
	assert.Equal(t, StateMainParsed, r.State())

	require.NoError(t, r.ParseAux("aux", "/calc/aux.dat", readKV, mapper.ModeMergeLast))
	assert.Equal(t, StateAuxParsed, r.State())
	assert.Equal(t, []string{"aux", "main"}, r.Sources().Tags())

	res, err := r.Finish()
	require.NoError(t, err)
	assert.Equal(t, StateDone, r.State())

	require.Len(t, res.Entries, 1)
	main := res.Main()
	assert.Equal(t, "id-1", main.ID)
	assert.Equal(t, "exciting", main.Data.Program.Name)
	require.Len(t, main.Data.Outputs, 1)
	assert.Equal(t, 4, main.Data.Outputs[0].NPoints)
	assert.Equal(t, -10.5, main.Data.Outputs[0].TotalEnergy.Value.Magnitude)
	assert.Equal(t, archive.NewSinglePoint("id-1"), main.Workflow)
	assert.True(t, res.Diagnostics.IsValid())
}

func TestRun_FatalInput(t *testing.T) {
	r, _ := newTestRun(t, nil)

	err := r.ParseMain("main", readKV)

	var fatal *FatalInputError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "/calc/main.out", fatal.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, StateIdle, r.State())

	r, _ = newTestRun(t, map[string]string{"/calc/main.out": "garbage"})
	err = r.ParseMain("main", readKV)
	require.ErrorAs(t, err, &fatal)
	assert.Contains(t, err.Error(), "malformed line")
}

func TestRun_AuxiliaryFiles(t *testing.T) {
	r, hook := newTestRun(t, map[string]string{
		"/calc/main.out": "name=exciting\nenergy=-10.5",
		"/calc/bad.dat":  "garbage",
	})
	require.NoError(t, r.ParseMain("main", readKV))

	require.NoError(t, r.ParseAux("aux", "", readKV, mapper.ModeMergeLast))
	require.NoError(t, r.ParseAux("aux", "/calc/missing.dat", readKV, mapper.ModeMergeLast))
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)

	require.NoError(t, r.ParseAux("aux", "/calc/bad.dat", readKV, mapper.ModeMergeLast))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	rec, ok := r.Sources().Get("aux")
	require.True(t, ok)
	assert.Empty(t, rec)

	res, err := r.Finish()
	require.NoError(t, err)
	assert.Zero(t, res.Main().Data.Outputs[0].NPoints)
	assert.Len(t, res.Diagnostics.Warnings, 1)
}

func TestRun_Children(t *testing.T) {
	r, _ := newTestRun(t, map[string]string{"/calc/main.out": "name=FHI-aims\nenergy=-1.0\ngw_energy=-1.2"})
	require.NoError(t, r.ParseMain("main", readKV))

	src, _ := r.Sources().Get("main")

	gw, err := r.SpawnChild(EntryGW, &archive.Simulation{Program: &archive.Program{Name: "FHI-aims"}}, "gw", src)
	require.NoError(t, err)
	assert.Equal(t, StateChildSpawned, r.State())

	wf, err := r.SpawnWorkflow(EntryGWWorkflow, archive.NewDFTGW(r.result.Main().ID, gw.ID))
	require.NoError(t, err)

	res, err := r.Finish()
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.Nil(t, res.Main().Workflow, "runs with children get no single point workflow")
	assert.Same(t, gw, res.Entry(EntryGW))
	assert.Same(t, wf, res.Entry(EntryGWWorkflow))
	assert.Nil(t, res.Entry("none"))

	require.Len(t, gw.Data.Outputs, 1)
	assert.Equal(t, -1.2, gw.Data.Outputs[0].TotalEnergy.Value.Magnitude)
	assert.Equal(t, "FHI-aims", gw.Data.Program.Name)

	assert.Equal(t, archive.WorkflowDFTGW, wf.Workflow.Name)
	assert.Equal(t, "id-1", wf.Workflow.Tasks[0].EntryID)
	assert.Equal(t, "id-2", wf.Workflow.Tasks[1].EntryID)
	assert.Equal(t, "id-3", wf.ID)
}

func TestRun_InvalidTransitions(t *testing.T) {
	r, _ := newTestRun(t, map[string]string{"/calc/main.out": "name=x"})

	tests := []struct {
		name string
		fn   func() error
	}{
		{"aux before main", func() error { return r.ParseAux("aux", "", readKV, mapper.ModeAppend) }},
		{"source before main", func() error { return r.MapSource("aux", nil, mapper.ModeAppend) }},
		{"child before main", func() error { _, err := r.SpawnChild("GW", nil, "gw", nil); return err }},
		{"finish before main", func() error { _, err := r.Finish(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), ErrInvalidTransition)
		})
	}

	require.NoError(t, r.ParseMain("main", readKV))
	assert.ErrorIs(t, r.ParseMain("main", readKV), ErrInvalidTransition, "main file is parsed once")

	_, err := r.SpawnWorkflow("wf", archive.NewSinglePoint("x"))
	require.NoError(t, err)
	assert.ErrorIs(t, r.ParseAux("aux", "", readKV, mapper.ModeAppend), ErrInvalidTransition)

	_, err = r.Finish()
	require.NoError(t, err)

	_, err = r.Finish()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRun_UUIDs(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRun("/x", nil, WithFs(fs))

	e, err := r.SpawnWorkflow("wf", nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Nil(t, e)

	assert.Len(t, r.result.Main().ID, 36)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "child_spawned", StateChildSpawned.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, CanTransition(StateAuxParsed, StateAuxParsed))
	assert.False(t, CanTransition(StateDone, StateIdle))
}

func TestFatalInputError(t *testing.T) {
	inner := errors.New("permission denied")
	err := &FatalInputError{Path: "/a", Err: inner}

	assert.Equal(t, "cannot read main file /a: permission denied", err.Error())
	assert.ErrorIs(t, err, inner)
}
