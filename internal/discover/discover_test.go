package discover

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFS(t *testing.T, files ...string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("x"), 0o644))
	}

	return fs
}

func TestSearch(t *testing.T) {
	fs := memFS(t,
		"/calc/run/INFO.OUT",
		"/calc/run/dos.xml",
		"/calc/run/bands/bandstructure.xml",
		"/calc/run/a/b/c/EIGVAL.OUT",
		"/calc/KS_DOS_total_raw.dat",
		"/calc/run/proj_spin1.dat",
		"/calc/run/proj_spin2.dat",
	)
	require.NoError(t, fs.MkdirAll("/calc/run/dir.xml", 0o755))

	tests := []struct {
		name    string
		pattern string
		opts    Options
		want    []string
	}{
		{"same directory", "dos.xml", Options{Deep: true}, []string{"/calc/run/dos.xml"}},
		{"directories skipped", "*.xml", Options{Deep: true}, []string{"/calc/run/dos.xml"}},
		{"one level down", "bandstructure.xml", Options{Deep: true}, []string{"/calc/run/bands/bandstructure.xml"}},
		{"three levels down", "EIGVAL.OUT", Options{Deep: true}, []string{"/calc/run/a/b/c/EIGVAL.OUT"}},
		{"depth limit", "EIGVAL.OUT", Options{Deep: true, MaxDirs: 3}, []string{}},
		{"one level up", "KS_DOS_total_raw.dat", Options{}, []string{"/calc/KS_DOS_total_raw.dat"}},
		{"not below", "KS_DOS_total_raw.dat", Options{Deep: true, MaxDirs: 2}, []string{}},
		{"filter", "proj_*.dat", Options{Deep: true, Filter: "spin2"}, []string{"/calc/run/proj_spin2.dat"}},
		{"filter without hit keeps all", "proj_*.dat", Options{Deep: true, Filter: "spin3"},
			[]string{"/calc/run/proj_spin1.dat", "/calc/run/proj_spin2.dat"}},
		{"missing", "input.xml", Options{Deep: true, MaxDirs: 4}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Search(fs, tt.pattern, "/calc/run", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_InvalidFilter(t *testing.T) {
	_, err := Search(memFS(t), "*.dat", "/", Options{Filter: "("})
	assert.Error(t, err)
}

func TestFirst(t *testing.T) {
	fs := memFS(t, "/calc/run/proj_spin1.dat", "/calc/run/proj_spin2.dat")

	assert.Equal(t, "/calc/run/proj_spin1.dat", First(fs, "proj_*.dat", "/calc/run", Options{}))
	assert.Empty(t, First(fs, "none", "/calc/run", Options{MaxDirs: 1}))
}
