package parsers

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/readers"
	"simulation-parsers/internal/readers/exciting"
	"simulation-parsers/internal/readers/fhiaims"
	"simulation-parsers/internal/readers/vasp"
)

func TestLookup(t *testing.T) {
	c, err := Lookup("vasp")
	require.NoError(t, err)
	assert.Equal(t, vasp.Name, c.Name)

	c, err = Lookup("FHI-AIMS")
	require.NoError(t, err)
	assert.Equal(t, fhiaims.Name, c.Name)

	_, err = Lookup("excitng")
	require.ErrorIs(t, err, ErrUnknownCode)
	assert.Contains(t, err.Error(), `did you mean "exciting"?`)
}

func TestDetect(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/a/INFO.OUT":    "=====\n| EXCITING NITROGEN-14 started   =\n",
		"/b/aims.out":    "\n   Invoking FHI-aims ...\n  FHI-aims version      : 210513\n",
		"/c/vasprun.xml": "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<modeling>\n</modeling>\n",
		"/d/OUTCAR":      " vasp.6.3.0 18Jan22 (build Feb 02 2022 16:30:00) complex\n",
		"/e/INFO.OUT":    "some other program\n",
		"/f/notes.xml":   "<?xml version=\"1.0\"?>\n<modeling>\n</modeling>\n",
	}

	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	tests := []struct {
		path string
		want string
	}{
		{"/a/INFO.OUT", exciting.Name},
		{"/b/aims.out", fhiaims.Name},
		{"/c/vasprun.xml", vasp.Name},
		{"/d/OUTCAR", vasp.Name},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, err := Detect(fs, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name)
		})
	}

	for _, path := range []string{"/e/INFO.OUT", "/f/notes.xml"} {
		_, err := Detect(fs, path)
		assert.ErrorIs(t, err, ErrNotDetected, path)
	}

	_, err := Detect(fs, "/missing")
	assert.Error(t, err)
}

func TestCodes_OwnRulesValid(t *testing.T) {
	for _, c := range Codes() {
		t.Run(c.Name, func(t *testing.T) {
			diags, err := c.Check(c.Rules())
			require.NoError(t, err)
			assert.False(t, diags.HasErrors(), diags.All())

			p, err := c.New(readersOptions())
			require.NoError(t, err)
			assert.Equal(t, c.Name, p.RuleSet().Program)
		})
	}
}

func TestCheck_UnknownTransform(t *testing.T) {
	c, err := Lookup(vasp.Name)
	require.NoError(t, err)

	diags, err := c.Check([]byte("program: VASP\ntags:\n  xml:\n    Outputs.total_force: get_force(.@)\n"))
	require.NoError(t, err)
	assert.True(t, diags.HasErrors())
}

func readersOptions() readers.Options {
	return readers.Options{Fs: afero.NewMemMapFs()}
}
