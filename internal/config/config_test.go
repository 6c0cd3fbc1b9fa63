package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/discover"
	"simulation-parsers/internal/readers"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, Config{
		SearchDepth:   discover.DefaultMaxDirs,
		LogLevel:      "warning",
		LogFormat:     "text",
		SpinTolerance: readers.DefaultSpinTolerance,
	}, cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simparse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_depth: 3\nlog_level: debug\nspin_tolerance: 0.2\n"), 0o644))

	t.Setenv("SIMPARSE_STRICT", "true")
	t.Setenv("SIMPARSE_LOG_FORMAT", "json")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.SearchDepth)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.InDelta(t, 0.2, cfg.SpinTolerance, 1e-12)

	opts := cfg.ReaderOptions()
	assert.Equal(t, 3, opts.SearchDepth)
	assert.True(t, opts.Strict)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("SIMPARSE_SEARCH_DEPTH", "-1")

	_, err := Load(New(), "")
	assert.Error(t, err)

	_, err = Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
