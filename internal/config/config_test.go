package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPinnedDepsMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	deps, err := LoadPinnedDeps(filepath.Join(dir, "does-not-exist.json"))
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestLoadPinnedDepsParsesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pinned_deps.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"foo":"1.2.3"}`), 0o644))

	deps, err := LoadPinnedDeps(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", deps["foo"])
}

func TestConfigHashDeterministic(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	deps := PinnedDeps{"a": "1"}

	h1, err := ConfigHash(cfg, deps)
	require.NoError(t, err)
	h2, err := ConfigHash(cfg, deps)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex-encoded blake2b-256
}

func TestConfigHashChangesWithInput(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	h1, err := ConfigHash(cfg, PinnedDeps{"a": "1"})
	require.NoError(t, err)

	cfg.SaveInterval = 99
	h2, err := ConfigHash(cfg, PinnedDeps{"a": "1"})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestBuildHashDeterministic(t *testing.T) {
	info := map[string]interface{}{"module": "github.com/raijin-core/raijin", "version": "dev"}
	h1, err := BuildHash(info)
	require.NoError(t, err)
	h2, err := BuildHash(info)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
