// Package config loads the user-provided pinned_deps.json blob and
// computes the build/config hashes recorded in provenance.log, per
// spec.md §6.
package config

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// PinnedDeps is an opaque user-provided JSON blob for build
// dependencies; the schema is owned by the caller, not this spec.
type PinnedDeps map[string]interface{}

// LoadPinnedDeps reads data/pinned_deps.json verbatim. A missing file
// yields an empty map rather than an error, since no pinned-deps file
// is a valid "nothing pinned yet" state.
func LoadPinnedDeps(path string) (PinnedDeps, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PinnedDeps{}, nil
		}
		return nil, err
	}
	var deps PinnedDeps
	if err := json.Unmarshal(raw, &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// RuntimeConfig is the set of internal knobs spec.md §6 allows an
// initial "set runtime config" hook to override.
type RuntimeConfig struct {
	EvolutionInterval int
	SaveInterval      int
	SelfTestInterval  int
	StressInterval    int
	Seed              uint64
}

// DefaultRuntimeConfig mirrors the orchestrator's built-in interval
// defaults before any adaptation occurs.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		EvolutionInterval: 5,
		SaveInterval:      50,
		SelfTestInterval:  200,
		StressInterval:    25,
		Seed:              1,
	}
}

func stableJSON(v interface{}) ([]byte, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return json.Marshal(v)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]interface{}, len(m))
	for _, k := range keys {
		ordered[k] = m[k]
	}
	return json.Marshal(ordered)
}

func hashOf(v interface{}) (string, error) {
	raw, err := stableJSON(v)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// BuildHash hashes a build-identifying blob (module path, version
// string, embedded build info — supplied by the caller) into the
// provenance log's build_hash field.
func BuildHash(buildInfo map[string]interface{}) (string, error) {
	return hashOf(buildInfo)
}

// ConfigHash hashes the effective runtime config plus pinned deps into
// the provenance log's config_hash field.
func ConfigHash(cfg RuntimeConfig, deps PinnedDeps) (string, error) {
	blob := map[string]interface{}{
		"evolution_interval": cfg.EvolutionInterval,
		"save_interval":      cfg.SaveInterval,
		"self_test_interval": cfg.SelfTestInterval,
		"stress_interval":    cfg.StressInterval,
		"seed":               cfg.Seed,
		"pinned_deps":        map[string]interface{}(deps),
	}
	return hashOf(blob)
}
