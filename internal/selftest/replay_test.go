package selftest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFailuresDeduplicatesByName(t *testing.T) {
	dir := t.TempDir()
	r := NewReplay(filepath.Join(dir, "regression_replay.txt"))

	report1 := Report{Results: []Result{{Name: "learn", Passed: false, Message: "first"}}}
	require.NoError(t, r.AddFailures(report1))

	report2 := Report{Results: []Result{{Name: "learn", Passed: false, Message: "second"}}}
	require.NoError(t, r.AddFailures(report2))

	assert.Len(t, r.Entries(), 1)
	assert.Equal(t, "first", r.Entries()[0].Signature)
}

func TestLoadReloadsPersistedEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regression_replay.txt")
	r := NewReplay(path)

	report := Report{Results: []Result{
		{Name: "learn", Passed: false, Message: "boom"},
		{Name: "process", Passed: false, Message: "also boom"},
	}}
	require.NoError(t, r.AddFailures(report))

	reloaded := NewReplay(path)
	require.NoError(t, reloaded.Load())
	assert.Len(t, reloaded.Entries(), 2)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	r := NewReplay(filepath.Join(dir, "does-not-exist.txt"))
	require.NoError(t, r.Load())
	assert.Empty(t, r.Entries())
}

func TestReplayAllRunsStoredEntries(t *testing.T) {
	dir := t.TempDir()
	r := NewReplay(filepath.Join(dir, "regression_replay.txt"))

	report := Report{Results: []Result{{Name: "learn", Passed: false, Message: "boom"}}}
	require.NoError(t, r.AddFailures(report))

	h := buildHarness(nil)
	out, allPassed := r.ReplayAll(h)
	assert.True(t, allPassed)
	assert.Len(t, out.Results, 1)
}

func TestReplayAllEscalatesAfterTwoFailingBatches(t *testing.T) {
	dir := t.TempDir()
	r := NewReplay(filepath.Join(dir, "regression_replay.txt"))
	report := Report{Results: []Result{{Name: "learn", Passed: false, Message: "boom"}}}
	require.NoError(t, r.AddFailures(report))

	h := buildHarness(map[string]bool{"learn": true})

	r.ReplayAll(h)
	assert.False(t, r.EscalateToHardRepair())
	r.ReplayAll(h)
	assert.True(t, r.EscalateToHardRepair())
}

func TestReplayAllEmptyIsTriviallyPassing(t *testing.T) {
	dir := t.TempDir()
	r := NewReplay(filepath.Join(dir, "regression_replay.txt"))
	h := buildHarness(nil)
	_, ok := r.ReplayAll(h)
	assert.True(t, ok)
}
