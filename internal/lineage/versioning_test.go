package lineage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubstrate records which path it last loaded/saved, standing in for
// the neural fabric's Save/Load in isolation from its binary format.
type fakeSubstrate struct {
	state     string
	savedAt   map[string]string
	loadCalls int
}

func newFakeSubstrate() *fakeSubstrate {
	return &fakeSubstrate{savedAt: map[string]string{}}
}

func (f *fakeSubstrate) Save(path string) error {
	f.savedAt[path] = f.state
	return os.WriteFile(path, []byte(f.state), 0o644)
}

func (f *fakeSubstrate) Load(path string) error {
	f.loadCalls++
	f.state = f.savedAt[path]
	return nil
}

func TestCreateCheckpointRecordsLineage(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, "lineage.json"))
	sub := newFakeSubstrate()
	v := NewVersioning(tr, sub, dir)

	sub.state = "v1-state"
	e, err := v.CreateCheckpoint(10, 0, 0.4, 0.6, 0.5)
	require.NoError(t, err)
	assert.FileExists(t, e.CheckpointPath)
	assert.Equal(t, "v1-state", sub.savedAt[e.CheckpointPath])
}

// TestRollbackToBestRestoresHighestFitness mirrors spec.md §8 scenario 3.
func TestRollbackToBestRestoresHighestFitness(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, "lineage.json"))
	sub := newFakeSubstrate()
	v := NewVersioning(tr, sub, dir)

	sub.state = "state-0.5"
	_, err := v.CreateCheckpoint(1, 0, 0.5, 0.5, 0.4)
	require.NoError(t, err)

	sub.state = "state-0.9"
	_, err = v.CreateCheckpoint(2, 0, 0.3, 0.9, 0.6)
	require.NoError(t, err)

	sub.state = "state-0.7"
	_, err = v.CreateCheckpoint(3, 0, 0.4, 0.7, 0.5)
	require.NoError(t, err)

	sub.state = "whatever-is-live-now"
	require.NoError(t, v.RollbackToBest())

	assert.Equal(t, "state-0.9", sub.state)
	assert.Equal(t, uint64(1), v.RollbackCount())
}

func TestRollbackToBestNoEntriesReturnsError(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, "lineage.json"))
	sub := newFakeSubstrate()
	v := NewVersioning(tr, sub, dir)

	err := v.RollbackToBest()
	assert.ErrorIs(t, err, ErrNoLineage)
}

func TestRollbackToVersionLoadsThatCheckpoint(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, "lineage.json"))
	sub := newFakeSubstrate()
	v := NewVersioning(tr, sub, dir)

	sub.state = "state-a"
	e1, err := v.CreateCheckpoint(1, 0, 0.5, 0.5, 0.4)
	require.NoError(t, err)

	sub.state = "state-b"
	_, err = v.CreateCheckpoint(2, 0, 0.4, 0.6, 0.5)
	require.NoError(t, err)

	require.NoError(t, v.RollbackToVersion(e1.VersionID))
	assert.Equal(t, "state-a", sub.state)
}
