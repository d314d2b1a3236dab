package neural

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	return Config{ActiveNeuronCount: 64, KnowledgeSize: 32, Seed: 7}
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	_, err := New(Config{ActiveNeuronCount: 0, KnowledgeSize: 10})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = New(Config{ActiveNeuronCount: 10, KnowledgeSize: 0})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestProcessRejectsEmptyInput(t *testing.T) {
	f, err := New(smallConfig())
	require.NoError(t, err)

	err = f.Process(nil, make([]byte, 8))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestLearnRejectsEmptyTarget(t *testing.T) {
	f, err := New(smallConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, f.Learn(nil), ErrInvalidParameter)
}

func TestProcessIsDeterministicForFixedSeed(t *testing.T) {
	a, err := New(smallConfig())
	require.NoError(t, err)
	b, err := New(smallConfig())
	require.NoError(t, err)

	in := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	outA := make([]byte, 8)
	outB := make([]byte, 8)

	require.NoError(t, a.Process(in, outA))
	require.NoError(t, b.Process(in, outB))

	assert.Equal(t, outA, outB, "same seed and input must produce identical output")
}

func TestWeightsStayWithinBoundsAfterEvolve(t *testing.T) {
	f, err := New(smallConfig())
	require.NoError(t, err)

	in := []byte{10, 20, 30, 40}
	out := make([]byte, 4)
	for i := 0; i < 50; i++ {
		require.NoError(t, f.Process(in, out))
		require.NoError(t, f.Learn(in))
		f.Evolve()
	}

	for _, n := range f.neurons {
		for _, in := range n.Inputs {
			assert.GreaterOrEqual(t, in.Weight, float32(weightMin))
			assert.LessOrEqual(t, in.Weight, float32(weightMax))
		}
		assert.GreaterOrEqual(t, n.Entropy, float32(entropyMin))
		assert.LessOrEqual(t, n.Entropy, float32(entropyMax))
	}
}

// TestCheckpointRoundTrip matches the end-to-end scenario from spec.md
// §8 (scenario 1): save a fabric mid-run, load it into a fresh fabric of
// the same shape, and confirm the forward pass produces bit-identical
// output afterward.
func TestCheckpointRoundTrip(t *testing.T) {
	f, err := New(smallConfig())
	require.NoError(t, err)

	in := []byte{5, 9, 13, 17, 21}
	out := make([]byte, 5)
	for i := 0; i < 10; i++ {
		require.NoError(t, f.Process(in, out))
		require.NoError(t, f.Learn(in))
		f.Evolve()
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.bin")
	require.NoError(t, f.Save(path))

	restored, err := New(smallConfig())
	require.NoError(t, err)
	require.NoError(t, restored.Load(path))

	wantOut := make([]byte, 5)
	gotOut := make([]byte, 5)
	require.NoError(t, f.Process(in, wantOut))
	require.NoError(t, restored.Process(in, gotOut))
	assert.Equal(t, wantOut, gotOut)

	assert.Equal(t, f.globalEntropy, restored.globalEntropy)
	assert.Equal(t, f.learningTemp, restored.learningTemp)
	if diff := cmp.Diff(f.neurons, restored.neurons); diff != "" {
		t.Errorf("restored neurons differ (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint at all"), 0o644))

	f, err := New(smallConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, f.Load(path), ErrBadMagic)
}

func TestLoadRejectsNeuronCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.bin")

	small, err := New(Config{ActiveNeuronCount: 8, KnowledgeSize: 8, Seed: 1})
	require.NoError(t, err)
	require.NoError(t, small.Save(path))

	big, err := New(Config{ActiveNeuronCount: 16, KnowledgeSize: 8, Seed: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, big.Load(path), ErrNeuronCountMismatch)
}

func TestLoadRejectsShortFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.bin")

	f, err := New(smallConfig())
	require.NoError(t, err)
	require.NoError(t, f.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	restored, err := New(smallConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, restored.Load(path), ErrShortRead)
}
