package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorldModelObserveEvictsOldestAtCapacity(t *testing.T) {
	w := NewWorldModel(2)
	w.Observe([]float32{1})
	w.Observe([]float32{2})
	w.Observe([]float32{3})

	assert.Equal(t, 2, w.Len())
}

func TestWorldModelCompressHalvesEvenBuffer(t *testing.T) {
	w := NewWorldModel(0)
	w.Observe([]float32{1, 1})
	w.Observe([]float32{3, 3})
	w.Observe([]float32{5, 5})
	w.Observe([]float32{7, 7})

	dropped := w.Compress()

	assert.Equal(t, 2, dropped)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, 2, w.DroppedTotal())
}

func TestWorldModelCompressKeepsOddTailUnmerged(t *testing.T) {
	w := NewWorldModel(0)
	w.Observe([]float32{1})
	w.Observe([]float32{2})
	w.Observe([]float32{3})

	dropped := w.Compress()

	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, w.Len())
}

func TestWorldModelCompressNoopBelowTwoEntries(t *testing.T) {
	w := NewWorldModel(0)
	w.Observe([]float32{1})

	dropped := w.Compress()

	assert.Equal(t, 0, dropped)
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, 0, w.DroppedTotal())
}

func TestWorldModelDroppedTotalAccumulatesAcrossCompressions(t *testing.T) {
	w := NewWorldModel(0)
	for i := 0; i < 8; i++ {
		w.Observe([]float32{float32(i)})
	}

	w.Compress()
	w.Compress()

	assert.Equal(t, 6, w.DroppedTotal())
}
