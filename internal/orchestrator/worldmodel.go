package orchestrator

import (
	"github.com/x448/float16"
)

// WorldCompressionBatch is the cycle interval at which the world-model
// buffer is halved, SPEC_FULL.md §5.
const WorldCompressionBatch = 128

// WorldModel is a fixed-capacity ring of latent experience vectors
// (the orchestrator builds each one from the cycle's loss and fitness;
// entries are stored float16-packed). Every
// WorldCompressionBatch cycles the buffer is compressed: adjacent pairs
// are averaged into one float16-packed entry, halving the logical size.
type WorldModel struct {
	capacity int
	entries  [][]float16.Float16

	droppedTotal int
}

// NewWorldModel constructs an empty world model with the given maximum
// entry capacity.
func NewWorldModel(capacity int) *WorldModel {
	return &WorldModel{capacity: capacity}
}

func packFloat16(vec []float32) []float16.Float16 {
	out := make([]float16.Float16, len(vec))
	for i, v := range vec {
		out[i] = float16.Fromfloat32(v)
	}
	return out
}

// Observe appends one latent experience vector, evicting the oldest
// entry if at capacity.
func (w *WorldModel) Observe(vec []float32) {
	packed := packFloat16(vec)
	w.entries = append(w.entries, packed)
	if w.capacity > 0 && len(w.entries) > w.capacity {
		w.entries = w.entries[1:]
	}
}

// Len returns the current number of retained entries.
func (w *WorldModel) Len() int { return len(w.entries) }

// DroppedTotal returns the cumulative number of entries dropped by
// Compress calls.
func (w *WorldModel) DroppedTotal() int { return w.droppedTotal }

// Compress halves the buffer: adjacent pairs are averaged into one
// entry (odd tail entry, if any, survives unchanged). The dropped count
// is returned for the caller to log and added to DroppedTotal.
func (w *WorldModel) Compress() int {
	if len(w.entries) < 2 {
		return 0
	}

	merged := make([][]float16.Float16, 0, (len(w.entries)+1)/2)
	i := 0
	for ; i+1 < len(w.entries); i += 2 {
		merged = append(merged, averageVectors(w.entries[i], w.entries[i+1]))
	}
	if i < len(w.entries) {
		merged = append(merged, w.entries[i])
	}

	dropped := len(w.entries) - len(merged)
	w.entries = merged
	w.droppedTotal += dropped
	return dropped
}

func averageVectors(a, b []float16.Float16) []float16.Float16 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float16.Float16, n)
	for i := 0; i < n; i++ {
		avg := (a[i].Float32() + b[i].Float32()) / 2
		out[i] = float16.Fromfloat32(avg)
	}
	return out
}
