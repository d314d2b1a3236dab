package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDominanceUpdateDerivesFields(t *testing.T) {
	d := NewDominance()

	s1 := d.Update(Inputs{Fitness: 0.5, Loss: 0.2, Entropy: 0.5, BatchMS: 0, MemMB: 0})
	assert.InDelta(t, 0.4, s1.Dominance, 1e-9)
	assert.InDelta(t, 1.0, s1.Efficiency, 1e-9)
	assert.InDelta(t, 1.0, s1.Coherence, 1e-9)
	assert.Equal(t, 0.0, s1.Adaptability)

	s2 := d.Update(Inputs{Fitness: 0.8, Loss: 0.2, Entropy: 0.9})
	assert.InDelta(t, 0.3, s2.Adaptability, 1e-9)
}

func TestDominanceAdaptabilityNeverNegative(t *testing.T) {
	d := NewDominance()
	d.Update(Inputs{Fitness: 0.8, Loss: 0.1})
	s := d.Update(Inputs{Fitness: 0.2, Loss: 0.1})
	assert.Equal(t, 0.0, s.Adaptability)
}

func TestDominanceTrendSlopeSign(t *testing.T) {
	d := NewDominance()
	for i := 0; i < 20; i++ {
		d.Update(Inputs{Fitness: float64(i) * 0.01, Loss: 0.1})
	}
	trend := d.Trend()
	assert.Greater(t, trend.Dominance, 0.0)
}

func TestDominanceRingEvictsOldest(t *testing.T) {
	d := NewDominance()
	for i := 0; i < dominanceRingCapacity+10; i++ {
		d.Update(Inputs{Fitness: 0.5, Loss: 0.1})
	}
	assert.Equal(t, dominanceRingCapacity, d.Count())
}
