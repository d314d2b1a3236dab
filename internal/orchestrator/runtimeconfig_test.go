package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRuntimeConfigBaseline(t *testing.T) {
	r := NewRuntimeConfig()
	assert.Equal(t, 5, r.EvolutionInterval())
	assert.Equal(t, 50, r.SaveInterval())
	assert.Equal(t, 200, r.SelfTestInterval())
	assert.Equal(t, 25, r.StressInterval())
}

func TestOverrideClampsOutOfRangeValues(t *testing.T) {
	r := NewRuntimeConfig()
	r.Override(999, 1, 1, 1)

	assert.Equal(t, maxEvolutionInterval, r.EvolutionInterval())
	assert.Equal(t, minSaveInterval, r.SaveInterval())
	assert.Equal(t, minSelfTestInterval, r.SelfTestInterval())
	assert.Equal(t, minStressInterval, r.StressInterval())
}

func TestUpdateWidensIntervalsWhenHealthy(t *testing.T) {
	r := NewRuntimeConfig()
	for i := 0; i < 8; i++ {
		r.Update(1.0-float64(i)*0.05, float64(i)*0.05)
	}

	assert.Greater(t, r.EvolutionInterval(), 5)
	assert.Greater(t, r.SaveInterval(), 50)
	assert.Greater(t, r.SelfTestInterval(), 200)
	assert.Greater(t, r.StressInterval(), 25)
}

func TestUpdateNarrowsIntervalsWhenDegrading(t *testing.T) {
	r := NewRuntimeConfig()
	for i := 0; i < 8; i++ {
		r.Update(float64(i)*0.1, 1.0-float64(i)*0.1)
	}

	assert.Less(t, r.EvolutionInterval(), 5)
	assert.Less(t, r.SaveInterval(), 50)
	assert.Less(t, r.SelfTestInterval(), 200)
	assert.Less(t, r.StressInterval(), 25)
}

func TestUpdateClampsAtIntervalFloors(t *testing.T) {
	r := NewRuntimeConfig()
	for i := 0; i < 50; i++ {
		r.Update(float64(i), -float64(i))
	}

	assert.Equal(t, minEvolutionInterval, r.EvolutionInterval())
	assert.Equal(t, minSaveInterval, r.SaveInterval())
	assert.Equal(t, minSelfTestInterval, r.SelfTestInterval())
	assert.Equal(t, minStressInterval, r.StressInterval())
}

func TestUpdateClampsAtIntervalCeilings(t *testing.T) {
	r := NewRuntimeConfig()
	for i := 0; i < 100; i++ {
		r.Update(-float64(i), float64(i))
	}

	assert.Equal(t, maxEvolutionInterval, r.EvolutionInterval())
	assert.Equal(t, maxSaveInterval, r.SaveInterval())
	assert.Equal(t, maxSelfTestInterval, r.SelfTestInterval())
	assert.Equal(t, maxStressInterval, r.StressInterval())
}

func TestSlopeWithFewerThanTwoSamplesIsZero(t *testing.T) {
	assert.Equal(t, 0.0, slope(nil))
	assert.Equal(t, 0.0, slope([]float64{1.0}))
}

func TestPushWindowCapsAtRuntimeConfigWindow(t *testing.T) {
	var h []float64
	for i := 0; i < runtimeConfigWindow+10; i++ {
		h = pushWindow(h, float64(i))
	}
	assert.Len(t, h, runtimeConfigWindow)
	assert.Equal(t, float64(runtimeConfigWindow+9), h[len(h)-1])
}
