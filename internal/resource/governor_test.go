package resource

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSampler struct {
	samples []Sample
	i       int
}

func (f *fakeSampler) Sample() (Sample, error) {
	if f.i >= len(f.samples) {
		return f.samples[len(f.samples)-1], nil
	}
	s := f.samples[f.i]
	f.i++
	return s, nil
}

func TestGovernorBoundsAlwaysHold(t *testing.T) {
	samples := make([]Sample, 0, 20)
	for i := 0; i < 20; i++ {
		samples = append(samples, Sample{CPUPercent: 99, RAMMB: 1, DiskMB: 1, Timestamp: time.Now()})
	}
	g := NewWithSampler(&fakeSampler{samples: samples})

	for i := 0; i < 20; i++ {
		_, _ = g.Sample()
		g.ApplyThrottling()
		assert.GreaterOrEqual(t, g.ThrottleFactor(), throttleFloor)
		assert.LessOrEqual(t, g.ThrottleFactor(), throttleCeiling)
		assert.GreaterOrEqual(t, g.DegradationMode(), 0)
		assert.LessOrEqual(t, g.DegradationMode(), 2)
	}
}

func TestGovernorDegradationScenario(t *testing.T) {
	g := NewWithSampler(&fakeSampler{samples: []Sample{
		{CPUPercent: 95, Timestamp: time.Now()},
		{CPUPercent: 95, Timestamp: time.Now()},
		{CPUPercent: 95, Timestamp: time.Now()},
		{CPUPercent: 10, Timestamp: time.Now()},
	}})

	for i := 0; i < 3; i++ {
		_, _ = g.Sample()
		g.ApplyThrottling()
	}
	assert.GreaterOrEqual(t, g.DegradationMode(), 1)
	assert.LessOrEqual(t, g.ThrottleFactor(), 0.98)

	modeBefore := g.DegradationMode()
	throttleBefore := g.ThrottleFactor()

	_, _ = g.Sample()
	g.ApplyThrottling()

	assert.Equal(t, modeBefore-1, g.DegradationMode())
	want := math.Min(throttleBefore+unthrottleStep, throttleCeiling)
	assert.InDelta(t, want, g.ThrottleFactor(), 1e-9)
}

func TestSampleFailureKeepsPreviousReading(t *testing.T) {
	g := NewWithSampler(&failingSampler{})
	_, err := g.Sample()
	assert.Error(t, err)
	assert.Equal(t, Sample{}, g.LastSample())
}

type failingSampler struct{}

func (failingSampler) Sample() (Sample, error) {
	return Sample{}, assertErr{}
}

type assertErr struct{}

func (assertErr) Error() string { return "sample failure" }

func TestReportConsumptionMarksThrottled(t *testing.T) {
	g := New()
	g.AllocateBudget("training", 10, 10, 10)
	g.ReportConsumption("training", 20, 20, 20)
	assert.True(t, g.SubsystemThrottled("training"))

	g.ReportConsumption("training", 1, 1, 1)
	assert.False(t, g.SubsystemThrottled("training"))
}
