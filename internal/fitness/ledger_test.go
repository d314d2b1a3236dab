package fitness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRollback struct {
	calls int
}

func (f *fakeRollback) RollbackToBest() error {
	f.calls++
	return nil
}

func TestNewLedgerSentinels(t *testing.T) {
	l := New(nil)
	assert.True(t, math.IsInf(l.Best(), -1))
	assert.True(t, math.IsInf(l.Worst(), 1))
}

func TestUpdateCompositeInRange(t *testing.T) {
	l := New(nil)
	c := l.Update(0.8, 0.9, 100, 3, DominanceView{Efficiency: 0.7, Coherence: 0.6, Adaptability: 0.2}, RegressionState{}, 0)
	assert.GreaterOrEqual(t, c.Score, 0.0)
	assert.LessOrEqual(t, c.Score, 1.0)
}

func TestUpdateClampsOutOfRangeInputs(t *testing.T) {
	l := New(nil)
	c := l.Update(5.0, -5.0, 1, 1, DominanceView{Efficiency: 10, Coherence: -10, Adaptability: 5}, RegressionState{}, 0)
	assert.GreaterOrEqual(t, c.Score, 0.0)
	assert.LessOrEqual(t, c.Score, 1.0)
}

func TestRegressionDegradesRegressionRate(t *testing.T) {
	l := New(nil)
	none := l.Update(0.5, 0.5, 1, 1, DominanceView{}, RegressionState{}, 0)
	fired := l.Update(0.5, 0.5, 1, 1, DominanceView{}, RegressionState{Fired: true}, 0)
	degenerated := l.Update(0.5, 0.5, 1, 1, DominanceView{}, RegressionState{DegenerationDetected: true}, 0)

	assert.Equal(t, 1.0, none.RegressionRate)
	assert.Equal(t, 0.5, fired.RegressionRate)
	assert.Equal(t, 0.0, degenerated.RegressionRate)
}

func TestRecoveryDecreasesWithRollbacks(t *testing.T) {
	l := New(nil)
	c0 := l.Update(0.5, 0.5, 1, 1, DominanceView{}, RegressionState{}, 0)
	c3 := l.Update(0.5, 0.5, 1, 1, DominanceView{}, RegressionState{}, 3)
	assert.Greater(t, c0.Recovery, c3.Recovery)
}

func TestBestWorstTrackAcrossUpdates(t *testing.T) {
	l := New(nil)
	l.Update(0.9, 0.9, 1, 1, DominanceView{Efficiency: 0.9, Coherence: 0.9, Adaptability: 0.9}, RegressionState{}, 0)
	l.Update(0.1, 0.1, 2, 2, DominanceView{Efficiency: 0.1, Coherence: 0.1, Adaptability: 0.1}, RegressionState{}, 0)

	assert.Greater(t, l.Best(), l.Worst())
}

func TestPromoteBestCallsRollback(t *testing.T) {
	rb := &fakeRollback{}
	l := New(rb)
	require.NoError(t, l.PromoteBest())
	assert.Equal(t, 1, rb.calls)
}
