package stress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoSubstrate is a deterministic stand-in for the neural fabric: it
// copies input into output (truncated/padded), failing on nil/empty
// input the way Fabric.Process does per spec.md §4.3.
type echoSubstrate struct {
	failAlways bool
}

func (e *echoSubstrate) Process(input, output []byte) error {
	if e.failAlways {
		return errors.New("forced failure")
	}
	if len(input) == 0 {
		return errors.New("neural: invalid parameter")
	}
	for i := range output {
		if i < len(input) {
			output[i] = input[i]
		} else {
			output[i] = 0
		}
	}
	return nil
}

func TestAdversarialNullInputIsCorrectRejection(t *testing.T) {
	a := NewAdversarial(&echoSubstrate{})
	res := a.Inject(ShapeNullInput)
	assert.False(t, res.ProcessReturnedSuccess)
	assert.Equal(t, 1.0, res.RobustnessContribution)
}

func TestAdversarialZeroSizeIsCorrectRejection(t *testing.T) {
	a := NewAdversarial(&echoSubstrate{})
	res := a.Inject(ShapeZeroSize)
	assert.False(t, res.ProcessReturnedSuccess)
	assert.Equal(t, 1.0, res.RobustnessContribution)
}

func TestAdversarialNoiseSuccessContributesPositively(t *testing.T) {
	a := NewAdversarial(&echoSubstrate{})
	res := a.Inject(ShapeRandomNoise)
	assert.True(t, res.ProcessReturnedSuccess)
	assert.Contains(t, []float64{0.5, 1.0}, res.RobustnessContribution)
}

func TestAdversarialFailureOnNonRejectShapeContributesZero(t *testing.T) {
	a := NewAdversarial(&echoSubstrate{failAlways: true})
	res := a.Inject(ShapeRandomNoise)
	assert.False(t, res.ProcessReturnedSuccess)
	assert.Equal(t, 0.0, res.RobustnessContribution)
}

func TestAdversarialInjectAllCoversEveryShape(t *testing.T) {
	a := NewAdversarial(&echoSubstrate{})
	results := a.InjectAll(context.Background())
	require.Len(t, results, int(shapeCount))
	for i, r := range results {
		assert.Equal(t, ShapeID(i), r.Shape)
	}
}

func TestAdversarialRobustnessScoreDefaultsToOne(t *testing.T) {
	a := NewAdversarial(&echoSubstrate{})
	assert.Equal(t, 1.0, a.RobustnessScore())
}

func TestFrameworkZeroInputProducesStableOutput(t *testing.T) {
	f := NewFramework(&echoSubstrate{})
	res := f.Run(PerturbationZeroInput)
	assert.Greater(t, res.Robustness, 0.0)
	assert.Equal(t, 1, f.BaselineHistoryLen())
}

func TestFrameworkFailingSubstrateReturnsZeroResult(t *testing.T) {
	f := NewFramework(&echoSubstrate{failAlways: true})
	res := f.Run(PerturbationNoiseInjection)
	assert.False(t, res.Passed)
	assert.Equal(t, 0.0, res.Robustness)
}

func TestFrameworkHistoryCapped(t *testing.T) {
	f := NewFramework(&echoSubstrate{})
	for i := 0; i < 50; i++ {
		f.Run(PerturbationCorruption)
	}
	assert.LessOrEqual(t, f.BaselineHistoryLen(), 32)
}
