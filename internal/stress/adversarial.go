// Package stress implements the adversarial stress suite, the stress
// perturbation framework, and the red-team attack driver from spec.md
// §4.10.
package stress

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Substrate is the narrow surface this package needs from the neural
// fabric.
type Substrate interface {
	Process(input, output []byte) error
}

const probeWidth = 1000

// ShapeID identifies one of the six hostile input shapes, spec.md §4.10.
type ShapeID int

const (
	ShapeNullInput ShapeID = iota
	ShapeZeroSize
	ShapeRandomNoise
	ShapeAllOnes
	ShapeOversize
	ShapeOffByOne
	shapeCount
)

func (s ShapeID) String() string {
	switch s {
	case ShapeNullInput:
		return "null_input"
	case ShapeZeroSize:
		return "zero_size"
	case ShapeRandomNoise:
		return "random_noise"
	case ShapeAllOnes:
		return "all_0xff"
	case ShapeOversize:
		return "oversize"
	case ShapeOffByOne:
		return "off_by_one"
	default:
		return "unknown"
	}
}

// shapeInput builds the hostile byte slice for a given shape. Nil and
// zero-size shapes intentionally return a slice Process will reject —
// the rejection itself is the expected, correct behavior.
func shapeInput(shape ShapeID, seed uint32) []byte {
	switch shape {
	case ShapeNullInput:
		return nil
	case ShapeZeroSize:
		return []byte{}
	case ShapeRandomNoise:
		buf := make([]byte, probeWidth)
		s := seed | 1
		for i := range buf {
			s = s*1103515245 + 12345
			buf[i] = byte(s >> 16)
		}
		return buf
	case ShapeAllOnes:
		buf := make([]byte, probeWidth)
		for i := range buf {
			buf[i] = 0xFF
		}
		return buf
	case ShapeOversize:
		return make([]byte, probeWidth)
	default: // ShapeOffByOne
		return make([]byte, probeWidth+1)
	}
}

// isNullOrZeroSize reports whether a shape's correct handling is
// rejection rather than a bounded result.
func isNullOrZeroSize(shape ShapeID) bool {
	return shape == ShapeNullInput || shape == ShapeZeroSize
}

// Result is one shape's injection outcome.
type Result struct {
	Shape                  ShapeID
	ProcessReturnedSuccess bool
	OutputBounded          bool
	RobustnessContribution float64
}

// outputBounded reports whether output, interpreted as a sequence of
// 32-bit floats (reusing the byte buffer four bytes at a time as if it
// held raw float32 bit patterns), contains no NaN/Inf. Process's actual
// output contract is bytes in [0,255], so in practice this only ever
// trips if Process writes through an unexpected path; the check exists
// to catch that.
func outputBounded(output []byte) bool {
	for i := 0; i+4 <= len(output); i += 4 {
		bits := uint32(output[i]) | uint32(output[i+1])<<8 | uint32(output[i+2])<<16 | uint32(output[i+3])<<24
		f := math.Float32frombits(bits)
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}

// Adversarial drives the six hostile shapes against a substrate and
// maintains per-shape injection/survival counters plus a global
// robustness score.
type Adversarial struct {
	mu        sync.Mutex
	substrate Substrate
	seed      uint32

	injections [shapeCount]uint64
	survivals  [shapeCount]uint64

	last Result
}

// NewAdversarial constructs an adversarial suite against substrate.
func NewAdversarial(substrate Substrate) *Adversarial {
	return &Adversarial{substrate: substrate, seed: 1}
}

// Inject runs one hostile shape against the substrate. For the
// null/zero-size shapes, a Process failure is the *correct* outcome and
// contributes 1.0; for the remaining shapes, success+bounded
// contributes 1.0, success+unbounded contributes 0.5, and failure
// contributes 0.0.
func (a *Adversarial) Inject(shape ShapeID) Result {
	a.mu.Lock()
	a.seed = a.seed*1103515245 + 12345
	seed := a.seed
	a.mu.Unlock()

	input := shapeInput(shape, seed)
	output := make([]byte, probeWidth)

	err := a.substrate.Process(input, output)
	success := err == nil

	res := Result{Shape: shape, ProcessReturnedSuccess: success}

	if isNullOrZeroSize(shape) {
		if !success {
			res.RobustnessContribution = 1.0
		} else {
			res.RobustnessContribution = 0.0
		}
	} else {
		res.OutputBounded = success && outputBounded(output)
		switch {
		case success && res.OutputBounded:
			res.RobustnessContribution = 1.0
		case success:
			res.RobustnessContribution = 0.5
		default:
			res.RobustnessContribution = 0.0
		}
	}

	a.mu.Lock()
	a.injections[shape]++
	if res.RobustnessContribution > 0 {
		a.survivals[shape]++
	}
	a.last = res
	a.mu.Unlock()
	return res
}

// InjectAll runs all six shapes concurrently through a bounded
// errgroup (limited to shapeCount workers, since there's no reason to
// serialize independent hostile-input runs), with each shape's result
// landing in its own deterministic slot regardless of completion order.
func (a *Adversarial) InjectAll(ctx context.Context) []Result {
	results := make([]Result, shapeCount)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(int(shapeCount))

	for s := ShapeID(0); s < shapeCount; s++ {
		shape := s
		g.Go(func() error {
			results[shape] = a.Inject(shape)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// LastResult returns the outcome of the most recent Inject call.
func (a *Adversarial) LastResult() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// RobustnessScore returns total_survivals / total_injections across all
// shapes, or 1.0 if nothing has run yet.
func (a *Adversarial) RobustnessScore() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var totalInjections, totalSurvivals uint64
	for i := range a.injections {
		totalInjections += a.injections[i]
		totalSurvivals += a.survivals[i]
	}
	if totalInjections == 0 {
		return 1.0
	}
	return float64(totalSurvivals) / float64(totalInjections)
}
