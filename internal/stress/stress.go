package stress

import (
	"math"

	bfloat16 "github.com/d4l3k/go-bfloat16"
)

// PerturbationID identifies one of the five stress perturbation types,
// spec.md §4.10.
type PerturbationID int

const (
	PerturbationCorruption PerturbationID = iota
	PerturbationNoiseInjection
	PerturbationExtremeValues
	PerturbationZeroInput
	PerturbationAdversarial
	perturbationCount
)

func (p PerturbationID) String() string {
	switch p {
	case PerturbationCorruption:
		return "corruption"
	case PerturbationNoiseInjection:
		return "noise_injection"
	case PerturbationExtremeValues:
		return "extreme_values"
	case PerturbationZeroInput:
		return "zero_input"
	case PerturbationAdversarial:
		return "adversarial_perturbation"
	default:
		return "unknown"
	}
}

// baselineValue is the constant baseline input, spec.md §4.10: 0x80
// repeated N times.
const baselineValue = 0x80

func perturb(baseline []byte, kind PerturbationID, seed uint32) []byte {
	out := make([]byte, len(baseline))
	copy(out, baseline)

	switch kind {
	case PerturbationCorruption:
		s := seed | 1
		for i := 0; i < len(out); i += 7 {
			s = s*1103515245 + 12345
			out[i] = byte(s >> 16)
		}
	case PerturbationNoiseInjection:
		s := seed | 3
		for i := range out {
			s = s*1103515245 + 12345
			delta := int(byte(s>>16)) - 128
			v := int(out[i]) + delta/4
			out[i] = clampByte(v)
		}
	case PerturbationExtremeValues:
		for i := range out {
			if i%2 == 0 {
				out[i] = 0x00
			} else {
				out[i] = 0xFF
			}
		}
	case PerturbationZeroInput:
		for i := range out {
			out[i] = 0
		}
	default: // PerturbationAdversarial
		s := seed | 5
		for i := range out {
			s = s*1103515245 + 12345
			out[i] = byte((int(out[i]) + int(s>>24)) & 0xFF)
		}
	}
	return out
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// PerturbationResult is one perturbation's stability outcome.
type PerturbationResult struct {
	Kind        PerturbationID
	Robustness  float64
	Passed      bool
}

const passThreshold = 0.1

// rmse compares two output buffers on the normalized [0,1] scale the
// substrate's activations live on, so robustness = 1/(1+rmse) spans a
// useful range instead of collapsing toward zero for any byte-level
// divergence.
func rmse(a, b []byte) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := (float64(a[i]) - float64(b[i])) / 255.0
		sum += d * d
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Framework runs the five perturbation types against a substrate,
// comparing perturbed output stability to a baseline run, and keeps a
// bf16-packed rolling window of recent baselines between cycles.
type Framework struct {
	substrate Substrate
	seed      uint32

	baselineHistory [][]byte // bf16-packed (2 bytes/element) normal_output history
	historyCap      int

	last PerturbationResult
}

// NewFramework constructs a stress framework against substrate.
func NewFramework(substrate Substrate) *Framework {
	return &Framework{substrate: substrate, seed: 7, historyCap: 32}
}

// Run executes one perturbation type: a baseline process(0x80*N), a
// perturbed process(hostile), then robustness = 1/(1+RMSE(normal,
// stress)).
func (f *Framework) Run(kind PerturbationID) PerturbationResult {
	baseline := make([]byte, probeWidth)
	for i := range baseline {
		baseline[i] = baselineValue
	}

	normalOutput := make([]byte, probeWidth)
	if err := f.substrate.Process(baseline, normalOutput); err != nil {
		return PerturbationResult{Kind: kind}
	}
	f.recordBaseline(normalOutput)

	f.seed = f.seed*1103515245 + 12345
	hostile := perturb(baseline, kind, f.seed)

	stressOutput := make([]byte, probeWidth)
	if err := f.substrate.Process(hostile, stressOutput); err != nil {
		return PerturbationResult{Kind: kind}
	}

	robustness := 1.0 / (1.0 + rmse(normalOutput, stressOutput))
	res := PerturbationResult{
		Kind:       kind,
		Robustness: robustness,
		Passed:     robustness > passThreshold,
	}
	f.last = res
	return res
}

func (f *Framework) recordBaseline(output []byte) {
	floatView := make([]float32, len(output))
	for i, b := range output {
		floatView[i] = float32(b) / 255.0
	}
	packed := bfloat16.EncodeFloat32(floatView)

	f.baselineHistory = append(f.baselineHistory, packed)
	if len(f.baselineHistory) > f.historyCap {
		f.baselineHistory = f.baselineHistory[len(f.baselineHistory)-f.historyCap:]
	}
}

// LastResult returns the outcome of the most recently run perturbation.
func (f *Framework) LastResult() PerturbationResult { return f.last }

// BaselineHistoryLen reports how many bf16-packed baselines are
// currently retained.
func (f *Framework) BaselineHistoryLen() int { return len(f.baselineHistory) }
