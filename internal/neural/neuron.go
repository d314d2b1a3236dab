package neural

import (
	"github.com/chewxy/math32"
)

// Kind is the neuron's excitatory/inhibitory/modulatory/entropic role,
// spec.md §3.
type Kind uint32

const (
	Excitatory Kind = iota
	Inhibitory
	Modulatory
	Entropic
)

// Activation selects the nonlinearity applied after the weighted sum +
// chaos term, spec.md §4.3.
type Activation uint32

const (
	Tanh Activation = iota
	Sigmoid
	ReLU
	EntropicTanh
)

const (
	weightMin = -1.0
	weightMax = 1.0

	thresholdMin = -4.0
	thresholdMax = 4.0

	entropyMin = 0.0
	entropyMax = 1.0

	plasticityMin = 1e-4
	plasticityMax = 1.0
)

// Input is one sparse incoming connection.
type Input struct {
	InputID uint64
	Weight  float32
}

// Neuron is one element of the fabric's flat neuron array. Inputs is a
// fixed-length slice allocated at construction and never resized —
// spec.md §9's "raw pointers with owning semantics" note, modeled here
// as a slice the neuron exclusively owns.
type Neuron struct {
	ID         uint64
	Kind       Kind
	Activation Activation
	Membrane   float32
	Threshold  float32
	Entropy    float32
	Plasticity float32

	Inputs      []Input
	OutputCount uint32
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampWeights enforces the [-1, 1] invariant on every input weight.
// Called after any mutation or learning step.
func (n *Neuron) ClampWeights() {
	for i := range n.Inputs {
		n.Inputs[i].Weight = clamp32(n.Inputs[i].Weight, weightMin, weightMax)
	}
}

// ClampBounds enforces the threshold/entropy/plasticity ranges spec.md
// §3 requires to hold after any mutation step.
func (n *Neuron) ClampBounds() {
	n.Threshold = clamp32(n.Threshold, thresholdMin, thresholdMax)
	n.Entropy = clamp32(n.Entropy, entropyMin, entropyMax)
	n.Plasticity = clamp32(n.Plasticity, plasticityMin, plasticityMax)
}

// applyKind maps the neuron's role onto its raw activation output before
// it's written back into the shared activation buffer.
func (n *Neuron) applyKind(output float32) float32 {
	switch n.Kind {
	case Inhibitory:
		return -output
	case Modulatory:
		return output * (1 - n.Entropy*0.5)
	default:
		return output
	}
}

func activate(kind Activation, x float32, entropy float32) float32 {
	switch kind {
	case Sigmoid:
		return 1.0 / (1.0 + math32.Exp(-x))
	case ReLU:
		if x < 0 {
			return 0
		}
		return x
	case EntropicTanh:
		return math32.Tanh(x * (1 + entropy))
	default:
		return math32.Tanh(x)
	}
}
