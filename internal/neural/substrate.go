// Package neural implements the sparse neuron fabric from spec.md §3/§4.3:
// forward pass, local learning, evolve (weight mutation/homeostasis/
// pruning/entropy modulation), and deterministic checkpointing.
package neural

import (
	"errors"
	"math"
	"sync"

	"github.com/chewxy/math32"
	"github.com/pdevine/tensor"
	"gorgonia.org/vecf32"
)

// Errors returned at the Fabric API edge, per spec.md §6's error
// taxonomy (the subset relevant to this component).
var (
	ErrInvalidParameter   = errors.New("neural: invalid parameter")
	ErrInvalidDeviceState = errors.New("neural: invalid device state")
)

const (
	processWidth = 1000
	sparsity     = 0.001

	pruneThreshold = 0.02
)

// Config controls fabric construction.
type Config struct {
	ActiveNeuronCount int
	KnowledgeSize     int
	Seed              uint64
}

// DefaultConfig mirrors spec.md §3's defaults: 10,000 neurons, a 10,000
// element knowledge vector.
func DefaultConfig() Config {
	return Config{
		ActiveNeuronCount: 10000,
		KnowledgeSize:     10000,
		Seed:              1,
	}
}

// Fabric is the sparse neuron fabric. It owns every neuron and all
// scratch buffers exclusively; nothing outside the fabric mutates them.
type Fabric struct {
	mu sync.Mutex

	neurons           []Neuron
	activationBuffer  []float32
	globalEntropy     float32
	learningTemp      float32

	knowledge        *tensor.Dense
	knowledgeEntropy float32

	evolveCalls uint64
	rng         *xorshift128
}

// New constructs a fabric with cfg.ActiveNeuronCount neurons, each wired
// with input_count = ceil(sparsity * active_count), input_count >= 1.
func New(cfg Config) (*Fabric, error) {
	if cfg.ActiveNeuronCount <= 0 || cfg.KnowledgeSize <= 0 {
		return nil, ErrInvalidParameter
	}

	f := &Fabric{
		neurons:          make([]Neuron, cfg.ActiveNeuronCount),
		activationBuffer: make([]float32, cfg.ActiveNeuronCount),
		globalEntropy:    0.1,
		learningTemp:     1.0,
		rng:              newXorshift128(uint32(cfg.Seed) ^ 0xA5A5A5A5),
	}

	inputCount := int(math.Ceil(sparsity * float64(cfg.ActiveNeuronCount)))
	if inputCount < 1 {
		inputCount = 1
	}

	for i := range f.neurons {
		n := &f.neurons[i]
		n.ID = uint64(i)
		n.Kind = Kind(i % 4)
		n.Activation = Activation(i % 4)
		n.Membrane = 0
		n.Threshold = (f.nextFloat()*2 - 1) * 0.5
		n.Entropy = f.nextFloat() * 0.5
		n.Plasticity = 0.01 + f.nextFloat()*0.09
		n.Inputs = make([]Input, inputCount)
		for j := 0; j < inputCount; j++ {
			n.Inputs[j] = Input{
				InputID: uint64(int(f.nextFloat()*float32(cfg.ActiveNeuronCount)) % cfg.ActiveNeuronCount),
				Weight:  f.nextFloat()*2 - 1,
			}
		}
	}
	f.recomputeOutputCounts()

	knowledge := tensor.New(tensor.WithShape(cfg.KnowledgeSize), tensor.Of(tensor.Float32))
	backing := knowledge.Data().([]float32)
	for i := range backing {
		backing[i] = f.nextFloat()*2 - 1
	}
	f.knowledge = knowledge
	f.knowledgeEntropy = 0.1

	return f, nil
}

func (f *Fabric) nextFloat() float32 {
	return float32(f.rng.next()) / float32(math.MaxUint32)
}

func (f *Fabric) recomputeOutputCounts() {
	counts := make([]uint32, len(f.neurons))
	for i := range f.neurons {
		for _, in := range f.neurons[i].Inputs {
			if int(in.InputID) < len(counts) {
				counts[in.InputID]++
			}
		}
	}
	for i := range f.neurons {
		f.neurons[i].OutputCount = counts[i]
	}
}

// Entropy returns the fabric's global entropy scalar.
func (f *Fabric) Entropy() float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.globalEntropy
}

// Process runs one sequential forward pass. Input bytes are mapped to
// floats in [0,1] (divide by 255) and truncated/padded to
// min(len(input), processWidth); output is the symmetric inverse
// mapping of the first len(output) buffer slots after the pass.
func (f *Fabric) Process(input []byte, output []byte) error {
	if len(input) == 0 {
		return ErrInvalidParameter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	width := len(input)
	if width > processWidth {
		width = processWidth
	}

	for i := 0; i < len(f.activationBuffer); i++ {
		if i < width {
			f.activationBuffer[i] = float32(input[i]) / 255.0
		} else if i >= len(input) {
			break
		}
	}

	f.forwardLocked()

	outWidth := len(output)
	if outWidth > len(f.activationBuffer) {
		outWidth = len(f.activationBuffer)
	}
	for i := 0; i < outWidth; i++ {
		v := f.activationBuffer[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		output[i] = byte(v * 255.0)
	}
	return nil
}

// forwardLocked runs the sequential, order-dependent forward pass
// described in spec.md §4.3. Each neuron's output is written into
// activationBuffer before the next neuron runs — this must never be
// parallelized naively, per the design note in spec.md §9.
func (f *Fabric) forwardLocked() {
	weights := make([]float32, 0, 16)
	inputs := make([]float32, 0, 16)

	for i := range f.neurons {
		n := &f.neurons[i]

		weights = weights[:0]
		inputs = inputs[:0]
		for _, in := range n.Inputs {
			weights = append(weights, in.Weight)
			inputs = append(inputs, f.activationBuffer[in.InputID])
		}

		// weights is now overwritten with the elementwise product;
		// summing it gives the weighted-input dot product.
		vecf32.Mul(weights, inputs)
		var dot float32
		for _, v := range weights {
			dot += v
		}

		raw := float64(dot + n.Threshold)
		noise := chaos(raw, float64(n.Entropy)) * float64(f.globalEntropy)
		total := float32(raw + noise)

		out := activate(n.Activation, total, n.Entropy)
		out = n.applyKind(out)

		n.Membrane = total
		f.activationBuffer[n.ID] = out
	}
}

// Learn runs one simplified backprop step against target bytes, mapped
// onto the activation buffer with the same contract as Process's output.
func (f *Fabric) Learn(target []byte) error {
	if len(target) == 0 {
		return ErrInvalidParameter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	width := len(target)
	if width > len(f.activationBuffer) {
		width = len(f.activationBuffer)
	}

	errBuf := make([]float64, len(f.neurons))
	for i := 0; i < width; i++ {
		want := float64(target[i]) / 255.0
		errBuf[i] = want - float64(f.activationBuffer[i])
	}

	for i := len(f.neurons) - 1; i >= 0; i-- {
		n := &f.neurons[i]
		delta := errBuf[i] * activationDerivative(n.Activation, n.Membrane, n.Entropy)
		if delta == 0 {
			continue
		}

		lr := float64(n.Plasticity)
		for j := range n.Inputs {
			in := &n.Inputs[j]
			prevWeight := float64(in.Weight)
			grad := delta * float64(f.activationBuffer[in.InputID])
			newWeight := prevWeight + lr*grad
			in.Weight = clamp32(float32(newWeight), weightMin, weightMax)

			errBuf[in.InputID] += delta * prevWeight
		}
	}
	return nil
}

func activationDerivative(kind Activation, preActivation float32, entropy float32) float64 {
	switch kind {
	case Sigmoid:
		s := 1.0 / (1.0 + math32.Exp(-preActivation))
		return float64(s * (1 - s))
	case ReLU:
		if preActivation > 0 {
			return 1.0
		}
		return 0.0
	case EntropicTanh:
		t := math32.Tanh(preActivation * (1 + entropy))
		return float64((1 - t*t) * (1 + entropy))
	default:
		t := math32.Tanh(preActivation)
		return float64(1 - t*t)
	}
}

// Evolve mutates the neurons themselves (about 5% of neurons per call
// get roughly 10% of their input weights perturbed by up to ±0.1, then
// clamped), plus the periodic homeostasis/pruning/entropy-modulation
// passes from spec.md §4.3. No crossover between neurons is performed.
func (f *Fabric) Evolve() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.evolveCalls++

	for i := range f.neurons {
		n := &f.neurons[i]
		if f.nextFloat() < 0.05 {
			for j := range n.Inputs {
				if f.nextFloat() < 0.1 {
					n.Inputs[j].Weight += (f.nextFloat()*2 - 1) * 0.1
				}
			}
			n.ClampWeights()
		}
	}

	if f.evolveCalls%100 == 0 {
		f.homeostasisLocked()
	}
	if f.evolveCalls%1000 == 0 {
		f.pruneLocked()
	}
	f.modulateEntropyLocked()
}

func (f *Fabric) homeostasisLocked() {
	var mean float64
	for _, v := range f.activationBuffer {
		mean += float64(v)
	}
	mean /= float64(len(f.activationBuffer))

	const target = 0.5
	if mean < target {
		f.learningTemp *= 1.02
	} else if mean > target {
		f.learningTemp *= 0.98
	}
	if f.learningTemp < 0.1 {
		f.learningTemp = 0.1
	}
	if f.learningTemp > 4.0 {
		f.learningTemp = 4.0
	}
}

func (f *Fabric) pruneLocked() {
	for i := range f.neurons {
		n := &f.neurons[i]
		for j := range n.Inputs {
			if math32.Abs(n.Inputs[j].Weight) < pruneThreshold {
				n.Inputs[j].Weight = 0
			}
		}
	}
}

func (f *Fabric) modulateEntropyLocked() {
	phase := float64(f.evolveCalls) * 0.01
	delta := float32(math.Sin(phase) * 0.01)
	for i := range f.neurons {
		n := &f.neurons[i]
		n.Entropy = clamp32(n.Entropy+delta, entropyMin, entropyMax)
	}
	f.globalEntropy = clamp32(f.globalEntropy+delta, entropyMin, entropyMax)
}

// neuronCount exposes the fabric's fixed neuron count.
func (f *Fabric) neuronCount() int {
	return len(f.neurons)
}
