package neural

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/pdevine/tensor"
)

// Checkpoint magic, spec.md §6. 16 bytes exactly.
const magic = "RAIJIN_NEURAL_V1"

// ErrBadMagic means the file exists but doesn't start with the expected
// magic — spec.md §6 treats this as "no checkpoint" rather than a hard
// failure.
var ErrBadMagic = errors.New("neural: bad checkpoint magic")

// ErrShortRead / ErrNeuronCountMismatch abort the load per spec.md §6.
var (
	ErrShortRead           = errors.New("neural: short read")
	ErrNeuronCountMismatch = errors.New("neural: neuron count mismatch")
)

// Save writes the substrate state in the format documented in spec.md §6:
// a 16-byte magic, active_neuron_count, each neuron's fields (id, type,
// activation, membrane, threshold, entropy, input_count, output_count,
// plasticity, weights, input_ids), then the knowledge vector, global
// entropy, learning temperature, and the activation buffer.
func (f *Fabric) Save(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	if _, err := w.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(f.neurons))); err != nil {
		return err
	}

	for i := range f.neurons {
		n := &f.neurons[i]
		if err := writeNeuron(w, n); err != nil {
			return err
		}
	}

	knowledgeData := f.knowledge.Data().([]float32)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(knowledgeData))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, knowledgeData); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, f.globalEntropy); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, f.learningTemp); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, f.activationBuffer); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

func writeNeuron(w io.Writer, n *Neuron) error {
	if err := binary.Write(w, binary.LittleEndian, n.ID); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(n.Kind)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(n.Activation)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Membrane); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Threshold); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Entropy); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(n.Inputs))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.OutputCount); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Plasticity); err != nil {
		return err
	}
	weights := make([]float32, len(n.Inputs))
	ids := make([]uint64, len(n.Inputs))
	for i, in := range n.Inputs {
		weights[i] = in.Weight
		ids[i] = in.InputID
	}
	if err := binary.Write(w, binary.LittleEndian, weights); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ids); err != nil {
		return err
	}
	return nil
}

// Load reads a checkpoint written by Save, replacing the fabric's
// current state in place. A bad magic is reported as ErrBadMagic ("no
// checkpoint"); a short read or neuron-count mismatch aborts with the
// corresponding error and leaves the fabric untouched.
func (f *Fabric) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	r := bufio.NewReader(file)

	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return ErrShortRead
	}
	if string(magicBuf) != magic {
		return ErrBadMagic
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return ErrShortRead
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if int(count) != len(f.neurons) {
		return ErrNeuronCountMismatch
	}

	neurons := make([]Neuron, count)
	for i := range neurons {
		n, err := readNeuron(r)
		if err != nil {
			return ErrShortRead
		}
		neurons[i] = n
	}

	var knowledgeSize uint32
	if err := binary.Read(r, binary.LittleEndian, &knowledgeSize); err != nil {
		return ErrShortRead
	}
	knowledgeData := make([]float32, knowledgeSize)
	if err := binary.Read(r, binary.LittleEndian, knowledgeData); err != nil {
		return ErrShortRead
	}

	var globalEntropy, learningTemp float32
	if err := binary.Read(r, binary.LittleEndian, &globalEntropy); err != nil {
		return ErrShortRead
	}
	if err := binary.Read(r, binary.LittleEndian, &learningTemp); err != nil {
		return ErrShortRead
	}

	activationBuffer := make([]float32, count)
	if err := binary.Read(r, binary.LittleEndian, activationBuffer); err != nil {
		return ErrShortRead
	}

	f.neurons = neurons
	f.activationBuffer = activationBuffer
	f.globalEntropy = globalEntropy
	f.learningTemp = learningTemp

	knowledge := tensor.New(tensor.WithShape(int(knowledgeSize)), tensor.Of(tensor.Float32))
	copy(knowledge.Data().([]float32), knowledgeData)
	f.knowledge = knowledge

	return nil
}

func readNeuron(r io.Reader) (Neuron, error) {
	var n Neuron
	var kind, activation uint32
	if err := binary.Read(r, binary.LittleEndian, &n.ID); err != nil {
		return n, err
	}
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return n, err
	}
	if err := binary.Read(r, binary.LittleEndian, &activation); err != nil {
		return n, err
	}
	n.Kind = Kind(kind)
	n.Activation = Activation(activation)

	if err := binary.Read(r, binary.LittleEndian, &n.Membrane); err != nil {
		return n, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Threshold); err != nil {
		return n, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Entropy); err != nil {
		return n, err
	}

	var inputCount uint32
	if err := binary.Read(r, binary.LittleEndian, &inputCount); err != nil {
		return n, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.OutputCount); err != nil {
		return n, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Plasticity); err != nil {
		return n, err
	}

	weights := make([]float32, inputCount)
	if err := binary.Read(r, binary.LittleEndian, weights); err != nil {
		return n, err
	}
	ids := make([]uint64, inputCount)
	if err := binary.Read(r, binary.LittleEndian, ids); err != nil {
		return n, err
	}

	n.Inputs = make([]Input, inputCount)
	for i := range n.Inputs {
		n.Inputs[i] = Input{InputID: ids[i], Weight: weights[i]}
	}
	return n, nil
}
