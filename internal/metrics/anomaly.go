package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

const (
	anomalyRingCapacity = 256
	anomalyMinSamples   = 16
	anomalyZThreshold   = 3.0
)

// StreamID identifies one of the five parallel anomaly streams, in the
// fixed check order spec.md §4.7/§9 requires for its last-writer-wins
// semantics.
type StreamID int

const (
	StreamLoss StreamID = iota
	StreamFitness
	StreamEntropy
	StreamLatency
	StreamMemory
	streamCount
)

func (s StreamID) String() string {
	switch s {
	case StreamLoss:
		return "loss"
	case StreamFitness:
		return "fitness"
	case StreamEntropy:
		return "entropy"
	case StreamLatency:
		return "latency"
	case StreamMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Event describes the single anomaly recorded on the most recent
// Update call, if any.
type Event struct {
	Detected    bool
	MetricID    StreamID
	Value       float64
	Mean        float64
	ZScore      float64
	Description string
}

type ring struct {
	buf   [anomalyRingCapacity]float64
	head  int
	count int
}

func (r *ring) push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % anomalyRingCapacity
	if r.count < anomalyRingCapacity {
		r.count++
	}
}

func (r *ring) values() []float64 {
	out := make([]float64, r.count)
	start := (r.head - r.count + anomalyRingCapacity) % anomalyRingCapacity
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%anomalyRingCapacity]
	}
	return out
}

// Observation is one update's worth of the five parallel streams.
type Observation struct {
	Loss    float64
	Fitness float64
	Entropy float64
	Latency float64
	Memory  float64
}

// Anomaly owns five parallel ring buffers and flags the most recent
// point whose z-score crosses the threshold, in fixed stream order
// (last writer among the five wins — spec.md §9).
type Anomaly struct {
	rings [streamCount]ring
	last  Event
}

// NewAnomaly constructs an empty anomaly detector.
func NewAnomaly() *Anomaly { return &Anomaly{} }

func (a *Anomaly) valueFor(obs Observation, id StreamID) float64 {
	switch id {
	case StreamLoss:
		return obs.Loss
	case StreamFitness:
		return obs.Fitness
	case StreamEntropy:
		return obs.Entropy
	case StreamLatency:
		return obs.Latency
	default:
		return obs.Memory
	}
}

// Update pushes one observation into each of the five streams and
// recomputes the single anomaly event for this call. Fewer than 16
// samples in a stream means that stream is skipped (spec.md §7's
// "insufficient-data" local recovery).
func (a *Anomaly) Update(obs Observation) Event {
	a.last = Event{}

	for id := StreamID(0); id < streamCount; id++ {
		v := a.valueFor(obs, id)
		a.rings[id].push(v)

		r := &a.rings[id]
		if r.count < anomalyMinSamples {
			continue
		}

		vals := r.values()
		mean, std := stat.MeanStdDev(vals, nil)
		var z float64
		if std >= 1e-20 {
			z = (v - mean) / std
			if z < 0 {
				z = -z
			}
		}

		if z >= anomalyZThreshold {
			a.last = Event{
				Detected:    true,
				MetricID:    id,
				Value:       v,
				Mean:        mean,
				ZScore:      z,
				Description: fmt.Sprintf("%s anomaly: value=%.4f mean=%.4f z=%.2f", id, v, mean, z),
			}
		}
	}

	return a.last
}

// Last returns the event computed by the most recent Update call.
func (a *Anomaly) Last() Event { return a.last }

// Reset clears every stream's history. Self-healing's soft repair does
// not call it.
func (a *Anomaly) Reset() {
	for id := range a.rings {
		a.rings[id] = ring{}
	}
	a.last = Event{}
}
