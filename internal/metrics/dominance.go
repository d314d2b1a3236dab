// Package metrics implements the dominance/efficiency/coherence/
// adaptability snapshot stream, the anomaly z-score detector, and the
// regression detector from spec.md §4.7.
package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const dominanceRingCapacity = 1024
const trendWindow = 64

// Snapshot is one dominance observation, spec.md §3.
type Snapshot struct {
	Dominance    float64
	Efficiency   float64
	Coherence    float64
	Adaptability float64
	Fitness      float64
	Loss         float64
	Entropy      float64
	Step         uint64
	Generation   uint64
	Timestamp    time.Time
}

// Trend holds least-squares slopes of the four derived quantities over
// the most recent trend window.
type Trend struct {
	Dominance    float64
	Efficiency   float64
	Coherence    float64
	Adaptability float64
}

// Inputs is the raw observation Dominance.Update derives a Snapshot
// from.
type Inputs struct {
	Fitness    float64
	Loss       float64
	Entropy    float64
	BatchMS    float64
	MemMB      float64
	Step       uint64
	Generation uint64
}

// Dominance is a fixed-capacity ring buffer of snapshots plus the last
// stress-robustness value reported by the stress/adversarial modules.
type Dominance struct {
	ring          []Snapshot
	head          int
	count         int
	prevFitness   float64
	hasPrev       bool
	lastRobustness float64
}

// NewDominance constructs an empty dominance tracker.
func NewDominance() *Dominance {
	return &Dominance{ring: make([]Snapshot, dominanceRingCapacity)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Update computes the derived quantities from in and prev's fitness,
// appends the resulting snapshot to the ring (evicting the oldest entry
// once full), and returns it.
//
//	dominance    = max(0, fitness*(1-loss))
//	efficiency   = min(1, 1/(1 + batch_ms/1000 + mem_mb/4096))
//	coherence    = clamp(1 - |0.5 - entropy|, 0, 1)
//	adaptability = clamp(fitness - prev.fitness, 0, 1)
func (d *Dominance) Update(in Inputs) Snapshot {
	dominance := math.Max(0, in.Fitness*(1-in.Loss))
	efficiency := math.Min(1, 1/(1+in.BatchMS/1000+in.MemMB/4096))
	coherence := clamp(1-math.Abs(0.5-in.Entropy), 0, 1)

	var adaptability float64
	if d.hasPrev {
		adaptability = clamp(in.Fitness-d.prevFitness, 0, 1)
	}
	d.prevFitness = in.Fitness
	d.hasPrev = true

	snap := Snapshot{
		Dominance:    dominance,
		Efficiency:   efficiency,
		Coherence:    coherence,
		Adaptability: adaptability,
		Fitness:      in.Fitness,
		Loss:         in.Loss,
		Entropy:      in.Entropy,
		Step:         in.Step,
		Generation:   in.Generation,
		Timestamp:    time.Now(),
	}

	d.ring[d.head] = snap
	d.head = (d.head + 1) % dominanceRingCapacity
	if d.count < dominanceRingCapacity {
		d.count++
	}
	return snap
}

// Latest returns the most recently appended snapshot, or the zero value
// if none has been recorded yet.
func (d *Dominance) Latest() Snapshot {
	if d.count == 0 {
		return Snapshot{}
	}
	idx := (d.head - 1 + dominanceRingCapacity) % dominanceRingCapacity
	return d.ring[idx]
}

// SetLastRobustness records the most recent stress/adversarial
// robustness contribution, consumed by the fitness ledger.
func (d *Dominance) SetLastRobustness(r float64) { d.lastRobustness = r }

// LastRobustness returns the last recorded robustness value.
func (d *Dominance) LastRobustness() float64 { return d.lastRobustness }

// orderedSince returns the last n snapshots (oldest first) in
// chronological order.
func (d *Dominance) orderedSince(n int) []Snapshot {
	if n > d.count {
		n = d.count
	}
	out := make([]Snapshot, n)
	start := (d.head - n + dominanceRingCapacity) % dominanceRingCapacity
	for i := 0; i < n; i++ {
		out[i] = d.ring[(start+i)%dominanceRingCapacity]
	}
	return out
}

// Trend computes the least-squares slope of each derived quantity vs.
// index over the most recent min(count, 64) snapshots.
func (d *Dominance) Trend() Trend {
	window := trendWindow
	if d.count < window {
		window = d.count
	}
	if window < 2 {
		return Trend{}
	}
	snaps := d.orderedSince(window)

	xs := make([]float64, window)
	dominances := make([]float64, window)
	efficiencies := make([]float64, window)
	coherences := make([]float64, window)
	adaptabilities := make([]float64, window)
	for i, s := range snaps {
		xs[i] = float64(i)
		dominances[i] = s.Dominance
		efficiencies[i] = s.Efficiency
		coherences[i] = s.Coherence
		adaptabilities[i] = s.Adaptability
	}

	slope := func(ys []float64) float64 {
		_, s := stat.LinearRegression(xs, ys, nil, false)
		return s
	}

	return Trend{
		Dominance:    slope(dominances),
		Efficiency:   slope(efficiencies),
		Coherence:    slope(coherences),
		Adaptability: slope(adaptabilities),
	}
}

// Count returns how many snapshots are currently retained.
func (d *Dominance) Count() int { return d.count }
