package metrics

import "gonum.org/v1/gonum/stat"

const (
	regressionRingCapacity = 512
	regressionMinSamples   = 16
	regressionDeltaThreshold = 0.15
	sustainedDegenerationRun = 5
)

// RegressionKind identifies which of the three graded events fired.
type RegressionKind int

const (
	RegressionNone RegressionKind = iota
	RegressionFitnessDrop
	RegressionLossRise
	RegressionDominanceDrop
)

// RegressionEvent is the outcome of one Regression.Update call.
type RegressionEvent struct {
	Fired               bool
	Kind                RegressionKind
	Severity            float64
	DegenerationDetected bool
}

type regressionRing struct {
	buf   [regressionRingCapacity]float64
	head  int
	count int
}

func (r *regressionRing) push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % regressionRingCapacity
	if r.count < regressionRingCapacity {
		r.count++
	}
}

func (r *regressionRing) values() []float64 {
	out := make([]float64, r.count)
	start := (r.head - r.count + regressionRingCapacity) % regressionRingCapacity
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%regressionRingCapacity]
	}
	return out
}

func halfMeans(vals []float64) (older, recent float64) {
	mid := len(vals) / 2
	older = stat.Mean(vals[:mid], nil)
	recent = stat.Mean(vals[mid:], nil)
	return
}

// Regression owns its own parallel ring buffers over fitness/loss/
// dominance and the graded/sustained-degeneration escalation state,
// spec.md §4.7.
type Regression struct {
	fitness    regressionRing
	loss       regressionRing
	dominance  regressionRing

	consecutive int
	degeneration bool
}

// NewRegression constructs an empty regression detector.
func NewRegression() *Regression { return &Regression{} }

func severity(delta float64) float64 {
	s := delta / 0.5
	return clamp(s, 0, 1)
}

// Update pushes one (fitness, loss, dominance) triple and evaluates the
// graded regression rule: a regression fires when the baseline (older)
// half mean exceeds the recent half mean by more than 0.15 for fitness
// or dominance, or when the recent half exceeds the baseline by more
// than 0.15 for loss. Five consecutive firings of any kind escalate to
// sustained degeneration.
func (r *Regression) Update(fitness, loss, dominance float64) RegressionEvent {
	r.fitness.push(fitness)
	r.loss.push(loss)
	r.dominance.push(dominance)

	if r.fitness.count < regressionMinSamples {
		return RegressionEvent{}
	}

	fOlder, fRecent := halfMeans(r.fitness.values())
	lOlder, lRecent := halfMeans(r.loss.values())
	dOlder, dRecent := halfMeans(r.dominance.values())

	type candidate struct {
		kind  RegressionKind
		delta float64
	}
	candidates := []candidate{
		{RegressionFitnessDrop, fOlder - fRecent},
		{RegressionLossRise, lRecent - lOlder},
		{RegressionDominanceDrop, dOlder - dRecent},
	}

	var fired *candidate
	for i := range candidates {
		if candidates[i].delta > regressionDeltaThreshold {
			if fired == nil || candidates[i].delta > fired.delta {
				fired = &candidates[i]
			}
		}
	}

	if fired == nil {
		r.consecutive = 0
		return RegressionEvent{}
	}

	r.consecutive++
	ev := RegressionEvent{
		Fired:    true,
		Kind:     fired.kind,
		Severity: severity(fired.delta),
	}
	if r.consecutive >= sustainedDegenerationRun {
		ev.Severity = 1.0
		ev.DegenerationDetected = true
		r.degeneration = true
	}
	return ev
}

// DegenerationDetected reports whether the detector has escalated to
// sustained degeneration and not yet been reset.
func (r *Regression) DegenerationDetected() bool { return r.degeneration }

// Reset clears only the current flags (consecutive streak and
// degeneration state), not the underlying history — spec.md §4.7.
func (r *Regression) Reset() {
	r.consecutive = 0
	r.degeneration = false
}
