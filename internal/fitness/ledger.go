// Package fitness implements the composite fitness ledger from spec.md
// §3/§4.9: a weighted blend of seven quality signals, best/worst
// tracking, and promote/demote (= rollback) triggers.
package fitness

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Weights sum to 1.0, per spec.md §3.
const (
	weightCorrectness      = 0.20
	weightRobustness       = 0.20
	weightEfficiency       = 0.15
	weightRecovery         = 0.15
	weightRegressionRate   = 0.15
	weightLearningVelocity = 0.10
	weightCoherence        = 0.05
)

// RegressionState is the subset of the regression detector's state the
// ledger needs to derive regression_rate, per spec.md §4.9.
type RegressionState struct {
	Fired               bool
	DegenerationDetected bool
}

// DominanceView is the subset of a dominance snapshot the ledger
// consumes to derive efficiency, coherence and learning_velocity.
type DominanceView struct {
	Efficiency   float64
	Coherence    float64
	Adaptability float64
}

// Composite is one update's resulting weighted score plus the raw
// signals that produced it.
type Composite struct {
	Correctness      float64
	Robustness       float64
	Efficiency       float64
	Recovery         float64
	RegressionRate   float64
	LearningVelocity float64
	Coherence        float64
	Score            float64
	Step             uint64
	Version          uint64
}

// Rollback is the narrow interface the ledger needs to promote the best
// known version.
type Rollback interface {
	RollbackToBest() error
}

// Ledger tracks the current composite plus the best and worst seen so
// far. best/worst start at -Inf/+Inf rather than 0/1 so that an actual
// composite of exactly 0 or 1 is never mistaken for "unset" (spec.md §9
// open question, resolved in DESIGN.md).
type Ledger struct {
	current Composite
	best    float64
	worst   float64
	rollback Rollback
}

// New constructs an empty ledger. rollback may be nil if PromoteBest
// will never be called (e.g. in isolated tests).
func New(rollback Rollback) *Ledger {
	return &Ledger{
		best:     math.Inf(-1),
		worst:    math.Inf(1),
		rollback: rollback,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Update derives the seven signals and recomputes the weighted
// composite:
//
//	regression_rate   = 1.0 none / 0.5 regression / 0.0 degeneration
//	recovery          = 1 / (1 + rollback_count)
//	learning_velocity = max(0, adaptability)
func (l *Ledger) Update(testPassRate, adversarialRobustness float64, step, version uint64, dominance DominanceView, regression RegressionState, rollbackCount uint64) Composite {
	regressionRate := 1.0
	switch {
	case regression.DegenerationDetected:
		regressionRate = 0.0
	case regression.Fired:
		regressionRate = 0.5
	}

	recovery := 1.0 / (1.0 + float64(rollbackCount))
	learningVelocity := math.Max(0, dominance.Adaptability)

	signals := [7]float64{
		clamp01(testPassRate),
		clamp01(adversarialRobustness),
		clamp01(dominance.Efficiency),
		clamp01(recovery),
		clamp01(regressionRate),
		clamp01(learningVelocity),
		clamp01(dominance.Coherence),
	}
	weights := [7]float64{
		weightCorrectness, weightRobustness, weightEfficiency, weightRecovery,
		weightRegressionRate, weightLearningVelocity, weightCoherence,
	}

	score := floats.Dot(signals[:], weights[:])
	score = clamp01(score)

	l.current = Composite{
		Correctness:      signals[0],
		Robustness:       signals[1],
		Efficiency:       signals[2],
		Recovery:         signals[3],
		RegressionRate:   signals[4],
		LearningVelocity: signals[5],
		Coherence:        signals[6],
		Score:            score,
		Step:             step,
		Version:          version,
	}

	if score > l.best {
		l.best = score
	}
	if score < l.worst {
		l.worst = score
	}

	return l.current
}

// Current returns the most recently computed composite.
func (l *Ledger) Current() Composite { return l.current }

// Best returns the highest composite ever recorded, or -Inf if Update
// has never been called.
func (l *Ledger) Best() float64 { return l.best }

// Worst returns the lowest composite ever recorded, or +Inf if Update
// has never been called.
func (l *Ledger) Worst() float64 { return l.worst }

// PromoteBest rolls the substrate back to its best-known lineage entry.
func (l *Ledger) PromoteBest() error {
	if l.rollback == nil {
		return nil
	}
	return l.rollback.RollbackToBest()
}
