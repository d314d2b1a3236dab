// Package orchestrator implements the evolution loop orchestrator from
// spec.md §4.13: the cycle sequencer that drives every other subsystem,
// plus the runtime-config adaptive interval tuner, the world-model
// buffer, episodic memory, and introspection supplements from
// SPEC_FULL.md §§4.19/5.
package orchestrator

import "gonum.org/v1/gonum/stat"

const (
	minEvolutionInterval = 1
	maxEvolutionInterval = 20

	minSaveInterval = 20
	maxSaveInterval = 500

	minSelfTestInterval = 100
	maxSelfTestInterval = 2000

	minStressInterval = 10
	maxStressInterval = 200

	runtimeConfigWindow = 16
)

// RuntimeConfig adapts the orchestrator's interval knobs from a slope
// heuristic over recent loss/fitness samples, spec.md §4.13's closing
// paragraph.
type RuntimeConfig struct {
	evolutionInterval int
	saveInterval      int
	selfTestInterval  int
	stressInterval    int

	lossHistory    []float64
	fitnessHistory []float64
}

// NewRuntimeConfig constructs a runtime config at the spec's baseline
// intervals.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		evolutionInterval: 5,
		saveInterval:      50,
		selfTestInterval:  200,
		stressInterval:    25,
	}
}

// Override lets an initial "set runtime config" hook replace the
// baseline intervals before the loop starts, per spec.md §6.
func (r *RuntimeConfig) Override(evolutionInterval, saveInterval, selfTestInterval, stressInterval int) {
	r.evolutionInterval = clampInt(evolutionInterval, minEvolutionInterval, maxEvolutionInterval)
	r.saveInterval = clampInt(saveInterval, minSaveInterval, maxSaveInterval)
	r.selfTestInterval = clampInt(selfTestInterval, minSelfTestInterval, maxSelfTestInterval)
	r.stressInterval = clampInt(stressInterval, minStressInterval, maxStressInterval)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pushWindow(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > runtimeConfigWindow {
		history = history[len(history)-runtimeConfigWindow:]
	}
	return history
}

func slope(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	xs := make([]float64, len(vals))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, b := stat.LinearRegression(xs, vals, nil, false)
	return b
}

// Update pushes one (loss, fitness) sample and re-derives every
// interval from the slope of the retained window: improving fitness
// (positive slope) widens intervals (less frequent heavy work is
// needed); worsening loss (positive slope, i.e. rising loss) narrows
// them so the self-healing/stress/checkpoint machinery engages sooner.
func (r *RuntimeConfig) Update(loss, fitness float64) {
	r.lossHistory = pushWindow(r.lossHistory, loss)
	r.fitnessHistory = pushWindow(r.fitnessHistory, fitness)

	lossSlope := slope(r.lossHistory)
	fitnessSlope := slope(r.fitnessHistory)

	// Fitness improving and loss falling: things are going well, relax
	// cadence. Otherwise tighten it.
	healthy := fitnessSlope > 0 && lossSlope <= 0
	degrading := fitnessSlope < 0 || lossSlope > 0

	switch {
	case healthy:
		r.evolutionInterval = clampInt(r.evolutionInterval+1, minEvolutionInterval, maxEvolutionInterval)
		r.saveInterval = clampInt(r.saveInterval+5, minSaveInterval, maxSaveInterval)
		r.selfTestInterval = clampInt(r.selfTestInterval+20, minSelfTestInterval, maxSelfTestInterval)
		r.stressInterval = clampInt(r.stressInterval+2, minStressInterval, maxStressInterval)
	case degrading:
		r.evolutionInterval = clampInt(r.evolutionInterval-1, minEvolutionInterval, maxEvolutionInterval)
		r.saveInterval = clampInt(r.saveInterval-10, minSaveInterval, maxSaveInterval)
		r.selfTestInterval = clampInt(r.selfTestInterval-40, minSelfTestInterval, maxSelfTestInterval)
		r.stressInterval = clampInt(r.stressInterval-4, minStressInterval, maxStressInterval)
	}
}

func (r *RuntimeConfig) EvolutionInterval() int { return r.evolutionInterval }
func (r *RuntimeConfig) SaveInterval() int      { return r.saveInterval }
func (r *RuntimeConfig) SelfTestInterval() int  { return r.selfTestInterval }
func (r *RuntimeConfig) StressInterval() int    { return r.stressInterval }
