// Package curriculum implements the adaptive task curriculum and task
// oracle from spec.md §4.6: difficulty that rises and falls with
// training performance, capped by the orchestrator's degradation mode,
// and templated task specs cycled across six task types.
package curriculum

import "fmt"

// TaskType is one of the six curriculum categories, per spec.md §3.
type TaskType int

const (
	Coding TaskType = iota
	Reasoning
	Planning
	Debugging
	Refactoring
	LongHorizon
	taskTypeCount
)

func (t TaskType) String() string {
	switch t {
	case Coding:
		return "coding"
	case Reasoning:
		return "reasoning"
	case Planning:
		return "planning"
	case Debugging:
		return "debugging"
	case Refactoring:
		return "refactoring"
	case LongHorizon:
		return "long_horizon"
	default:
		return "unknown"
	}
}

const (
	minDifficulty = 0
	maxDifficulty = 9

	performanceUpThreshold   = 0.1
	performanceDownThreshold = -0.1
)

// specTemplates mirrors a template-per-type table; %d is substituted
// with the effective difficulty.
var specTemplates = [...]string{
	"write a function satisfying difficulty-%d constraints",
	"reason step by step to a conclusion at difficulty %d",
	"produce a plan of difficulty %d with ordered steps",
	"locate and fix a defect at difficulty %d",
	"refactor a routine to difficulty-%d quality bars",
	"complete a long-horizon task spanning difficulty %d sub-goals",
}

// Task is one synthesized curriculum task, spec.md §3.
type Task struct {
	Type       TaskType
	Difficulty int
	Spec       string
	Timestamp  int64
}

// Curriculum tracks difficulty and degradation state; it is not
// goroutine-safe on its own — callers (the training pipeline) own it
// exclusively per spec.md §3's ownership model.
type Curriculum struct {
	difficulty      int
	degradationMode int
	cursor          int
}

// New constructs a curriculum starting at difficulty 0.
func New() *Curriculum {
	return &Curriculum{}
}

// Difficulty returns the raw (uncapped) current difficulty.
func (c *Curriculum) Difficulty() int { return c.difficulty }

// SetDegradationMode updates the cap driver; values outside {0,1,2}
// are clamped to the nearest valid mode.
func (c *Curriculum) SetDegradationMode(mode int) {
	if mode < 0 {
		mode = 0
	}
	if mode > 2 {
		mode = 2
	}
	c.degradationMode = mode
}

// degradationCap returns 9/5/2 for mode 0/1/2.
func (c *Curriculum) degradationCap() int {
	switch c.degradationMode {
	case 1:
		return 5
	case 2:
		return 2
	default:
		return maxDifficulty
	}
}

// EffectiveDifficulty is min(current, cap), per spec.md §4.6.
func (c *Curriculum) EffectiveDifficulty() int {
	degCap := c.degradationCap()
	if c.difficulty < degCap {
		return c.difficulty
	}
	return degCap
}

// UpdateFromPerformance applies spec.md §4.6's update rule: a
// performance delta greater than +0.1 raises difficulty by one, less
// than -0.1 lowers it by one, otherwise difficulty is unchanged.
// Difficulty stays within [0, 9] throughout.
func (c *Curriculum) UpdateFromPerformance(delta float64) {
	switch {
	case delta > performanceUpThreshold:
		c.difficulty++
	case delta < performanceDownThreshold:
		c.difficulty--
	}
	if c.difficulty < minDifficulty {
		c.difficulty = minDifficulty
	}
	if c.difficulty > maxDifficulty {
		c.difficulty = maxDifficulty
	}
}

// NextTask cycles through the six task types and synthesizes a task at
// the current effective difficulty.
func (c *Curriculum) NextTask(timestamp int64) Task {
	t := TaskType(c.cursor % int(taskTypeCount))
	c.cursor++
	return c.SynthesizeTask(t, timestamp)
}

// SynthesizeTask builds a task of the given type at the curriculum's
// current effective difficulty.
func (c *Curriculum) SynthesizeTask(t TaskType, timestamp int64) Task {
	difficulty := c.EffectiveDifficulty()
	spec := fmt.Sprintf(specTemplates[t], difficulty)
	if len(spec) > 256 {
		spec = spec[:256]
	}
	return Task{Type: t, Difficulty: difficulty, Spec: spec, Timestamp: timestamp}
}
