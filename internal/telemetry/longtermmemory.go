package telemetry

import (
	"encoding/json"
	"os"
)

// AwarenessMetrics, EthicsState, and ProgrammingState are fixed
// placeholder sub-objects: ethics learning and personality profiling
// are out of scope (spec.md §1), but the on-disk shape of
// raijin_state.json must still match spec.md §6 exactly, so these are
// persisted as documented zero-valued contracts rather than built
// subsystems.
type AwarenessMetrics struct {
	SelfModelAccuracy float64 `json:"self_model_accuracy"`
	IntrospectionDepth int    `json:"introspection_depth"`
}

type EthicsState struct {
	ValueScore float64 `json:"value_score"`
}

type ProgrammingState struct {
	SkillLevel float64 `json:"skill_level"`
}

// LongTermMemory is the data/raijin_state.json snapshot, spec.md §6.
type LongTermMemory struct {
	ConsciousnessLevel  float64          `json:"consciousness_level"`
	EvolutionGeneration uint64           `json:"evolution_generation"`
	TrainingStepCount   uint64           `json:"training_step_count"`
	Loss                float64          `json:"loss"`
	Fitness             float64          `json:"fitness"`
	Entropy             float64          `json:"entropy"`
	AwarenessMetrics    AwarenessMetrics `json:"awareness_metrics"`
	EthicsState         EthicsState      `json:"ethics_state"`
	ProgrammingState    ProgrammingState `json:"programming_state"`
}

// SaveLongTermMemory overwrites path with mem as indented JSON,
// flushed explicitly.
func SaveLongTermMemory(path string, mem LongTermMemory) error {
	raw, err := json.MarshalIndent(mem, "", "  ")
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.Write(raw); err != nil {
		return err
	}
	return file.Sync()
}

// LoadLongTermMemory reads a prior snapshot. A missing file yields the
// zero value rather than an error.
func LoadLongTermMemory(path string) (LongTermMemory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LongTermMemory{}, nil
		}
		return LongTermMemory{}, err
	}
	var mem LongTermMemory
	if err := json.Unmarshal(raw, &mem); err != nil {
		return LongTermMemory{}, err
	}
	return mem, nil
}
