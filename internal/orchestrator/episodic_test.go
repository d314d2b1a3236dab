package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpisodicMemoryRecordAccumulates(t *testing.T) {
	m := NewEpisodicMemory()
	m.Record(Episode{Step: 1, Utility: 0.1})
	m.Record(Episode{Step: 2, Utility: 0.9})

	assert.Equal(t, 2, m.Len())
}

func TestConsolidateMarksAboveThresholdOnly(t *testing.T) {
	m := NewEpisodicMemory()
	m.Record(Episode{Step: 1, Utility: 0.1})
	m.Record(Episode{Step: 2, Utility: 0.9})
	m.Record(Episode{Step: 3, Utility: 0.31})

	result := m.Consolidate()

	assert.Equal(t, 2, result.Consolidated)
	assert.False(t, m.episodes[0].Consolidated)
	assert.True(t, m.episodes[1].Consolidated)
	assert.True(t, m.episodes[2].Consolidated)
}

func TestConsolidateTalliesSemanticAndProceduralTags(t *testing.T) {
	m := NewEpisodicMemory()
	m.Record(Episode{Step: 1, Utility: 0.8, Tags: []string{"sem:color", "proc:grasp"}})
	m.Record(Episode{Step: 2, Utility: 0.5, Tags: []string{"sem:shape"}})

	result := m.Consolidate()

	assert.Equal(t, 2, result.Consolidated)
	assert.Equal(t, 2, result.Semantic)
	assert.Equal(t, 1, result.Procedural)
}

func TestConsolidateIsIdempotentForAlreadyConsolidatedEpisodes(t *testing.T) {
	m := NewEpisodicMemory()
	m.Record(Episode{Step: 1, Utility: 0.8, Tags: []string{"sem:color"}})

	first := m.Consolidate()
	second := m.Consolidate()

	assert.Equal(t, 1, first.Consolidated)
	assert.Equal(t, 0, second.Consolidated)
	assert.Equal(t, 1, m.ConsolidatedCount())
}
