// Package evolution implements the genetic algorithm from spec.md §4.4:
// a fixed population of fixed-size genomes, tournament selection,
// single-point crossover, Gaussian mutation, elitism, and an adaptive
// mutation rate.
package evolution

import (
	"math/rand"
)

const (
	geneMin = -2.0
	geneMax = 2.0
)

// Genome is a fixed-size byte-per-gene-group sequence (stored as f64
// genes per spec.md §3) with identity and fitness bookkeeping.
type Genome struct {
	ID             uint64
	Genes          []float64
	Fitness        float64
	AdjustedFitness float64
	Age            uint32
	Parent1        uint64
	Parent2        uint64
	Evaluated      bool
}

func newGenome(id uint64, size int, rng *rand.Rand) Genome {
	genes := make([]float64, size)
	for i := range genes {
		genes[i] = rng.Float64()*(geneMax-geneMin) + geneMin
	}
	return Genome{ID: id, Genes: genes}
}

func cloneGenome(src *Genome) Genome {
	genes := make([]float64, len(src.Genes))
	copy(genes, src.Genes)
	return Genome{
		ID:        src.ID,
		Genes:     genes,
		Fitness:   src.Fitness,
		Age:       src.Age,
		Parent1:   src.Parent1,
		Parent2:   src.Parent2,
		Evaluated: src.Evaluated,
	}
}
