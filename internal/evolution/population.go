package evolution

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"
	"gorgonia.org/vecf64"
)

// Config controls population construction and reproduction, per
// spec.md §4.4.
type Config struct {
	PopulationSize int
	GenomeSize     int
	TournamentSize int
	CrossoverRate  float64
	MutationRate   float64
	ElitismRate    float64
	TargetFitness  float64
	MaxGenerations uint64
	Seed           int64
}

// DefaultConfig mirrors spec.md §3's genome default (1000 genes) and
// reasonable GA defaults for the orchestrator's evolution step.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 64,
		GenomeSize:     1000,
		TournamentSize: 4,
		CrossoverRate:  0.7,
		MutationRate:   0.05,
		ElitismRate:    0.1,
		TargetFitness:  0.99,
		MaxGenerations: 10000,
		Seed:           1,
	}
}

const (
	minMutationRate = 0.001
	maxMutationRate = 0.5

	lowVarianceThreshold  = 0.01
	highVarianceThreshold = 0.1
)

// FitnessFunc scores a genome; higher is better.
type FitnessFunc func(genes []float64) float64

// Population is the fixed-capacity sequence of genomes described in
// spec.md §3, plus its best/average/variance and generation counter.
type Population struct {
	cfg Config
	rng *rand.Rand

	individuals []Genome
	nextID      uint64
	generation  uint64
	bestIndex   int

	best     float64
	mean     float64
	variance float64

	mutationRate float64

	// constant bound slices reused by the vectorized gene clamp
	geneFloor []float64
	geneCeil  []float64
}

// New constructs an initial random population.
func New(cfg Config) *Population {
	rng := rand.New(rand.NewSource(cfg.Seed))
	p := &Population{
		cfg:          cfg,
		rng:          rng,
		individuals:  make([]Genome, cfg.PopulationSize),
		mutationRate: cfg.MutationRate,
		geneFloor:    make([]float64, cfg.GenomeSize),
		geneCeil:     make([]float64, cfg.GenomeSize),
	}
	for i := 0; i < cfg.GenomeSize; i++ {
		p.geneFloor[i] = geneMin
		p.geneCeil[i] = geneMax
	}
	for i := range p.individuals {
		p.individuals[i] = newGenome(p.nextID, cfg.GenomeSize, rng)
		p.nextID++
	}
	return p
}

// Generation returns the current generation counter.
func (p *Population) Generation() uint64 { return p.generation }

// BestFitness returns the highest fitness seen after the last Evaluate.
func (p *Population) BestFitness() float64 { return p.best }

// MeanFitness returns the mean fitness after the last Evaluate.
func (p *Population) MeanFitness() float64 { return p.mean }

// Variance returns the fitness variance after the last Evaluate.
func (p *Population) Variance() float64 { return p.variance }

// MutationRate returns the current adaptive mutation rate.
func (p *Population) MutationRate() float64 { return p.mutationRate }

// Best returns a copy of the fittest individual.
func (p *Population) Best() Genome {
	return cloneGenome(&p.individuals[p.bestIndex])
}

// Evaluate scores every un-evaluated individual and refreshes
// best/mean/variance and the best-pointer, per spec.md §4.4.
func (p *Population) Evaluate(fn FitnessFunc) {
	for i := range p.individuals {
		g := &p.individuals[i]
		if !g.Evaluated {
			g.Fitness = fn(g.Genes)
			g.Evaluated = true
		}
	}
	p.refreshStats()
}

func (p *Population) refreshStats() {
	fitnesses := make([]float64, len(p.individuals))
	best := 0
	for i := range p.individuals {
		fitnesses[i] = p.individuals[i].Fitness
		if p.individuals[i].Fitness > p.individuals[best].Fitness {
			best = i
		}
	}
	p.bestIndex = best
	p.best = p.individuals[best].Fitness
	p.mean, p.variance = stat.MeanVariance(fitnesses, nil)
}

// tournamentSelect samples TournamentSize random individuals and
// returns the index of the one with the highest fitness.
func (p *Population) tournamentSelect() int {
	best := p.rng.Intn(len(p.individuals))
	for i := 1; i < p.cfg.TournamentSize; i++ {
		c := p.rng.Intn(len(p.individuals))
		if p.individuals[c].Fitness > p.individuals[best].Fitness {
			best = c
		}
	}
	return best
}

func (p *Population) crossover(a, b *Genome) Genome {
	point := p.rng.Intn(len(a.Genes))
	genes := make([]float64, len(a.Genes))
	copy(genes[:point], a.Genes[:point])
	copy(genes[point:], b.Genes[point:])
	child := Genome{ID: p.nextID, Genes: genes, Parent1: a.ID, Parent2: b.ID}
	p.nextID++
	return child
}

func (p *Population) mutate(g *Genome) {
	for i := range g.Genes {
		if p.rng.Float64() < p.mutationRate {
			g.Genes[i] += p.rng.Float64() - 0.5
		}
	}
	// vectorized clamp to [geneMin, geneMax]
	vecf64.Max(g.Genes, p.geneFloor)
	vecf64.Min(g.Genes, p.geneCeil)
}

// Reproduce builds the next generation: the top elitism_rate·pop_size
// individuals survive as elites (age+1); the rest are filled by
// tournament-selecting two parents, crossing over with probability
// CrossoverRate (else cloning parent 1), then mutating. The evolved
// population replaces the current one and the generation counter
// advances.
func (p *Population) Reproduce() {
	ranked := make([]int, len(p.individuals))
	for i := range ranked {
		ranked[i] = i
	}
	// simple selection sort by fitness descending; population sizes are
	// small (tens to low hundreds), so O(n^2) here is not a concern.
	for i := 0; i < len(ranked); i++ {
		max := i
		for j := i + 1; j < len(ranked); j++ {
			if p.individuals[ranked[j]].Fitness > p.individuals[ranked[max]].Fitness {
				max = j
			}
		}
		ranked[i], ranked[max] = ranked[max], ranked[i]
	}

	eliteCount := int(p.cfg.ElitismRate * float64(len(p.individuals)))
	next := make([]Genome, 0, len(p.individuals))

	for i := 0; i < eliteCount; i++ {
		elite := cloneGenome(&p.individuals[ranked[i]])
		elite.Age++
		next = append(next, elite)
	}

	for len(next) < len(p.individuals) {
		parent1 := &p.individuals[p.tournamentSelect()]
		parent2 := &p.individuals[p.tournamentSelect()]

		var child Genome
		if p.rng.Float64() < p.cfg.CrossoverRate {
			child = p.crossover(parent1, parent2)
		} else {
			child = cloneGenome(parent1)
			child.ID = p.nextID
			child.Parent1 = parent1.ID
			child.Parent2 = parent1.ID
			p.nextID++
		}
		child.Age = 0
		child.Evaluated = false
		p.mutate(&child)
		next = append(next, child)
	}

	p.individuals = next
	p.generation++
}

// AdaptMutationRate implements spec.md §4.4's evolve_algorithm: raise
// mutation rate ×1.1 under low diversity, lower it ×0.9 under high
// diversity, clamped to [0.001, 0.5].
func (p *Population) AdaptMutationRate() {
	switch {
	case p.variance < lowVarianceThreshold:
		p.mutationRate *= 1.1
	case p.variance > highVarianceThreshold:
		p.mutationRate *= 0.9
	}
	if p.mutationRate < minMutationRate {
		p.mutationRate = minMutationRate
	}
	if p.mutationRate > maxMutationRate {
		p.mutationRate = maxMutationRate
	}
}

// Terminated reports whether the termination condition from spec.md
// §4.4 holds: best_fitness >= target or generation >= max_generations.
func (p *Population) Terminated() bool {
	return p.best >= p.cfg.TargetFitness || p.generation >= p.cfg.MaxGenerations
}
