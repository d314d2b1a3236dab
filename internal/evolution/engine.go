package evolution

// Engine wraps a Population with its fitness function and drives one
// generation at a time; the training pipeline (internal/training) calls
// Step once per evolution_step per spec.md §4.5.
type Engine struct {
	pop     *Population
	fitness FitnessFunc
}

// NewEngine constructs an engine around a fresh population.
func NewEngine(cfg Config, fitness FitnessFunc) *Engine {
	return &Engine{pop: New(cfg), fitness: fitness}
}

// Population exposes the underlying population for read access (best
// genome, generation, variance) by collaborators such as the dominance
// metrics and fitness ledger.
func (e *Engine) Population() *Population { return e.pop }

// Step evaluates the current population, reproduces the next
// generation, re-evaluates it so metrics are fresh, and adapts the
// mutation rate — the full body of spec.md §4.5's evolution_step minus
// the every-50-generations substrate.evolve call, which the training
// pipeline issues itself since it alone holds the substrate reference.
func (e *Engine) Step() {
	e.pop.Evaluate(e.fitness)
	e.pop.Reproduce()
	e.pop.Evaluate(e.fitness)
	e.pop.AdaptMutationRate()
}
