package optimization

import (
	"context"
)

// BatchEvaluator is the contract between the optimizer core and the parallel
// evaluation backend. The core makes exactly one Evaluate call per generation,
// passing the whole trial population at once so the backend can evaluate all
// candidates concurrently.
//
// The batch is column-major: cols[d][i] is coordinate d of candidate i, so each
// cols[d] is one equal-length sequence per parameter dimension. The i-th
// candidate vector is (cols[0][i], ..., cols[dim-1][i]). Evaluate must return
// one energy per candidate, index-aligned with the input.
type BatchEvaluator interface {
	Evaluate(ctx context.Context, cols [][]float64, args ...interface{}) ([]float64, error)
}

// BatchFunc adapts an ordinary function to the BatchEvaluator interface.
type BatchFunc func(ctx context.Context, cols [][]float64, args ...interface{}) ([]float64, error)

// Evaluate calls f.
func (f BatchFunc) Evaluate(ctx context.Context, cols [][]float64, args ...interface{}) ([]float64, error) {
	return f(ctx, cols, args...)
}

// ObjectiveFunc is a scalar objective evaluated one candidate at a time.
// Backends that own a worker pool or remote executor wrap one of these into a
// BatchEvaluator.
type ObjectiveFunc func(x []float64, args ...interface{}) (float64, error)

// Solution represents a point in parameter space and its objective value.
type Solution struct {
	Parameters []float64
	Value      float64
}

// Event is the fixed-field record handed to callbacks and the early-stop
// predicate after each generation. Observers are free to ignore fields they
// have no use for.
type Event struct {
	// Step is the generation index, starting at 1 for the first generation
	// after initialization.
	Step int
	// Parameters is the best candidate found so far, in real parameter space.
	Parameters []float64
	// Cost is the energy of the best candidate.
	Cost float64
	// Convergence is the current value of the stopping statistic. It is only
	// meaningful to the early-stop predicate; plain callbacks may ignore it.
	Convergence float64
}

// Callback observes the run after each generation. Returning halt=true stops
// the run with ReasonEarlyStopped. An error aborts the run immediately.
type Callback func(ev Event) (halt bool, err error)

// EarlyStopFunc decides, independently of any callbacks, whether the run
// should stop before convergence. It receives the same event record, including
// the convergence value.
type EarlyStopFunc func(ev Event) (halt bool, err error)

// TerminationReason describes why an optimization run ended.
type TerminationReason string

const (
	// ReasonConverged means the convergence statistic crossed its threshold.
	ReasonConverged TerminationReason = "converged"
	// ReasonMaxIterations means the generation ceiling was reached.
	ReasonMaxIterations TerminationReason = "maxiter"
	// ReasonEarlyStopped means a callback or the early-stop predicate
	// requested the halt.
	ReasonEarlyStopped TerminationReason = "earlystop"
)

// GenerationStat is one history entry recorded after each generation.
type GenerationStat struct {
	Generation  int
	BestValue   float64
	Convergence float64
	// Mutation is the differential weight used this generation. It varies
	// between generations when dithering is configured.
	Mutation float64
}

// Result contains the outcome of an optimization run.
type Result struct {
	BestSolution *Solution
	// Generations is the number of generations executed, not counting the
	// initialization pass.
	Generations int
	// Evaluations is the total number of objective evaluations consumed,
	// including initialization and polishing.
	Evaluations int
	Reason      TerminationReason
	// Polished reports whether the local refinement step ran and improved on
	// the population's best candidate.
	Polished bool
}

// Optimizer is the interface the server drives. Implementations run a whole
// optimization to completion in Optimize and expose progress for polling.
type Optimizer interface {
	// Optimize runs the optimization process until a terminal state.
	Optimize(ctx context.Context) (*Result, error)

	// BestSolution returns the best solution found so far.
	BestSolution() *Solution

	// History returns the per-generation statistics recorded so far.
	History() []GenerationStat

	// Stop requests a graceful stop of an in-flight run.
	Stop()
}
