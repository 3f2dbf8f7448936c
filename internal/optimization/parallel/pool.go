// Package parallel provides a worker-pool evaluation backend that satisfies
// the batched evaluator contract by fanning a scalar objective out over
// goroutines. The solver core never sees any of this; it only makes one
// batched call per generation.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/evolvehq/DEVO/internal/optimization"
)

// Pool evaluates batches of candidates concurrently with a fixed number of
// workers. A Pool is safe for reuse across generations and runs.
type Pool struct {
	objective optimization.ObjectiveFunc
	workers   int
	logger    *zap.Logger
}

// NewPool wraps a scalar objective in a concurrent batched evaluator.
// workers <= 0 means one worker per CPU. logger may be nil.
func NewPool(objective optimization.ObjectiveFunc, workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		objective: objective,
		workers:   workers,
		logger:    logger.Named("parallel"),
	}
}

// Evaluate implements optimization.BatchEvaluator. Energies are written to
// fixed slots so the result stays index-aligned with the batch regardless of
// completion order. The first worker error cancels the rest of the batch and
// is returned.
func (p *Pool) Evaluate(ctx context.Context, cols [][]float64, args ...interface{}) ([]float64, error) {
	const op = "Evaluate"

	if len(cols) == 0 {
		return nil, optimization.NewError(optimization.KindEvaluation, "empty batch").
			WithComponent("parallel").WithOperation(op)
	}
	n := len(cols[0])
	for d, col := range cols {
		if len(col) != n {
			return nil, optimization.NewErrorf(optimization.KindEvaluation,
				"ragged batch: dimension %d has %d entries, expected %d", d, len(col), n).
				WithComponent("parallel").WithOperation(op)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	energies := make([]float64, n)
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := p.workers
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			x := make([]float64, len(cols))
			for i := range jobs {
				for d := range cols {
					x[d] = cols[d][i]
				}
				v, err := p.objective(x, args...)
				if err != nil {
					fail(err)
					return
				}
				energies[i] = v
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			i = n
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		p.logger.Debug("batch evaluation failed", zap.Error(firstErr))
		return nil, optimization.WrapError(firstErr, optimization.KindEvaluation, "objective evaluation failed").
			WithComponent("parallel").WithOperation(op)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return energies, nil
}
