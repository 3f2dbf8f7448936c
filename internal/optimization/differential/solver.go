package differential

import (
	"context"
	"math"
	"math/rand"
	randv2 "math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/evolvehq/DEVO/internal/optimization"
)

// Config is the configuration surface of the solver. Start from
// DefaultConfig: for fields whose zero value is meaningful (Tol,
// Recombination, Mutation, Polish, Disp) the solver takes the configured
// value as-is, while empty Strategy/Init and zero MaxIter/PopSize fall back
// to the defaults.
type Config struct {
	// Func is the batched evaluator. The solver calls it exactly once per
	// generation with the whole trial population.
	Func optimization.BatchEvaluator

	// Bounds holds one (low, high) pair per parameter.
	Bounds [][2]float64

	// X0 optionally seeds the initial population: its unit-cube encoding
	// overwrites candidate 0. Must match the bounds dimension.
	X0 []float64

	// Args are fixed extra arguments forwarded to every evaluator call.
	Args []interface{}

	// Strategy names one of the ten mutation/crossover combinations,
	// e.g. "best1bin".
	Strategy string

	// MaxIter is the generation ceiling.
	MaxIter int

	// PopSize is the population multiplier: the population holds
	// PopSize * dimension candidates.
	PopSize int

	// Tol scales the convergence statistic; larger values stop earlier.
	Tol float64

	// Mutation is the differential weight F. When the two entries differ the
	// solver dithers: each generation draws a fresh F uniformly from
	// [Mutation[0], Mutation[1]]. Both endpoints must lie in [0, 2]. The zero
	// value means a fixed F = 0, not "use the default"; DefaultConfig carries
	// the canonical (0.5, 1) range.
	Mutation [2]float64

	// Recombination is the crossover probability CR, in [0, 1].
	Recombination float64

	// Seed makes runs reproducible. Ignored when Rand is set; when both are
	// zero the solver seeds itself from the clock.
	Seed int64

	// Rand optionally supplies a caller-owned generator. The solver advances
	// it for the duration of the run; sharing it with concurrent users breaks
	// reproducibility.
	Rand *rand.Rand

	// Callbacks are invoked after every generation. Any of them may halt the
	// run.
	Callbacks []optimization.Callback

	// EarlyStop, if set, is checked after the callbacks each generation and
	// additionally receives the convergence value.
	EarlyStop optimization.EarlyStopFunc

	// Disp enables per-generation progress logging.
	Disp bool

	// Polish refines the final best candidate with Nelder-Mead local search.
	// Polishing runs even when the run was halted early.
	Polish bool

	// Init selects the population initialization scheme.
	Init string

	// Logger receives structured progress logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns the canonical defaults: best1bin, popsize 15,
// tol 0.01, dithered mutation in [0.5, 1), recombination 0.7, latin hypercube
// initialization, polishing on.
func DefaultConfig() Config {
	return Config{
		Strategy:      "best1bin",
		MaxIter:       1000,
		PopSize:       15,
		Tol:           0.01,
		Mutation:      [2]float64{0.5, 1.0},
		Recombination: 0.7,
		Polish:        true,
		Init:          string(InitLatinHypercube),
	}
}

// Solver drives the differential evolution generation loop. The loop itself
// is strictly sequential; all parallelism lives behind the batched evaluator.
type Solver struct {
	config   Config
	bounds   *Bounds
	strategy Strategy
	init     InitScheme

	// rng is owned exclusively by the solver for the run's duration.
	rng    *rand.Rand
	dither *distuv.Uniform // nil unless mutation is a range

	// pop rows are candidates in the unit cube; energies is index-aligned
	// with pop at all times.
	pop      *mat.Dense
	energies []float64
	bestIdx  int

	// mu guards best and history, which status pollers read through
	// BestSolution/History while the run goroutine updates them.
	mu          sync.RWMutex
	best        *optimization.Solution
	history     []optimization.GenerationStat
	evaluations int

	logger *zap.Logger
	cancel context.CancelFunc
}

const minPopulation = 6 // rand2 draws a base and four donors besides the target

// NewSolver validates the configuration and prepares a solver. All
// configuration errors surface here, before any generation runs.
func NewSolver(cfg Config) (*Solver, error) {
	const op = "NewSolver"

	if cfg.Func == nil {
		return nil, optimization.NewError(optimization.KindConfig, "an evaluator is required").
			WithComponent("differential").WithOperation(op)
	}

	bounds, err := NewBounds(cfg.Bounds)
	if err != nil {
		return nil, err
	}

	if cfg.X0 != nil && len(cfg.X0) != bounds.Dim() {
		return nil, optimization.NewErrorf(optimization.KindConfig,
			"x0 has %d parameters but bounds define %d", len(cfg.X0), bounds.Dim()).
			WithComponent("differential").WithOperation(op)
	}

	if cfg.Strategy == "" {
		cfg.Strategy = "best1bin"
	}
	strategy, err := ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	if cfg.Init == "" {
		cfg.Init = string(InitLatinHypercube)
	}
	scheme, err := ParseInitScheme(cfg.Init)
	if err != nil {
		return nil, err
	}

	if cfg.Mutation[0] > cfg.Mutation[1] {
		cfg.Mutation[0], cfg.Mutation[1] = cfg.Mutation[1], cfg.Mutation[0]
	}
	for _, f := range cfg.Mutation {
		if f < 0 || f > 2 || math.IsNaN(f) {
			return nil, optimization.NewErrorf(optimization.KindConfig,
				"mutation constant %v outside [0, 2]", f).
				WithComponent("differential").WithOperation(op)
		}
	}

	if cfg.Recombination < 0 || cfg.Recombination > 1 || math.IsNaN(cfg.Recombination) {
		return nil, optimization.NewErrorf(optimization.KindConfig,
			"recombination %v outside [0, 1]", cfg.Recombination).
			WithComponent("differential").WithOperation(op)
	}

	if cfg.Tol < 0 || math.IsNaN(cfg.Tol) {
		return nil, optimization.NewErrorf(optimization.KindConfig, "tol %v must be non-negative", cfg.Tol).
			WithComponent("differential").WithOperation(op)
	}

	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 1000
	}
	if cfg.PopSize <= 0 {
		cfg.PopSize = 15
	}
	candidates := cfg.PopSize * bounds.Dim()
	if candidates < minPopulation {
		return nil, optimization.NewErrorf(optimization.KindConfig,
			"population of %d candidates is too small; popsize*dimension must be at least %d",
			candidates, minPopulation).
			WithComponent("differential").WithOperation(op)
	}

	rng := cfg.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Solver{
		config:   cfg,
		bounds:   bounds,
		strategy: strategy,
		init:     scheme,
		rng:      rng,
		pop:      mat.NewDense(candidates, bounds.Dim(), nil),
		energies: make([]float64, candidates),
		history:  make([]optimization.GenerationStat, 0, cfg.MaxIter),
		logger:   logger.Named("differential"),
	}

	if cfg.Mutation[0] != cfg.Mutation[1] {
		s.dither = &distuv.Uniform{
			Min: cfg.Mutation[0],
			Max: cfg.Mutation[1],
			Src: randv2.NewPCG(rng.Uint64(), rng.Uint64()),
		}
	}

	return s, nil
}

// Optimize runs the generation loop to a terminal state. Evaluator and
// callback failures abort the run and propagate unchanged; the population is
// not guaranteed consistent after a failure, so no partial result is
// returned.
func (s *Solver) Optimize(ctx context.Context) (*optimization.Result, error) {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	if err := s.initialize(ctx); err != nil {
		return nil, err
	}

	reason := optimization.ReasonMaxIterations
	generations := 0

	for gen := 1; gen <= s.config.MaxIter; gen++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		f := s.mutationConstant()
		halt, err := s.step(ctx, gen, f)
		if err != nil {
			return nil, err
		}
		generations = gen

		conv := s.history[len(s.history)-1].Convergence
		if conv > 1 {
			reason = optimization.ReasonConverged
		} else if gen == s.config.MaxIter {
			reason = optimization.ReasonMaxIterations
		} else if halt {
			reason = optimization.ReasonEarlyStopped
		} else {
			continue
		}
		break
	}

	polished := false
	if s.config.Polish {
		polished = s.polish(ctx)
	}

	s.logger.Info("optimization finished",
		zap.String("reason", string(reason)),
		zap.Int("generations", generations),
		zap.Int("evaluations", s.evaluations),
		zap.Float64("best", s.best.Value),
		zap.Bool("polished", polished),
	)

	return &optimization.Result{
		BestSolution: s.best,
		Generations:  generations,
		Evaluations:  s.evaluations,
		Reason:       reason,
		Polished:     polished,
	}, nil
}

// BestSolution returns the best solution found so far. It is safe to call
// while a run is in flight; the returned solution is never mutated afterwards.
func (s *Solver) BestSolution() *optimization.Solution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best
}

// History returns a snapshot of the per-generation statistics recorded so
// far. It is safe to call while a run is in flight.
func (s *Solver) History() []optimization.GenerationStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]optimization.GenerationStat(nil), s.history...)
}

// Stop requests a graceful stop of an in-flight run.
func (s *Solver) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// initialize builds the starting population and spends the first batched
// evaluation on it.
func (s *Solver) initialize(ctx context.Context) error {
	initPopulation(s.init, s.rng, s.pop)

	if s.config.X0 != nil {
		unit := make([]float64, s.bounds.Dim())
		s.bounds.ToUnit(s.config.X0, unit)
		for d, v := range unit {
			unit[d] = math.Min(1, math.Max(0, v))
		}
		s.pop.SetRow(0, unit)
	}

	energies, err := s.evaluateBatch(ctx, s.pop)
	if err != nil {
		return err
	}
	copy(s.energies, energies)
	s.refreshBest()

	s.logger.Debug("population initialized",
		zap.String("scheme", string(s.init)),
		zap.Int("candidates", len(s.energies)),
		zap.Float64("best", s.best.Value),
	)
	return nil
}

// step executes one generation: trial construction, the single batched
// evaluator call, selection, hooks, and the convergence update. It returns
// whether a hook requested a halt.
func (s *Solver) step(ctx context.Context, gen int, f float64) (bool, error) {
	n, dims := s.pop.Dims()

	// All trials read the same pre-selection snapshot, so construction is
	// independent across target indices.
	trials := mat.NewDense(n, dims, nil)
	for i := 0; i < n; i++ {
		trials.SetRow(i, s.strategy.makeTrial(s.rng, s.pop, i, s.bestIdx, f, s.config.Recombination))
	}

	trialEnergies, err := s.evaluateBatch(ctx, trials)
	if err != nil {
		return false, err
	}

	// Selection keeps the trial on improvement or tie.
	for i := 0; i < n; i++ {
		if trialEnergies[i] <= s.energies[i] {
			s.pop.SetRow(i, trials.RawRowView(i))
			s.energies[i] = trialEnergies[i]
		}
	}
	s.refreshBest()

	conv := convergence(s.energies, s.config.Tol)
	s.mu.Lock()
	s.history = append(s.history, optimization.GenerationStat{
		Generation:  gen,
		BestValue:   s.best.Value,
		Convergence: conv,
		Mutation:    f,
	})
	s.mu.Unlock()

	if s.config.Disp {
		s.logger.Info("generation complete",
			zap.Int("generation", gen),
			zap.Float64("best", s.best.Value),
			zap.Float64("convergence", conv),
			zap.Float64("mutation", f),
		)
	}

	ev := optimization.Event{
		Step:        gen,
		Parameters:  append([]float64(nil), s.best.Parameters...),
		Cost:        s.best.Value,
		Convergence: conv,
	}

	halt := false
	for _, cb := range s.config.Callbacks {
		h, err := cb(ev)
		if err != nil {
			return false, optimization.WrapError(err, optimization.KindCallback, "callback failed").
				WithComponent("differential").WithOperation("step")
		}
		halt = halt || h
	}
	if s.config.EarlyStop != nil {
		h, err := s.config.EarlyStop(ev)
		if err != nil {
			return false, optimization.WrapError(err, optimization.KindCallback, "early-stop predicate failed").
				WithComponent("differential").WithOperation("step")
		}
		halt = halt || h
	}
	return halt, nil
}

// mutationConstant returns this generation's differential weight, freshly
// dithered when a range was configured.
func (s *Solver) mutationConstant() float64 {
	if s.dither != nil {
		return s.dither.Rand()
	}
	return s.config.Mutation[0]
}

// evaluateBatch maps a unit-cube population into real space, packs it
// column-major, and makes the single evaluator call for this generation.
func (s *Solver) evaluateBatch(ctx context.Context, pop *mat.Dense) ([]float64, error) {
	const op = "evaluateBatch"
	n, dims := pop.Dims()

	cols := make([][]float64, dims)
	for d := range cols {
		cols[d] = make([]float64, n)
	}
	buf := make([]float64, dims)
	for i := 0; i < n; i++ {
		s.bounds.FromUnit(pop.RawRowView(i), buf)
		for d := 0; d < dims; d++ {
			cols[d][i] = buf[d]
		}
	}

	energies, err := s.config.Func.Evaluate(ctx, cols, s.config.Args...)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation, "evaluator call failed").
			WithComponent("differential").WithOperation(op)
	}
	if len(energies) != n {
		return nil, optimization.NewErrorf(optimization.KindEvaluation,
			"evaluator returned %d energies for a batch of %d", len(energies), n).
			WithComponent("differential").WithOperation(op)
	}
	s.evaluations += n
	return energies, nil
}

// refreshBest rescans the energies for the current minimum and records it as
// the global best in real parameter space.
func (s *Solver) refreshBest() {
	s.bestIdx = 0
	for i, e := range s.energies {
		if e < s.energies[s.bestIdx] {
			s.bestIdx = i
		}
	}
	params := make([]float64, s.bounds.Dim())
	s.bounds.FromUnit(s.pop.RawRowView(s.bestIdx), params)
	s.mu.Lock()
	s.best = &optimization.Solution{
		Parameters: params,
		Value:      s.energies[s.bestIdx],
	}
	s.mu.Unlock()
}

// polish refines the best candidate with derivative-free Nelder-Mead local
// search, evaluating through the same batched contract with batches of one.
// It reports whether the refinement improved on the population's best.
func (s *Solver) polish(ctx context.Context) bool {
	dims := s.bounds.Dim()
	evals := 0

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			cols := make([][]float64, dims)
			for d := 0; d < dims; d++ {
				v := math.Max(s.bounds.Low(d), math.Min(x[d], s.bounds.High(d)))
				cols[d] = []float64{v}
			}
			res, err := s.config.Func.Evaluate(ctx, cols, s.config.Args...)
			evals++
			if err != nil || len(res) != 1 {
				return math.Inf(1)
			}
			return res[0]
		},
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}
	method := &optimize.NelderMead{SimplexSize: 0.05}

	start := append([]float64(nil), s.best.Parameters...)
	result, err := optimize.Minimize(problem, start, settings, method)
	s.evaluations += evals

	if err != nil || result == nil || result.F >= s.best.Value {
		s.logger.Debug("polish did not improve the solution", zap.Int("evaluations", evals))
		return false
	}

	params := make([]float64, dims)
	for d := 0; d < dims; d++ {
		params[d] = math.Max(s.bounds.Low(d), math.Min(result.X[d], s.bounds.High(d)))
	}
	s.mu.Lock()
	s.best = &optimization.Solution{Parameters: params, Value: result.F}
	s.mu.Unlock()

	s.logger.Debug("polish improved the solution",
		zap.Float64("best", s.best.Value),
		zap.Int("evaluations", evals),
	)
	return true
}
