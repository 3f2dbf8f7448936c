package differential

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/evolvehq/DEVO/internal/optimization"
)

// InitScheme names a population initialization scheme.
type InitScheme string

const (
	// InitLatinHypercube stratifies every dimension into popsize equal slices
	// and places exactly one sample in each, maximizing coverage of the
	// available space. The default.
	InitLatinHypercube InitScheme = "latinhypercube"
	// InitRandom draws every coordinate i.i.d. uniform, with no coverage
	// guarantee.
	InitRandom InitScheme = "random"
)

// ParseInitScheme validates an initialization scheme name.
func ParseInitScheme(name string) (InitScheme, error) {
	switch InitScheme(name) {
	case InitLatinHypercube, InitRandom:
		return InitScheme(name), nil
	}
	return "", optimization.NewErrorf(optimization.KindConfig, "unknown init scheme %q", name).
		WithComponent("differential").WithOperation("ParseInitScheme")
}

// initPopulation fills pop (candidates x dimensions, unit cube) according to
// the scheme. The supplied generator is the only source of randomness, so a
// fixed seed reproduces the population exactly.
func initPopulation(scheme InitScheme, rng *rand.Rand, pop *mat.Dense) {
	switch scheme {
	case InitLatinHypercube:
		latinHypercube(rng, pop)
	default:
		randomUniform(rng, pop)
	}
}

// latinHypercube partitions each dimension's [0,1] range into one stratum per
// candidate, draws a uniform sample inside every stratum, then shuffles the
// per-dimension assignment across candidates so the dimensions stay
// decorrelated.
func latinHypercube(rng *rand.Rand, pop *mat.Dense) {
	n, dims := pop.Dims()
	segsize := 1.0 / float64(n)

	column := make([]float64, n)
	for d := 0; d < dims; d++ {
		for i := 0; i < n; i++ {
			column[i] = (float64(i) + rng.Float64()) * segsize
		}
		rng.Shuffle(n, func(i, j int) {
			column[i], column[j] = column[j], column[i]
		})
		for i := 0; i < n; i++ {
			pop.Set(i, d, column[i])
		}
	}
}

func randomUniform(rng *rand.Rand, pop *mat.Dense) {
	n, dims := pop.Dims()
	for i := 0; i < n; i++ {
		for d := 0; d < dims; d++ {
			pop.Set(i, d, rng.Float64())
		}
	}
}
