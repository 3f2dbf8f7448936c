package differential

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/evolvehq/DEVO/internal/optimization"
)

func TestParseStrategy(t *testing.T) {
	want := []string{
		"best1bin", "best1exp", "best2bin", "best2exp",
		"rand1bin", "rand1exp", "rand2bin", "rand2exp",
		"randtobest1bin", "randtobest1exp",
	}
	assert.ElementsMatch(t, want, StrategyNames())

	for _, name := range want {
		st, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, name, st.String())
	}

	_, err := ParseStrategy("best9bin")
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindConfig))
}

func TestDrawDonors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for trial := 0; trial < 100; trial++ {
		donors := drawDonors(rng, 10, 4, 5)
		require.Len(t, donors, 5)

		seen := make(map[int]bool)
		for _, idx := range donors {
			assert.NotEqual(t, 4, idx, "donor equals target")
			assert.False(t, seen[idx], "donor repeated")
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 10)
			seen[idx] = true
		}
	}
}

// testPopulation builds a small population whose rows are easy to tell apart.
func testPopulation(n, dims int) *mat.Dense {
	pop := mat.NewDense(n, dims, nil)
	for i := 0; i < n; i++ {
		for d := 0; d < dims; d++ {
			pop.Set(i, d, float64(i)/float64(n)+float64(d)/float64(10*dims))
		}
	}
	return pop
}

func TestCrossoverBinEndpoints(t *testing.T) {
	const dims = 8
	target := make([]float64, dims)
	mutant := make([]float64, dims)
	for d := range mutant {
		mutant[d] = 0.5 + float64(d)/100
	}

	// recombination 1: the trial equals the mutant in every coordinate.
	full := append([]float64(nil), mutant...)
	got := crossoverBin(rand.New(rand.NewSource(7)), append([]float64(nil), mutant...), target, 1.0)
	assert.Equal(t, full, got)

	// recombination 0: only the forced dimension comes from the mutant.
	for trial := 0; trial < 50; trial++ {
		rng := rand.New(rand.NewSource(int64(trial)))
		got := crossoverBin(rng, append([]float64(nil), mutant...), target, 0.0)

		differing := 0
		for d := range got {
			if got[d] != target[d] {
				differing++
			}
		}
		assert.Equal(t, 1, differing, "seed %d", trial)
	}
}

func TestCrossoverExpContiguousRun(t *testing.T) {
	const dims = 10
	target := make([]float64, dims)
	mutant := make([]float64, dims)
	for d := range mutant {
		mutant[d] = 1
	}

	// recombination 1 copies the full wrap-around run.
	got := crossoverExp(rand.New(rand.NewSource(11)), mutant, target, 1.0)
	assert.Equal(t, mutant, got)

	// recombination 0 copies exactly one dimension.
	got = crossoverExp(rand.New(rand.NewSource(11)), mutant, target, 0.0)
	count := 0
	for _, v := range got {
		if v == 1 {
			count++
		}
	}
	assert.Equal(t, 1, count)

	// Intermediate probabilities produce one contiguous wrap-around run of
	// mutant coordinates.
	for trial := 0; trial < 50; trial++ {
		rng := rand.New(rand.NewSource(int64(100 + trial)))
		got := crossoverExp(rng, mutant, target, 0.6)

		copied := 0
		for _, v := range got {
			if v == 1 {
				copied++
			}
		}
		require.GreaterOrEqual(t, copied, 1)

		// A contiguous wrap-around run has at most one 0->1 transition when
		// walking the trial circularly.
		transitions := 0
		for d := 0; d < dims; d++ {
			if got[d] == 1 && got[(d+dims-1)%dims] == 0 {
				transitions++
			}
		}
		assert.LessOrEqual(t, transitions, 1, "seed %d: copied run not contiguous", 100+trial)
	}
}

func TestReflectIntoUnit(t *testing.T) {
	x := []float64{-0.25, 1.5, 0.3, -1.8, 2.9}
	reflectIntoUnit(x)

	for i, v := range x {
		assert.GreaterOrEqual(t, v, 0.0, "index %d", i)
		assert.LessOrEqual(t, v, 1.0, "index %d", i)
	}

	// Mirroring, not clamping: a small overshoot lands strictly inside.
	assert.InDelta(t, 0.25, x[0], 1e-12)
	assert.InDelta(t, 0.5, x[1], 1e-12)
	assert.InDelta(t, 0.3, x[2], 1e-12)
}

func TestMakeTrialStaysInUnitCube(t *testing.T) {
	pop := testPopulation(12, 4)
	rng := rand.New(rand.NewSource(5))

	for _, name := range StrategyNames() {
		st, err := ParseStrategy(name)
		require.NoError(t, err)

		for target := 0; target < 12; target++ {
			trial := st.makeTrial(rng, pop, target, 0, 1.9, 0.7)
			require.Len(t, trial, 4)
			for d, v := range trial {
				assert.GreaterOrEqual(t, v, 0.0, "%s target %d dim %d", name, target, d)
				assert.LessOrEqual(t, v, 1.0, "%s target %d dim %d", name, target, d)
			}
		}
	}
}

func TestMakeTrialDeterminism(t *testing.T) {
	pop := testPopulation(10, 3)

	for _, name := range StrategyNames() {
		st, err := ParseStrategy(name)
		require.NoError(t, err)

		a := st.makeTrial(rand.New(rand.NewSource(99)), pop, 2, 0, 0.8, 0.7)
		b := st.makeTrial(rand.New(rand.NewSource(99)), pop, 2, 0, 0.8, 0.7)
		assert.Equal(t, a, b, "%s not reproducible under identical rng state", name)
	}
}
