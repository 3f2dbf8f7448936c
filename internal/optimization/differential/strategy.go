package differential

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/evolvehq/DEVO/internal/optimization"
)

// A strategy name decomposes into a mutation rule and a crossover rule, e.g.
// "best1bin" mutates around the current best with one difference term and
// recombines binomially. The set is a closed enumeration; ParseStrategy
// rejects anything else.
type Strategy struct {
	name      string
	mutate    mutateFunc
	crossover crossoverFunc
}

// mutateFunc builds a mutant vector for the target index from the current
// population snapshot. best is the index of the lowest-energy candidate and f
// the differential weight for this generation.
type mutateFunc func(rng *rand.Rand, pop *mat.Dense, target, best int, f float64) []float64

// crossoverFunc mixes the mutant with the target vector in place and returns
// the trial. Both inputs are unit-cube vectors.
type crossoverFunc func(rng *rand.Rand, mutant, target []float64, cr float64) []float64

var strategies = map[string]Strategy{
	"rand1bin":       {name: "rand1bin", mutate: mutateRand1, crossover: crossoverBin},
	"rand1exp":       {name: "rand1exp", mutate: mutateRand1, crossover: crossoverExp},
	"best1bin":       {name: "best1bin", mutate: mutateBest1, crossover: crossoverBin},
	"best1exp":       {name: "best1exp", mutate: mutateBest1, crossover: crossoverExp},
	"rand2bin":       {name: "rand2bin", mutate: mutateRand2, crossover: crossoverBin},
	"rand2exp":       {name: "rand2exp", mutate: mutateRand2, crossover: crossoverExp},
	"best2bin":       {name: "best2bin", mutate: mutateBest2, crossover: crossoverBin},
	"best2exp":       {name: "best2exp", mutate: mutateBest2, crossover: crossoverExp},
	"randtobest1bin": {name: "randtobest1bin", mutate: mutateRandToBest1, crossover: crossoverBin},
	"randtobest1exp": {name: "randtobest1exp", mutate: mutateRandToBest1, crossover: crossoverExp},
}

// ParseStrategy resolves a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	st, ok := strategies[name]
	if !ok {
		return Strategy{}, optimization.NewErrorf(optimization.KindConfig, "unknown strategy %q", name).
			WithComponent("differential").WithOperation("ParseStrategy")
	}
	return st, nil
}

// StrategyNames returns all recognized strategy names, sorted.
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (st Strategy) String() string { return st.name }

// makeTrial produces the trial vector for one target index: mutation, then
// crossover against the target, then reflection of any out-of-range
// coordinate back into the unit cube. Reading only the prior-generation
// snapshot keeps trial construction independent across targets.
func (st Strategy) makeTrial(rng *rand.Rand, pop *mat.Dense, target, best int, f, cr float64) []float64 {
	mutant := st.mutate(rng, pop, target, best, f)
	trial := st.crossover(rng, mutant, pop.RawRowView(target), cr)
	reflectIntoUnit(trial)
	return trial
}

// drawDonors picks count distinct population indices, none equal to target,
// uniformly without replacement.
func drawDonors(rng *rand.Rand, n, target, count int) []int {
	donors := make([]int, 0, count)
	for _, idx := range rng.Perm(n) {
		if idx == target {
			continue
		}
		donors = append(donors, idx)
		if len(donors) == count {
			break
		}
	}
	return donors
}

// x_r0 + f*(x_r1 - x_r2)
func mutateRand1(rng *rand.Rand, pop *mat.Dense, target, _ int, f float64) []float64 {
	r := drawDonors(rng, rows(pop), target, 3)
	base, a, b := pop.RawRowView(r[0]), pop.RawRowView(r[1]), pop.RawRowView(r[2])
	mutant := make([]float64, len(base))
	for d := range mutant {
		mutant[d] = base[d] + f*(a[d]-b[d])
	}
	return mutant
}

// x_best + f*(x_r0 - x_r1)
func mutateBest1(rng *rand.Rand, pop *mat.Dense, target, best int, f float64) []float64 {
	r := drawDonors(rng, rows(pop), target, 2)
	base, a, b := pop.RawRowView(best), pop.RawRowView(r[0]), pop.RawRowView(r[1])
	mutant := make([]float64, len(base))
	for d := range mutant {
		mutant[d] = base[d] + f*(a[d]-b[d])
	}
	return mutant
}

// x_r0 + f*(x_r1 - x_r2) + f*(x_r3 - x_r4)
func mutateRand2(rng *rand.Rand, pop *mat.Dense, target, _ int, f float64) []float64 {
	r := drawDonors(rng, rows(pop), target, 5)
	base := pop.RawRowView(r[0])
	a, b := pop.RawRowView(r[1]), pop.RawRowView(r[2])
	c, e := pop.RawRowView(r[3]), pop.RawRowView(r[4])
	mutant := make([]float64, len(base))
	for d := range mutant {
		mutant[d] = base[d] + f*(a[d]-b[d]) + f*(c[d]-e[d])
	}
	return mutant
}

// x_best + f*(x_r0 - x_r1) + f*(x_r2 - x_r3)
func mutateBest2(rng *rand.Rand, pop *mat.Dense, target, best int, f float64) []float64 {
	r := drawDonors(rng, rows(pop), target, 4)
	base := pop.RawRowView(best)
	a, b := pop.RawRowView(r[0]), pop.RawRowView(r[1])
	c, e := pop.RawRowView(r[2]), pop.RawRowView(r[3])
	mutant := make([]float64, len(base))
	for d := range mutant {
		mutant[d] = base[d] + f*(a[d]-b[d]) + f*(c[d]-e[d])
	}
	return mutant
}

// x_target + f*(x_best - x_target) + f*(x_r0 - x_r1)
func mutateRandToBest1(rng *rand.Rand, pop *mat.Dense, target, best int, f float64) []float64 {
	r := drawDonors(rng, rows(pop), target, 2)
	tgt, bst := pop.RawRowView(target), pop.RawRowView(best)
	a, b := pop.RawRowView(r[0]), pop.RawRowView(r[1])
	mutant := make([]float64, len(tgt))
	for d := range mutant {
		mutant[d] = tgt[d] + f*(bst[d]-tgt[d]) + f*(a[d]-b[d])
	}
	return mutant
}

// crossoverBin copies each dimension from the mutant independently with
// probability cr, except one uniformly chosen dimension which always comes
// from the mutant so the trial differs from the target somewhere.
func crossoverBin(rng *rand.Rand, mutant, target []float64, cr float64) []float64 {
	forced := rng.Intn(len(mutant))
	for d := range mutant {
		if d == forced {
			continue
		}
		if rng.Float64() >= cr {
			mutant[d] = target[d]
		}
	}
	return mutant
}

// crossoverExp copies a contiguous wrap-around run of dimensions from the
// mutant, starting at a random index; the run continues with probability cr
// and is capped at the full dimension. All other dimensions keep the target's
// values.
func crossoverExp(rng *rand.Rand, mutant, target []float64, cr float64) []float64 {
	dims := len(mutant)
	trial := make([]float64, dims)
	copy(trial, target)

	d := rng.Intn(dims)
	for i := 0; i < dims; i++ {
		trial[d] = mutant[d]
		d = (d + 1) % dims
		if rng.Float64() >= cr {
			break
		}
	}
	return trial
}

// reflectIntoUnit folds out-of-range coordinates back into [0,1] by mirroring
// at the violated boundary. Reflection rather than clamping avoids piling
// candidates up on the boundary.
func reflectIntoUnit(x []float64) {
	for i, v := range x {
		for v < 0 || v > 1 {
			if v < 0 {
				v = -v
			} else {
				v = 2 - v
			}
		}
		x[i] = v
	}
}

func rows(m *mat.Dense) int {
	n, _ := m.Dims()
	return n
}
