package differential

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// convergence computes the stopping statistic from the population energies.
// The run terminates once the value exceeds 1, i.e. once the spread of the
// energies has shrunk below tol times their mean. This is a relative measure:
// it stops when the population's costs are statistically indistinguishable
// relative to their magnitude, not when an absolute threshold is hit.
//
// A zero spread means no diversity is left to exploit, so it is treated as
// fully converged.
func convergence(energies []float64, tol float64) float64 {
	sd := stat.StdDev(energies, nil)
	if sd == 0 {
		return math.Inf(1)
	}
	return stat.Mean(energies, nil) * tol / sd
}
