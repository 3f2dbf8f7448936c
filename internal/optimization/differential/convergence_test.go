package differential

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvergenceZeroSpread(t *testing.T) {
	// No diversity left to exploit: force termination.
	v := convergence([]float64{3, 3, 3, 3}, 0.01)
	assert.True(t, math.IsInf(v, 1))
	assert.Greater(t, v, 1.0)
}

func TestConvergenceRelativeSpread(t *testing.T) {
	// mean 10, sample stdev 1: value = mean*tol/stdev.
	energies := []float64{9, 10, 11, 9, 10, 11, 10}

	tight := convergence(energies, 0.01)
	assert.Less(t, tight, 1.0, "wide spread must not terminate under a tight tolerance")

	loose := convergence(energies, 0.5)
	assert.Greater(t, loose, 1.0, "loose tolerance must terminate")

	// Scaling all energies together leaves the statistic unchanged; it is a
	// relative measure.
	scaled := make([]float64, len(energies))
	for i, e := range energies {
		scaled[i] = e * 1000
	}
	assert.InDelta(t, convergence(energies, 0.01), convergence(scaled, 0.01), 1e-9)
}

func TestConvergenceZeroTolerance(t *testing.T) {
	// tol 0 never terminates on spread alone, only stdev==0 can stop the run.
	assert.Equal(t, 0.0, convergence([]float64{1, 2, 3}, 0))
	assert.True(t, math.IsInf(convergence([]float64{2, 2, 2}, 0), 1))
}
