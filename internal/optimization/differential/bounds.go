// Package differential implements the differential evolution global
// optimization algorithm. The solver keeps its population normalized to the
// unit cube and dispatches every per-generation objective evaluation as a
// single batched call, so an external backend can evaluate all candidates
// concurrently.
package differential

import (
	"github.com/evolvehq/DEVO/internal/optimization"
)

// Bounds normalizes the per-parameter (low, high) pairs and provides the pure
// conversions between the solver's internal unit-cube representation and real
// parameter space. Stateless after construction.
type Bounds struct {
	low   []float64
	width []float64
}

// NewBounds validates the pairs and builds the scaling. Every pair must
// satisfy low < high.
func NewBounds(pairs [][2]float64) (*Bounds, error) {
	const op = "NewBounds"

	if len(pairs) == 0 {
		return nil, optimization.NewError(optimization.KindConfig, "bounds must contain at least one (low, high) pair").
			WithComponent("differential").WithOperation(op)
	}

	b := &Bounds{
		low:   make([]float64, len(pairs)),
		width: make([]float64, len(pairs)),
	}
	for i, p := range pairs {
		if !(p[0] < p[1]) {
			return nil, optimization.NewErrorf(optimization.KindConfig,
				"invalid bounds for parameter %d: low (%v) must be less than high (%v)", i, p[0], p[1]).
				WithComponent("differential").WithOperation(op)
		}
		b.low[i] = p[0]
		b.width[i] = p[1] - p[0]
	}
	return b, nil
}

// Dim returns the number of parameters.
func (b *Bounds) Dim() int {
	return len(b.low)
}

// Low returns the lower bound of parameter i.
func (b *Bounds) Low(i int) float64 { return b.low[i] }

// High returns the upper bound of parameter i.
func (b *Bounds) High(i int) float64 { return b.low[i] + b.width[i] }

// FromUnit maps a unit-cube vector into real parameter space:
// real = low + unit*(high-low). The result is written into dst, which must
// have length Dim; dst is returned for convenience.
func (b *Bounds) FromUnit(unit, dst []float64) []float64 {
	for i := range b.low {
		dst[i] = b.low[i] + unit[i]*b.width[i]
	}
	return dst
}

// ToUnit is the inverse of FromUnit. It is only needed when seeding the
// population with a caller-supplied starting vector.
func (b *Bounds) ToUnit(x, dst []float64) []float64 {
	for i := range b.low {
		dst[i] = (x[i] - b.low[i]) / b.width[i]
	}
	return dst
}
