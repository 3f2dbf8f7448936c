package optimization

import (
	"context"
	"math"
	"testing"
)

// testBatchSphere evaluates the sphere function over a whole column-major
// batch, mirroring how a parallel backend would.
func testBatchSphere(_ context.Context, cols [][]float64, _ ...interface{}) ([]float64, error) {
	if len(cols) == 0 {
		return nil, nil
	}
	n := len(cols[0])
	energies := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for d := range cols {
			sum += cols[d][i] * cols[d][i]
		}
		energies[i] = sum
	}
	return energies, nil
}

// assertFloat64SlicesEqual checks if two float64 slices are approximately equal
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}
