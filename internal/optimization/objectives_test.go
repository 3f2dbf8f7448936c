package optimization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupObjective(t *testing.T) {
	for _, name := range ObjectiveNames() {
		fn, err := LookupObjective(name)
		require.NoError(t, err, name)
		require.NotNil(t, fn, name)
	}

	_, err := LookupObjective("himmelblau")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
}

func TestObjectiveMinima(t *testing.T) {
	tests := []struct {
		name string
		fn   ObjectiveFunc
		at   []float64
	}{
		{"sphere", Sphere, []float64{0, 0, 0}},
		{"rosenbrock", Rosenbrock, []float64{1, 1, 1}},
		{"rastrigin", Rastrigin, []float64{0, 0}},
		{"ackley", Ackley, []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.fn(tt.at)
			require.NoError(t, err)
			assert.InDelta(t, 0, v, 1e-9)

			// Any other point must cost more.
			off := append([]float64(nil), tt.at...)
			off[0] += 0.5
			worse, err := tt.fn(off)
			require.NoError(t, err)
			assert.Greater(t, worse, v)
		})
	}
}

func TestBatchFuncAdapter(t *testing.T) {
	ev := BatchFunc(testBatchSphere)

	// Candidates (1,2) and (3,4), column-major.
	cols := [][]float64{{1, 3}, {2, 4}}
	got, err := ev.Evaluate(context.Background(), cols)
	require.NoError(t, err)
	assertFloat64SlicesEqual(t, got, []float64{5, 25}, 1e-12)
}
