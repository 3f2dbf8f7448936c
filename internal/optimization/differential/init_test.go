package differential

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/evolvehq/DEVO/internal/optimization"
)

func TestParseInitScheme(t *testing.T) {
	for _, name := range []string{"latinhypercube", "random"} {
		scheme, err := ParseInitScheme(name)
		require.NoError(t, err)
		assert.Equal(t, InitScheme(name), scheme)
	}

	_, err := ParseInitScheme("sobol")
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindConfig))
}

func TestLatinHypercubeStratumOccupancy(t *testing.T) {
	const n, dims = 20, 3

	pop := mat.NewDense(n, dims, nil)
	latinHypercube(rand.New(rand.NewSource(1)), pop)

	// Each dimension's [0,1] range split into n equal strata must contain
	// exactly one sample across the population.
	for d := 0; d < dims; d++ {
		seen := make([]bool, n)
		for i := 0; i < n; i++ {
			v := pop.At(i, d)
			require.GreaterOrEqual(t, v, 0.0)
			require.Less(t, v, 1.0)

			stratum := int(math.Floor(v * n))
			assert.False(t, seen[stratum], "dimension %d stratum %d occupied twice", d, stratum)
			seen[stratum] = true
		}
	}
}

func TestRandomUniformInUnitCube(t *testing.T) {
	pop := mat.NewDense(30, 4, nil)
	randomUniform(rand.New(rand.NewSource(2)), pop)

	n, dims := pop.Dims()
	for i := 0; i < n; i++ {
		for d := 0; d < dims; d++ {
			v := pop.At(i, d)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
	}
}

func TestInitPopulationDeterminism(t *testing.T) {
	for _, scheme := range []InitScheme{InitLatinHypercube, InitRandom} {
		a := mat.NewDense(15, 2, nil)
		b := mat.NewDense(15, 2, nil)
		initPopulation(scheme, rand.New(rand.NewSource(42)), a)
		initPopulation(scheme, rand.New(rand.NewSource(42)), b)

		assert.True(t, mat.Equal(a, b), "scheme %s not reproducible under a fixed seed", scheme)
	}
}
