package optimization

import (
	"math"
	"sort"
)

// Built-in benchmark objectives, keyed by name. The server resolves the
// objective named in a job request against this table; library users normally
// supply their own evaluator instead.
var objectives = map[string]ObjectiveFunc{
	"sphere":     Sphere,
	"rosenbrock": Rosenbrock,
	"rastrigin":  Rastrigin,
	"ackley":     Ackley,
}

// LookupObjective returns the named built-in objective.
func LookupObjective(name string) (ObjectiveFunc, error) {
	fn, ok := objectives[name]
	if !ok {
		return nil, NewErrorf(KindConfig, "unknown objective %q", name)
	}
	return fn, nil
}

// ObjectiveNames returns the names of the built-in objectives, sorted.
func ObjectiveNames() []string {
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sphere is sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64, _ ...interface{}) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// Rosenbrock is the banana-valley function, minimum 0 at (1, ..., 1).
func Rosenbrock(x []float64, _ ...interface{}) (float64, error) {
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}

// Rastrigin is highly multimodal, minimum 0 at the origin.
func Rastrigin(x []float64, _ ...interface{}) (float64, error) {
	sum := 10.0 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

// Ackley has a nearly flat outer region and a large central hole, minimum 0
// at the origin.
func Ackley(x []float64, _ ...interface{}) (float64, error) {
	n := float64(len(x))
	var sumSq, sumCos float64
	for _, v := range x {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E, nil
}
