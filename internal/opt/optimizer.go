package opt

// Optimizer defines a black-box minimization algorithm over a box.
type Optimizer interface {
	// Run executes the optimization
	// eval: objective function to minimize
	// lower, upper: per-dimension bounds
	// dim: dimensionality of parameter space
	// Returns: best parameters and best cost
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}

// clampToBox clamps x in place to [lower, upper].
func clampToBox(x, lower, upper []float64) {
	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		} else if x[i] > upper[i] {
			x[i] = upper[i]
		}
	}
}

// boxCenter returns the midpoint of [lower, upper].
func boxCenter(lower, upper []float64) []float64 {
	c := make([]float64, len(lower))
	for i := range c {
		c[i] = (lower[i] + upper[i]) / 2
	}
	return c
}
