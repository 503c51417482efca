package opt

import (
	"log/slog"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MinMayflyPopulation is the smallest population the mayfly library accepts.
const MinMayflyPopulation = 20

// MayflyAdapter wraps the mayfly library to conform to the Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter. Populations below
// MinMayflyPopulation are raised to it.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  max(popSize, MinMayflyPopulation),
		seed:     seed,
	}
}

// Run executes the Mayfly optimization. The library only supports scalar
// bounds, so the search runs on the unit cube and candidates are mapped back
// onto [lower, upper] per dimension before evaluation.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	toBox := func(u []float64) []float64 {
		x := make([]float64, dim)
		for i := range x {
			x[i] = lower[i] + u[i]*(upper[i]-lower[i])
		}
		clampToBox(x, lower, upper)
		return x
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 { return eval(toBox(u)) }
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Mayfly optimization failed, falling back to box center", "error", err)
		center := boxCenter(lower, upper)
		return center, eval(center)
	}

	best := toBox(result.GlobalBest.Position)
	slog.Debug("Mayfly optimization finished",
		"iterations", m.maxIters,
		"population", m.popSize,
		"best_cost", result.GlobalBest.Cost,
	)
	return best, result.GlobalBest.Cost
}
