package opt

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Local method names accepted by NewGonum.
const (
	MethodBFGS       = "bfgs"
	MethodNelderMead = "neldermead"
)

// GonumAdapter runs a gonum local optimizer from the center of the box.
// Candidates are projected onto the box before evaluation.
type GonumAdapter struct {
	method   string
	maxIters int
}

// NewGonum creates a local optimizer adapter for "bfgs" or "neldermead".
func NewGonum(method string, maxIters int) (Optimizer, error) {
	switch method {
	case MethodBFGS, MethodNelderMead:
	default:
		return nil, fmt.Errorf("unknown gonum method %q", method)
	}
	return &GonumAdapter{method: method, maxIters: maxIters}, nil
}

// Run minimizes eval starting at the box center.
func (g *GonumAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	projected := func(x []float64) float64 {
		p := append([]float64(nil), x...)
		clampToBox(p, lower, upper)
		return eval(p)
	}

	problem := optimize.Problem{
		Func: projected,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, projected, x, nil)
		},
	}
	settings := optimize.Settings{
		MajorIterations:   g.maxIters,
		GradientThreshold: 1e-8,
	}

	var method optimize.Method
	if g.method == MethodNelderMead {
		method = &optimize.NelderMead{}
	} else {
		method = &optimize.BFGS{}
	}

	x0 := boxCenter(lower, upper)
	result, err := optimize.Minimize(problem, x0, &settings, method)
	if result == nil {
		slog.Warn("Gonum optimization failed, returning box center", "method", g.method, "error", err)
		return x0, eval(x0)
	}
	if err != nil {
		slog.Debug("Gonum optimization stopped early", "method", g.method, "error", err)
	}

	best := append([]float64(nil), result.X...)
	clampToBox(best, lower, upper)
	slog.Debug("Gonum optimization finished",
		"method", g.method,
		"status", result.Status.String(),
		"func_evals", result.Stats.FuncEvaluations,
	)
	return best, eval(best)
}
