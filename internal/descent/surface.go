// Package descent runs gradient descent on small two-parameter loss
// surfaces and compares it with black-box optimizers.
package descent

import (
	"fmt"
	"math"
	"sort"
)

// Surface is a differentiable loss over (w1, w2) restricted to
// [-Range, Range]².
type Surface struct {
	Name     string
	Equation string
	Loss     func(w1, w2 float64) float64
	Gradient func(w1, w2 float64) (g1, g2 float64)
	Minimum  [2]float64
	Range    float64
}

// Bowl is the convex quadratic w1² + w2².
var Bowl = Surface{
	Name:     "quadratic",
	Equation: "L(w1, w2) = w1² + w2²",
	Loss:     func(w1, w2 float64) float64 { return w1*w1 + w2*w2 },
	Gradient: func(w1, w2 float64) (float64, float64) { return 2 * w1, 2 * w2 },
	Range:    3,
}

// Elongated is an ill-conditioned bowl that makes large steps oscillate
// along w1.
var Elongated = Surface{
	Name:     "elongated",
	Equation: "L(w1, w2) = 10·w1² + w2²",
	Loss:     func(w1, w2 float64) float64 { return 10*w1*w1 + w2*w2 },
	Gradient: func(w1, w2 float64) (float64, float64) { return 20 * w1, 2 * w2 },
	Range:    3,
}

// Rosenbrock is a curved valley with its minimum at (1, 1).
var Rosenbrock = Surface{
	Name:     "rosenbrock",
	Equation: "L(w1, w2) = (1-w1)² + 5·(w2-w1²)²",
	Loss: func(w1, w2 float64) float64 {
		a, b := 1-w1, w2-w1*w1
		return a*a + 5*b*b
	},
	Gradient: func(w1, w2 float64) (float64, float64) {
		return 2*(w1-1) - 20*w1*(w2-w1*w1), 10 * (w2 - w1*w1)
	},
	Minimum: [2]float64{1, 1},
	Range:   2.5,
}

// Rastrigin is multimodal with local minima near every integer point.
var Rastrigin = Surface{
	Name:     "rastrigin",
	Equation: "L(w1, w2) = 2 + Σ(wi² - cos(2π·wi))",
	Loss: func(w1, w2 float64) float64 {
		return 2 + (w1*w1 - math.Cos(2*math.Pi*w1)) + (w2*w2 - math.Cos(2*math.Pi*w2))
	},
	Gradient: func(w1, w2 float64) (float64, float64) {
		return 2*w1 + 2*math.Pi*math.Sin(2*math.Pi*w1), 2*w2 + 2*math.Pi*math.Sin(2*math.Pi*w2)
	},
	Range: 2,
}

// Surfaces indexes the built-in surfaces by name.
var Surfaces = map[string]Surface{
	Bowl.Name:       Bowl,
	Elongated.Name:  Elongated,
	Rosenbrock.Name: Rosenbrock,
	Rastrigin.Name:  Rastrigin,
}

// Lookup returns the named surface.
func Lookup(name string) (Surface, error) {
	s, ok := Surfaces[name]
	if !ok {
		return Surface{}, fmt.Errorf("unknown surface %q (have %v)", name, SurfaceNames())
	}
	return s, nil
}

// SurfaceNames lists the built-in surfaces in sorted order.
func SurfaceNames() []string {
	names := make([]string, 0, len(Surfaces))
	for n := range Surfaces {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clamp projects w onto the surface domain.
func (s Surface) Clamp(w [2]float64) [2]float64 {
	for i := range w {
		w[i] = math.Max(-s.Range, math.Min(s.Range, w[i]))
	}
	return w
}

// LossAt evaluates the loss at w.
func (s Surface) LossAt(w [2]float64) float64 {
	return s.Loss(w[0], w[1])
}
