package regress

import (
	"fmt"
	"math"

	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/linalg"
)

// DefaultRidge is the diagonal regularization used by cross-validation and
// the train/test demos.
const DefaultRidge = 0.001

// Solver solves a square linear system.
type Solver func(A [][]float64, b []float64) ([]float64, error)

// Solvers by name.
var Solvers = map[string]Solver{
	"gauss": linalg.SolveLinearSystem,
	"lu":    linalg.SolveDense,
}

// Polynomial holds coefficients c0..cd of c0 + c1·x + ... + cd·x^d.
type Polynomial []float64

// Degree returns the polynomial degree.
func (p Polynomial) Degree() int {
	return len(p) - 1
}

// Eval evaluates the polynomial at x.
func (p Polynomial) Eval(x float64) float64 {
	return EvalPolynomial(p, x)
}

// EvalPolynomial evaluates sum(coeffs[i]·x^i) by Horner's rule.
func EvalPolynomial(coeffs []float64, x float64) float64 {
	var y float64
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = y*x + coeffs[i]
	}
	return y
}

// FitPolynomial fits a polynomial of the given degree by solving the
// Vandermonde normal equations with ridge added to the diagonal, using
// Gaussian elimination.
func FitPolynomial(pts []dataset.Point, degree int, ridge float64) (Polynomial, error) {
	return FitPolynomialWith(pts, degree, ridge, linalg.SolveLinearSystem)
}

// FitPolynomialWith is FitPolynomial with an explicit solver.
func FitPolynomialWith(pts []dataset.Point, degree int, ridge float64, solve Solver) (Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("negative degree %d", degree)
	}
	m := degree + 1
	if len(pts) < m {
		return nil, fmt.Errorf("degree %d needs %d points, have %d: %w", degree, m, len(pts), ErrTooFewPoints)
	}

	X := make([][]float64, len(pts))
	y := make([]float64, len(pts))
	for i, p := range pts {
		row := make([]float64, m)
		pow := 1.0
		for j := range row {
			row[j] = pow
			pow *= p.X
		}
		X[i] = row
		y[i] = p.Y
	}

	Xt := linalg.Transpose(X)
	XtX, err := linalg.MatMul(Xt, X)
	if err != nil {
		return nil, err
	}
	for i := range XtX {
		XtX[i][i] += ridge
	}
	Xty := linalg.MatVec(Xt, y)

	coeffs, err := solve(XtX, Xty)
	if err != nil {
		return nil, fmt.Errorf("degree %d normal equations: %w", degree, err)
	}
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("degree %d normal equations: %w", degree, linalg.ErrSingular)
		}
	}
	return coeffs, nil
}

// PolynomialCurve samples p at n evenly spaced x in [xMin, xMax].
func PolynomialCurve(p Polynomial, xMin, xMax float64, n int) []dataset.Point {
	xs := dataset.Linspace(xMin, xMax, n)
	out := make([]dataset.Point, len(xs))
	for i, x := range xs {
		out[i] = dataset.Point{X: x, Y: p.Eval(x)}
	}
	return out
}

// Predictions evaluates p at each point's x.
func (p Polynomial) Predictions(pts []dataset.Point) []float64 {
	out := make([]float64, len(pts))
	for i, q := range pts {
		out[i] = p.Eval(q.X)
	}
	return out
}

// Targets returns the y values of pts.
func Targets(pts []dataset.Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Y
	}
	return out
}
