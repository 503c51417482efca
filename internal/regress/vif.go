package regress

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/linalg"
)

const (
	vifDenomEpsilon = 1e-10
	maxAuxR2        = 0.9999
)

// VIFFromCorrelations returns the variance inflation factor of each of three
// predictors given their pairwise correlations.
func VIFFromCorrelations(r12, r13, r23 float64) [3]float64 {
	r2 := [3]float64{
		auxR2(r12, r13, r23),
		auxR2(r12, r23, r13),
		auxR2(r13, r23, r12),
	}

	var vif [3]float64
	for i, v := range r2 {
		v = math.Max(0, math.Min(maxAuxR2, v))
		vif[i] = 1 / (1 - v)
	}
	return vif
}

// auxR2 is the R² of regressing one predictor on the two others, where a and
// b are its correlations with them and c is their mutual correlation.
func auxR2(a, b, c float64) float64 {
	denom := 1 - c*c
	if math.Abs(denom) < vifDenomEpsilon {
		return math.Max(a*a, b*b)
	}
	return (a*a + b*b - 2*a*b*c) / denom
}

// VIFSeverity buckets a VIF value for display.
func VIFSeverity(vif float64) string {
	switch {
	case vif < 5:
		return "low"
	case vif < 10:
		return "moderate"
	default:
		return "high"
	}
}

// OLS3 is the result of a three-predictor regression on centered data.
type OLS3 struct {
	Beta   [3]float64 `json:"beta"`
	SE     [3]float64 `json:"se"`
	Sigma2 float64    `json:"sigma2"`
}

// MultipleOLS3 regresses y on x1..x3 after centering every column, using the
// explicit 3x3 inverse of XᵀX.
func MultipleOLS3(y, x1, x2, x3 []float64) (OLS3, error) {
	n := len(y)
	if n <= 3 {
		return OLS3{}, fmt.Errorf("three-predictor OLS with %d rows: %w", n, ErrTooFewPoints)
	}

	center := func(v []float64) []float64 {
		m := stat.Mean(v, nil)
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = x - m
		}
		return out
	}
	cy, c1, c2, c3 := center(y), center(x1), center(x2), center(x3)
	cols := [3][]float64{c1, c2, c3}

	var XtX [3][3]float64
	var Xty [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			XtX[i][j] = linalg.Dot(cols[i], cols[j])
		}
		Xty[i] = linalg.Dot(cols[i], cy)
	}

	inv, err := linalg.Invert3x3(XtX)
	if err != nil {
		return OLS3{}, fmt.Errorf("invert XᵀX: %w", err)
	}
	beta := linalg.MulVec3(inv, Xty)

	var sse float64
	for i := 0; i < n; i++ {
		d := cy[i] - (beta[0]*c1[i] + beta[1]*c2[i] + beta[2]*c3[i])
		sse += d * d
	}
	sigma2 := sse / float64(n-3)

	return OLS3{
		Beta:   beta,
		Sigma2: sigma2,
		SE: [3]float64{
			math.Sqrt(sigma2 * inv[0][0]),
			math.Sqrt(sigma2 * inv[1][1]),
			math.Sqrt(sigma2 * inv[2][2]),
		},
	}, nil
}

// SimulateBeta1 draws reps correlated samples of size n and returns the
// estimated β₁ of each successful fit, showing how collinearity inflates the
// sampling spread.
func SimulateBeta1(rng *rand.Rand, reps, n int, r12, r13, r23 float64, beta [3]float64) ([]float64, error) {
	out := make([]float64, 0, reps)
	for i := 0; i < reps; i++ {
		data, err := dataset.CorrelatedGaussian(rng, n, r12, r13, r23, beta)
		if err != nil {
			return nil, err
		}
		fit, err := MultipleOLS3(data.Y, data.X1, data.X2, data.X3)
		if err != nil {
			continue
		}
		out = append(out, fit.Beta[0])
	}
	return out, nil
}
