// Package dataset generates the synthetic data sets used by the regression,
// classification and clustering demos, and splits them for evaluation.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/mlplayground/internal/linalg"
)

// ErrInvalidCorrelation is returned when a requested correlation structure
// does not form a positive definite matrix.
var ErrInvalidCorrelation = errors.New("correlation matrix is not positive definite")

// Point is a sample of a one-dimensional regression problem.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	YTrue float64 `json:"y_true,omitempty"`
}

// Point3 is a sample with two predictors.
type Point3 struct {
	X1 float64 `json:"x1"`
	X2 float64 `json:"x2"`
	Y  float64 `json:"y"`
}

// LabeledPoint is a two-feature sample with a class label (0/1 or ±1).
type LabeledPoint struct {
	X1    float64 `json:"x1"`
	X2    float64 `json:"x2"`
	Label int     `json:"label"`
}

// Point2 is an unlabeled point in the plane.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normal draws from N(mean, std²).
func Normal(rng *rand.Rand, mean, std float64) float64 {
	return mean + rng.NormFloat64()*std
}

// Linspace returns n evenly spaced values from start to end inclusive.
func Linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	step := (end - start) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Shuffle returns a shuffled copy of pts.
func Shuffle[T any](rng *rand.Rand, pts []T) []T {
	out := append([]T(nil), pts...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SortByX sorts pts in place by ascending X.
func SortByX(pts []Point) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
}

// GenerateFunc samples n points with x uniform in [xMin, xMax) and
// y = f(x) + N(0, noise²), sorted by x.
func GenerateFunc(rng *rand.Rand, n int, f func(float64) float64, noise, xMin, xMax float64) []Point {
	pts := make([]Point, n)
	for i := range pts {
		x := xMin + rng.Float64()*(xMax-xMin)
		yt := f(x)
		pts[i] = Point{X: x, Y: yt + Normal(rng, 0, noise), YTrue: yt}
	}
	SortByX(pts)
	return pts
}

// GenerateEvenlySpaced places n points at evenly spaced x in [xMin, xMax]
// with y = f(x) + N(0, noise²).
func GenerateEvenlySpaced(rng *rand.Rand, n int, f func(float64) float64, noise, xMin, xMax float64) []Point {
	xs := Linspace(xMin, xMax, n)
	pts := make([]Point, len(xs))
	for i, x := range xs {
		yt := f(x)
		pts[i] = Point{X: x, Y: yt + Normal(rng, 0, noise), YTrue: yt}
	}
	return pts
}

// TrainTestSplit shuffles pts and splits at floor(n*ratio). Both halves are
// sorted by x.
func TrainTestSplit(rng *rand.Rand, pts []Point, ratio float64) (train, test []Point) {
	shuffled := Shuffle(rng, pts)
	idx := int(math.Floor(float64(len(shuffled)) * ratio))
	idx = max(0, min(idx, len(shuffled)))

	train = append([]Point(nil), shuffled[:idx]...)
	test = append([]Point(nil), shuffled[idx:]...)
	SortByX(train)
	SortByX(test)
	return train, test
}

// AssignFolds returns a fold index in [0, k) for each of n points. Fold sizes
// are floor(n/k), with the first n mod k folds holding one extra point.
func AssignFolds(rng *rand.Rand, n, k int) []int {
	if k <= 0 || n <= 0 {
		return make([]int, max(n, 0))
	}
	perm := rng.Perm(n)
	folds := make([]int, n)

	size := n / k
	extra := n % k
	pos := 0
	for f := 0; f < k; f++ {
		count := size
		if f < extra {
			count++
		}
		for j := 0; j < count; j++ {
			folds[perm[pos]] = f
			pos++
		}
	}
	return folds
}

// SplitByFold returns the points outside and inside fold f.
func SplitByFold(pts []Point, folds []int, f int) (train, test []Point) {
	for i, p := range pts {
		if folds[i] == f {
			test = append(test, p)
		} else {
			train = append(train, p)
		}
	}
	return train, test
}

// ClassScores draws n classifier scores from N(mean, std²) clipped to [0, 1].
func ClassScores(rng *rand.Rand, n int, mean, std float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Max(0, math.Min(1, Normal(rng, mean, std)))
	}
	return out
}

// Correlated holds three predictors and a response drawn by CorrelatedGaussian.
type Correlated struct {
	X1, X2, X3 []float64
	Y          []float64
}

// ValidCorrelation reports whether the pairwise correlations of three
// variables form a positive definite correlation matrix, so that data with
// that structure can be drawn.
func ValidCorrelation(r12, r13, r23 float64) bool {
	for _, r := range []float64{r12, r13, r23} {
		if r <= -1 || r >= 1 {
			return false
		}
	}
	return linalg.IsPositiveDefinite(correlation3(r12, r13, r23))
}

func correlation3(r12, r13, r23 float64) [][]float64 {
	return [][]float64{
		{1, r12, r13},
		{r12, 1, r23},
		{r13, r23, 1},
	}
}

// CorrelatedGaussian draws n standard normal triples with the given pairwise
// correlations (via a Cholesky factor) and y = beta·x + N(0, 0.5²).
func CorrelatedGaussian(rng *rand.Rand, n int, r12, r13, r23 float64, beta [3]float64) (*Correlated, error) {
	if !ValidCorrelation(r12, r13, r23) {
		return nil, fmt.Errorf("r12=%.2f r13=%.2f r23=%.2f: %w", r12, r13, r23, ErrInvalidCorrelation)
	}
	L, err := linalg.Cholesky(correlation3(r12, r13, r23))
	if err != nil {
		return nil, fmt.Errorf("r12=%.2f r13=%.2f r23=%.2f: %w", r12, r13, r23, err)
	}

	out := &Correlated{
		X1: make([]float64, n),
		X2: make([]float64, n),
		X3: make([]float64, n),
		Y:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		z1, z2, z3 := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()
		x1 := L[0][0] * z1
		x2 := L[1][0]*z1 + L[1][1]*z2
		x3 := L[2][0]*z1 + L[2][1]*z2 + L[2][2]*z3

		out.X1[i], out.X2[i], out.X3[i] = x1, x2, x3
		out.Y[i] = beta[0]*x1 + beta[1]*x2 + beta[2]*x3 + rng.NormFloat64()*0.5
	}
	return out, nil
}

// CorrelationMatrix returns the sample Pearson correlation matrix of cols.
func CorrelationMatrix(cols ...[]float64) [][]float64 {
	m := len(cols)
	out := make([][]float64, m)
	for i := range out {
		out[i] = make([]float64, m)
		for j := range out[i] {
			if i == j {
				out[i][j] = 1
				continue
			}
			out[i][j] = stat.Correlation(cols[i], cols[j], nil)
		}
	}
	return out
}
