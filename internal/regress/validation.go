package regress

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/mlplayground/internal/dataset"
)

// Bias-variance sweep constants.
const (
	mseCap        = 2.0
	failedFitMSE  = 0.5
	learningStart = 50
	learningEnd   = 90
	learningStep  = 5
)

// DegreeError is the train/test error of one polynomial degree.
type DegreeError struct {
	Degree   int     `json:"degree"`
	TrainMSE float64 `json:"train_mse"`
	TestMSE  float64 `json:"test_mse"`
	Failed   bool    `json:"failed,omitempty"`
}

// BiasVarianceSweep fits polynomials of degree 1..maxDegree on train and
// reports train/test MSE for each, capped at 2. Fits that fail record 0.5 for
// both errors.
func BiasVarianceSweep(train, test []dataset.Point, maxDegree int) []DegreeError {
	out := make([]DegreeError, 0, maxDegree)
	for deg := 1; deg <= maxDegree; deg++ {
		coeffs, err := FitPolynomial(train, deg, 0)
		if err != nil {
			out = append(out, DegreeError{Degree: deg, TrainMSE: failedFitMSE, TestMSE: failedFitMSE, Failed: true})
			continue
		}
		trainMSE := MSE(Targets(train), coeffs.Predictions(train))
		testMSE := MSE(Targets(test), coeffs.Predictions(test))
		out = append(out, DegreeError{
			Degree:   deg,
			TrainMSE: math.Min(trainMSE, mseCap),
			TestMSE:  math.Min(testMSE, mseCap),
		})
	}
	return out
}

// BestDegree returns the degree with the lowest test MSE, preferring the
// simpler model on ties. It returns 0 for an empty sweep.
func BestDegree(sweep []DegreeError) int {
	best := 0
	bestMSE := math.Inf(1)
	for _, e := range sweep {
		if e.TestMSE < bestMSE {
			best, bestMSE = e.Degree, e.TestMSE
		}
	}
	return best
}

// FoldResult is the outcome of one cross-validation fold.
type FoldResult struct {
	Fold     int        `json:"fold"`
	TrainN   int        `json:"train_n"`
	TestN    int        `json:"test_n"`
	Coeffs   Polynomial `json:"coeffs"`
	TrainMSE float64    `json:"train_mse"`
	TestMSE  float64    `json:"test_mse"`
}

// CVResult summarizes k-fold cross-validation.
type CVResult struct {
	Folds   []FoldResult `json:"folds"`
	MeanMSE float64      `json:"mean_mse"`
	StdMSE  float64      `json:"std_mse"`
}

// CrossValidate fits a ridge-stabilized polynomial on all folds but one and
// scores it on the held-out fold. The reported spread is the population
// standard deviation of the fold MSEs.
func CrossValidate(pts []dataset.Point, folds []int, k, degree int) (CVResult, error) {
	if len(folds) != len(pts) {
		return CVResult{}, fmt.Errorf("%d fold labels for %d points", len(folds), len(pts))
	}

	res := CVResult{Folds: make([]FoldResult, 0, k)}
	mses := make([]float64, 0, k)
	for f := 0; f < k; f++ {
		train, test := dataset.SplitByFold(pts, folds, f)
		coeffs, err := FitPolynomial(train, degree, DefaultRidge)
		if err != nil {
			return CVResult{}, fmt.Errorf("fold %d: %w", f, err)
		}
		fr := FoldResult{
			Fold:     f,
			TrainN:   len(train),
			TestN:    len(test),
			Coeffs:   coeffs,
			TrainMSE: MSE(Targets(train), coeffs.Predictions(train)),
			TestMSE:  MSE(Targets(test), coeffs.Predictions(test)),
		}
		res.Folds = append(res.Folds, fr)
		mses = append(mses, fr.TestMSE)
	}

	if len(mses) > 0 {
		res.MeanMSE, res.StdMSE = stat.PopMeanStdDev(mses, nil)
	}
	return res, nil
}

// CurvePoint is one training-set fraction of a learning curve.
type CurvePoint struct {
	Percent  int     `json:"percent"`
	TrainMSE float64 `json:"train_mse"`
	TestMSE  float64 `json:"test_mse"`
}

// LearningCurve reshuffles pts for each training fraction from 50% to 90%
// in steps of 5 and reports the errors of a ridge polynomial fit. Fractions
// too small to fit record zero errors.
func LearningCurve(rng *rand.Rand, pts []dataset.Point, degree int) []CurvePoint {
	var out []CurvePoint
	for pct := learningStart; pct <= learningEnd; pct += learningStep {
		train, test := dataset.TrainTestSplit(rng, pts, float64(pct)/100)
		cp := CurvePoint{Percent: pct}
		if coeffs, err := FitPolynomial(train, degree, DefaultRidge); err == nil {
			cp.TrainMSE = MSE(Targets(train), coeffs.Predictions(train))
			cp.TestMSE = MSE(Targets(test), coeffs.Predictions(test))
		}
		out = append(out, cp)
	}
	return out
}

// TrainTestResult is a single train/test evaluation.
type TrainTestResult struct {
	Coeffs   Polynomial `json:"coeffs"`
	TrainMSE float64    `json:"train_mse"`
	TestMSE  float64    `json:"test_mse"`
	TrainR2  float64    `json:"train_r2"`
	TestR2   float64    `json:"test_r2"`
}

// TrainTest fits on train and scores both halves.
func TrainTest(train, test []dataset.Point, degree int, ridge float64) (TrainTestResult, error) {
	coeffs, err := FitPolynomial(train, degree, ridge)
	if err != nil {
		return TrainTestResult{}, err
	}
	trainPred, testPred := coeffs.Predictions(train), coeffs.Predictions(test)
	return TrainTestResult{
		Coeffs:   coeffs,
		TrainMSE: MSE(Targets(train), trainPred),
		TestMSE:  MSE(Targets(test), testPred),
		TrainR2:  R2(Targets(train), trainPred),
		TestR2:   R2(Targets(test), testPred),
	}, nil
}

// Scenario is a ground-truth curve for the extrapolation demo.
type Scenario struct {
	Name string
	F    func(float64) float64
}

// Scenarios holds the extrapolation ground truths by name.
var Scenarios = map[string]Scenario{
	"quadratic":   {Name: "quadratic", F: func(x float64) float64 { return 5 + 2*x + 0.15*x*x }},
	"logarithmic": {Name: "logarithmic", F: func(x float64) float64 { return 10 + 8*math.Log(x) }},
	"saturation":  {Name: "saturation", F: func(x float64) float64 { return 35 * (1 - math.Exp(-0.3*x)) }},
	"sinusoidal":  {Name: "sinusoidal", F: func(x float64) float64 { return 15 + 3*math.Sin(0.5*x) + 1.5*x }},
}

// ScenarioNames returns the scenario keys in sorted order.
func ScenarioNames() []string {
	names := make([]string, 0, len(Scenarios))
	for k := range Scenarios {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ErrNoHorizon is returned when the prediction horizon does not extend past
// the training range.
var ErrNoHorizon = errors.New("horizon does not exceed training range")

// ExtrapolationResult compares in-range fit quality to error beyond the data.
type ExtrapolationResult struct {
	Line          Line    `json:"line"`
	TrainRMSE     float64 `json:"train_rmse"`
	ExtrapRMSE    float64 `json:"extrap_rmse"`
	ExtrapSamples int     `json:"extrap_samples"`
	Severity      string  `json:"severity"`
}

const extrapStep = 0.5

// Extrapolate fits a line to train and measures RMSE against f from
// xMax+0.5 to horizon in steps of 0.5.
func Extrapolate(train []dataset.Point, f func(float64) float64, xMax, horizon float64) (ExtrapolationResult, error) {
	line := FitLine(train)
	yTrue := Targets(train)
	yPred := make([]float64, len(train))
	for i, p := range train {
		yPred[i] = line.Predict(p.X)
	}
	res := ExtrapolationResult{Line: line, TrainRMSE: RMSE(yTrue, yPred)}

	if horizon <= xMax {
		return res, ErrNoHorizon
	}

	var sum float64
	var count int
	for i := 1; ; i++ {
		x := xMax + float64(i)*extrapStep
		if x > horizon {
			break
		}
		d := line.Predict(x) - f(x)
		sum += d * d
		count++
	}
	if count > 0 {
		res.ExtrapRMSE = math.Sqrt(sum / float64(count))
	}
	res.ExtrapSamples = count

	switch {
	case res.ExtrapRMSE < res.TrainRMSE*2:
		res.Severity = "good"
	case res.ExtrapRMSE < res.TrainRMSE*5:
		res.Severity = "warning"
	default:
		res.Severity = "danger"
	}
	return res, nil
}
