package regress

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/linalg"
)

func linePoints(slope, intercept float64, xs ...float64) []dataset.Point {
	pts := make([]dataset.Point, len(xs))
	for i, x := range xs {
		pts[i] = dataset.Point{X: x, Y: slope*x + intercept}
	}
	return pts
}

func TestFitLine(t *testing.T) {
	tests := []struct {
		name string
		pts  []dataset.Point
		want Line
	}{
		{
			name: "exact line",
			pts:  linePoints(2, 1, 0, 1, 2, 3, 4),
			want: Line{Slope: 2, Intercept: 1},
		},
		{
			name: "single point",
			pts:  []dataset.Point{{X: 3, Y: 4}},
			want: Line{Slope: 1, Intercept: 0},
		},
		{
			name: "empty",
			pts:  nil,
			want: Line{Slope: 1, Intercept: 0},
		},
		{
			name: "vertical stack",
			pts:  []dataset.Point{{X: 2, Y: 1}, {X: 2, Y: 3}, {X: 2, Y: 5}},
			want: Line{Slope: 0, Intercept: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitLine(tt.pts)
			assert.InDelta(t, tt.want.Slope, got.Slope, 1e-9)
			assert.InDelta(t, tt.want.Intercept, got.Intercept, 1e-9)
		})
	}
}

func TestLineRSS(t *testing.T) {
	l := Line{Slope: 1}
	pts := []dataset.Point{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 0}}
	assert.InDelta(t, 1+0+4, l.RSS(pts), 1e-12)
}

func TestFitPlane(t *testing.T) {
	var pts []dataset.Point3
	for _, x1 := range []float64{-1, 0, 1, 2} {
		for _, x2 := range []float64{0, 1, 3} {
			pts = append(pts, dataset.Point3{X1: x1, X2: x2, Y: 0.5 + 1.5*x1 - 0.75*x2})
		}
	}
	p, err := FitPlane(pts)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.B0, 1e-9)
	assert.InDelta(t, 1.5, p.B1, 1e-9)
	assert.InDelta(t, -0.75, p.B2, 1e-9)
	assert.InDelta(t, 0, p.RSS(pts), 1e-12)
	assert.InDelta(t, 1, p.R2(pts), 1e-12)

	_, err = FitPlane(pts[:2])
	require.ErrorIs(t, err, ErrTooFewPoints)

	collinear := []dataset.Point3{{X1: 1, X2: 2, Y: 1}, {X1: 2, X2: 4, Y: 2}, {X1: 3, X2: 6, Y: 3}}
	_, err = FitPlane(collinear)
	require.ErrorIs(t, err, linalg.ErrSingular)
}

func TestFitPolynomialRecoversCubic(t *testing.T) {
	f := func(x float64) float64 { return 1 - 2*x + 0.5*x*x*x }
	var pts []dataset.Point
	for _, x := range dataset.Linspace(-2, 2, 12) {
		pts = append(pts, dataset.Point{X: x, Y: f(x)})
	}

	for name, solve := range Solvers {
		coeffs, err := FitPolynomialWith(pts, 3, 0, solve)
		require.NoError(t, err, name)
		assert.InDeltaSlice(t, []float64{1, -2, 0, 0.5}, []float64(coeffs), 1e-8, name)
		assert.Equal(t, 3, coeffs.Degree())
	}
}

func TestFitPolynomialTooFewPoints(t *testing.T) {
	_, err := FitPolynomial(linePoints(1, 0, 0, 1), 3, DefaultRidge)
	require.ErrorIs(t, err, ErrTooFewPoints)
}

func TestEvalPolynomialAndCurve(t *testing.T) {
	p := Polynomial{1, 2, 3}
	assert.Equal(t, 1.0, p.Eval(0))
	assert.Equal(t, 17.0, p.Eval(2))

	curve := PolynomialCurve(p, 0, 1, 3)
	require.Len(t, curve, 3)
	assert.InDelta(t, 1+1+0.75, curve[1].Y, 1e-12)
}

func TestMetrics(t *testing.T) {
	yTrue := []float64{3, -0.5, 2, 7}
	yPred := []float64{2.5, 0.0, 2, 8}

	assert.InDelta(t, 0.375, MSE(yTrue, yPred), 1e-12)
	assert.InDelta(t, math.Sqrt(0.375), RMSE(yTrue, yPred), 1e-12)
	assert.InDelta(t, 0.5, MAE(yTrue, yPred), 1e-12)
	assert.InDelta(t, 0.9486081370449679, R2(yTrue, yPred), 1e-12)
	assert.InDelta(t, 1.5, RSS(yTrue, yPred), 1e-12)

	// |y| <= 0.01 is skipped
	assert.InDelta(t, 50.0, MAPE([]float64{0.005, 2}, []float64{10, 1}), 1e-12)
	assert.Equal(t, 0.0, MAPE([]float64{0}, []float64{1}))

	assert.Equal(t, 0.0, R2([]float64{1, 1, 1}, []float64{0, 1, 2}))
	assert.Equal(t, 0.0, MSE(nil, nil))
}

func TestAdjustedR2(t *testing.T) {
	assert.InDelta(t, 1-(1-0.8)*9.0/8.0, AdjustedR2(0.8, 10, 1), 1e-12)
	assert.Equal(t, 0.8, AdjustedR2(0.8, 2, 1))
}

func TestNewReport(t *testing.T) {
	r := NewReport([]float64{1, 2, 3}, []float64{1, 2, 3}, 1)
	assert.Equal(t, 3, r.N)
	assert.Equal(t, 0.0, r.MSE)
	assert.Equal(t, 1.0, r.R2)
	assert.Equal(t, Report{}, NewReport(nil, nil, 1))
}

func TestNormalQuantile(t *testing.T) {
	assert.InDelta(t, 0, NormalQuantile(0.5), 1e-9)
	assert.InDelta(t, 1.959964, NormalQuantile(0.975), 1e-4)
	assert.InDelta(t, -2.326348, NormalQuantile(0.01), 1e-4)
	assert.Equal(t, -3.0, NormalQuantile(0))
	assert.Equal(t, 3.0, NormalQuantile(1))
}

func TestDurbinWatson(t *testing.T) {
	assert.Equal(t, 2.0, DurbinWatson([]float64{0, 0, 0}))
	assert.InDelta(t, 12.0/4.0, DurbinWatson([]float64{1, -1, 1, -1}), 1e-12)
}

func TestDiagnoseIdealVsViolations(t *testing.T) {
	fit := func(pts []dataset.Point) Diagnostics {
		line := FitLine(pts)
		x := make([]float64, len(pts))
		res := make([]float64, len(pts))
		fitted := make([]float64, len(pts))
		for i, p := range pts {
			x[i] = p.X
			fitted[i] = line.Predict(p.X)
			res[i] = p.Y - fitted[i]
		}
		return Diagnose(x, res, fitted)
	}

	rng := rand.New(rand.NewSource(42))
	auto := fit(dataset.AssumptionData(rng, 100, dataset.ScenarioAutocorrelated, 1))
	assert.Less(t, auto.DurbinWatson, 1.0)
	assert.Less(t, auto.AutocorrP, Alpha)
	assert.False(t, auto.Passes()["independence"])

	nonlinear := fit(dataset.AssumptionData(rng, 100, dataset.ScenarioNonlinear, 1))
	assert.Less(t, nonlinear.LinearityP, Alpha)

	for _, d := range []Diagnostics{auto, nonlinear} {
		for _, p := range []float64{d.NormalityP, d.HeteroP, d.AutocorrP, d.LinearityP} {
			assert.GreaterOrEqual(t, p, 0.001)
			assert.LessOrEqual(t, p, 0.999)
		}
	}
}

func TestDiagnoseTooFew(t *testing.T) {
	d := Diagnose([]float64{1}, []float64{0.3}, []float64{1})
	assert.Equal(t, 2.0, d.DurbinWatson)
}

func TestVIFFromCorrelations(t *testing.T) {
	assert.Equal(t, [3]float64{1, 1, 1}, VIFFromCorrelations(0, 0, 0))

	vif := VIFFromCorrelations(0.9, 0, 0)
	assert.InDelta(t, 1/(1-0.81), vif[0], 1e-9)
	assert.InDelta(t, 1/(1-0.81), vif[1], 1e-9)
	assert.InDelta(t, 1, vif[2], 1e-9)

	// perfect collinearity is capped at R² = 0.9999
	capped := VIFFromCorrelations(1, 1, 1)
	for _, v := range capped {
		assert.InDelta(t, 10000, v, 1e-6)
	}

	assert.Equal(t, "low", VIFSeverity(1.2))
	assert.Equal(t, "moderate", VIFSeverity(7))
	assert.Equal(t, "high", VIFSeverity(12))
}

func TestMultipleOLS3(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data, err := dataset.CorrelatedGaussian(rng, 500, 0.3, 0.2, 0.1, [3]float64{1.5, -1, 0.5})
	require.NoError(t, err)

	fit, err := MultipleOLS3(data.Y, data.X1, data.X2, data.X3)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, fit.Beta[0], 0.1)
	assert.InDelta(t, -1, fit.Beta[1], 0.1)
	assert.InDelta(t, 0.5, fit.Beta[2], 0.1)
	assert.InDelta(t, 0.25, fit.Sigma2, 0.05)
	for _, se := range fit.SE {
		assert.Greater(t, se, 0.0)
	}

	_, err = MultipleOLS3([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, []float64{1, 2})
	require.ErrorIs(t, err, ErrTooFewPoints)
}

func TestSimulateBeta1SpreadGrowsWithCollinearity(t *testing.T) {
	spread := func(r float64) float64 {
		betas, err := SimulateBeta1(rand.New(rand.NewSource(8)), 60, 50, r, r, r, [3]float64{1, 1, 1})
		require.NoError(t, err)
		require.NotEmpty(t, betas)
		var m, v float64
		for _, b := range betas {
			m += b
		}
		m /= float64(len(betas))
		for _, b := range betas {
			v += (b - m) * (b - m)
		}
		return v / float64(len(betas))
	}
	assert.Greater(t, spread(0.95), spread(0.0))
}

func TestBiasVarianceSweep(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f := func(x float64) float64 { return math.Sin(2*math.Pi*x)*0.5 + 0.5*x + 0.3 }
	all := dataset.GenerateFunc(rng, 40, f, 0.1, 0, 1)
	train, test := dataset.TrainTestSplit(rng, all, 0.7)

	sweep := BiasVarianceSweep(train, test, 15)
	require.Len(t, sweep, 15)
	for i, e := range sweep {
		assert.Equal(t, i+1, e.Degree)
		assert.LessOrEqual(t, e.TrainMSE, 2.0)
		assert.LessOrEqual(t, e.TestMSE, 2.0)
		if e.Failed {
			assert.Equal(t, 0.5, e.TrainMSE)
		}
	}
	// a cubic captures one sine period far better than a line
	assert.Less(t, sweep[2].TrainMSE, sweep[0].TrainMSE)
	assert.NotZero(t, BestDegree(sweep))
	assert.Zero(t, BestDegree(nil))
}

func TestCrossValidate(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	f := func(x float64) float64 { return 0.5*math.Sin(2*math.Pi*x) + 0.3*x }
	pts := dataset.GenerateFunc(rng, 30, f, 0.05, 0, 1)
	folds := dataset.AssignFolds(rng, len(pts), 5)

	res, err := CrossValidate(pts, folds, 5, 3)
	require.NoError(t, err)
	require.Len(t, res.Folds, 5)

	total := 0
	var sum float64
	for _, fr := range res.Folds {
		total += fr.TestN
		sum += fr.TestMSE
		assert.Equal(t, len(pts)-fr.TestN, fr.TrainN)
	}
	assert.Equal(t, len(pts), total)
	assert.InDelta(t, sum/5, res.MeanMSE, 1e-12)
	assert.GreaterOrEqual(t, res.StdMSE, 0.0)

	_, err = CrossValidate(pts, folds[:3], 5, 3)
	require.Error(t, err)
}

func TestLearningCurve(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	pts := dataset.GenerateFunc(rng, 40, math.Sin, 0.1, 0, 1)
	curve := LearningCurve(rng, pts, 3)
	require.Len(t, curve, 9)
	assert.Equal(t, 50, curve[0].Percent)
	assert.Equal(t, 90, curve[8].Percent)
}

func TestTrainTest(t *testing.T) {
	train := linePoints(2, 1, 0, 1, 2, 3)
	test := linePoints(2, 1, 4, 5)
	res, err := TrainTest(train, test, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.TestMSE, 1e-9)
	assert.InDelta(t, 1, res.TrainR2, 1e-9)
}

func TestExtrapolate(t *testing.T) {
	sc := Scenarios["quadratic"]
	rng := rand.New(rand.NewSource(4))
	train := dataset.GenerateEvenlySpaced(rng, 15, sc.F, 1.5, 2, 10)

	res, err := Extrapolate(train, sc.F, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, res.ExtrapSamples)
	assert.Greater(t, res.ExtrapRMSE, res.TrainRMSE)

	_, err = Extrapolate(train, sc.F, 10, 10)
	require.ErrorIs(t, err, ErrNoHorizon)

	assert.Equal(t, []string{"logarithmic", "quadratic", "saturation", "sinusoidal"}, ScenarioNames())
}
