package classify

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/opt"
)

func separable(t *testing.T) []dataset.LabeledPoint {
	t.Helper()
	pts, err := dataset.MarginPreset("separable")
	require.NoError(t, err)
	return pts
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	prev := Sigmoid(-10)
	for z := -9.5; z <= 10; z += 0.5 {
		cur := Sigmoid(z)
		assert.Greater(t, cur, prev, "z=%v", z)
		prev = cur
	}
	assert.InDelta(t, 1-Sigmoid(2), Sigmoid(-2), 1e-12)
}

func TestCrossEntropy(t *testing.T) {
	assert.Less(t, CrossEntropy(1, 0.999999), 1e-5)
	assert.Greater(t, CrossEntropy(1, 1e-9), 20.0)
	assert.Less(t, CrossEntropy(0, 1e-6), 1e-5)
	assert.False(t, math.IsInf(CrossEntropy(1, 0), 1), "clipping keeps the loss finite")
	assert.InDelta(t, math.Log(2), CrossEntropy(0, 0.5), 1e-12)

	assert.Equal(t, 0.25, SquaredLoss(1, 0.5))
	assert.Equal(t, 1.0, SquaredLoss(0, 1))
}

func TestLossCurve(t *testing.T) {
	curve := LossCurve(1, 9)
	require.Len(t, curve, 9)
	assert.InDelta(t, 0.1, curve[0].YHat, 1e-12)
	assert.InDelta(t, 0.9, curve[8].YHat, 1e-12)
	for i := 1; i < len(curve); i++ {
		assert.Less(t, curve[i].CrossEntropy, curve[i-1].CrossEntropy)
	}
	// log loss punishes confident mistakes harder than squared loss
	assert.Greater(t, curve[0].CrossEntropy, curve[0].Squared)
}

func TestLogisticTrain(t *testing.T) {
	data := ToBinary(separable(t))

	var m Logistic
	before := m.Loss(data)
	history := m.Train(data, DefaultTrainConfig())
	require.NotEmpty(t, history)

	assert.InDelta(t, math.Log(2), before, 1e-12)
	assert.Less(t, history[len(history)-1], 0.1)
	assert.Equal(t, 1.0, m.Accuracy(data))
	for i := 1; i < len(history); i++ {
		assert.LessOrEqual(t, history[i], history[i-1]+1e-12)
	}
}

func TestLogisticStopsOnPlateau(t *testing.T) {
	data := []dataset.LabeledPoint{{X1: 0, X2: 0, Label: 0}, {X1: 0, X2: 0, Label: 1}}
	var m Logistic
	history := m.Train(data, TrainConfig{LearningRate: 0.5, MaxIters: 1000, Window: 10, Tolerance: 1e-4})
	assert.Len(t, history, 11, "loss is flat at log 2 from the first step")
}

func TestLogisticBoundary(t *testing.T) {
	m := Logistic{W1: 1, W2: 2, B: -2}
	x2, ok := m.BoundaryX2(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, x2)
	assert.Equal(t, 0.5, m.Predict(0, x2))

	_, ok = Logistic{W1: 1}.BoundaryX2(0)
	assert.False(t, ok)
}

func TestKNNTieBreakNearest(t *testing.T) {
	m := KNN{Train: []dataset.LabeledPoint{{X1: 0, X2: 0, Label: 0}, {X1: 1, X2: 0, Label: 1}}}

	v, ok := m.Classify(0.4, 0, 2)
	require.True(t, ok)
	assert.Equal(t, 0, v.Label)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, v.Counts)

	v, ok = m.Classify(0.6, 0, 2)
	require.True(t, ok)
	assert.Equal(t, 1, v.Label)
}

func TestKNNClampsK(t *testing.T) {
	m := KNN{Train: []dataset.LabeledPoint{{X1: 0, X2: 0, Label: 2}, {X1: 5, X2: 5, Label: 2}}}
	v, ok := m.Classify(1, 1, 10)
	require.True(t, ok)
	assert.Len(t, v.Neighbors, 2)
	assert.Equal(t, 2, v.Label)
	assert.Less(t, v.Neighbors[0].Distance, v.Neighbors[1].Distance)

	_, ok = KNN{}.Classify(0, 0, 3)
	assert.False(t, ok)
	_, ok = m.Classify(0, 0, 0)
	assert.False(t, ok)
}

func TestKNNOnClusters(t *testing.T) {
	m := KNN{Train: dataset.KNNClasses(rand.New(rand.NewSource(2)))}

	cases := []struct {
		x1, x2 float64
		want   int
	}{
		{175, 140, 0},
		{425, 340, 1},
		{300, 230, 2},
	}
	for _, tc := range cases {
		v, ok := m.Classify(tc.x1, tc.x2, 5)
		require.True(t, ok)
		assert.Equal(t, tc.want, v.Label, "query (%v, %v)", tc.x1, tc.x2)
	}
	assert.Equal(t, 1.0, m.Accuracy(m.Train, 1), "1-NN memorizes its training set")
}

func TestKNNDecisionGrid(t *testing.T) {
	m := KNN{Train: []dataset.LabeledPoint{{X1: 0, X2: 0, Label: 0}, {X1: 20, X2: 0, Label: 1}}}
	g := m.DecisionGrid(20, 10, 10, 1)
	assert.Equal(t, [][]int{{0, 1}}, g)

	empty := KNN{}.DecisionGrid(10, 10, 10, 1)
	assert.Equal(t, [][]int{{-1}}, empty)
}

func TestComplexityAndDiagnose(t *testing.T) {
	assert.Equal(t, 10, ComplexityK(1))
	assert.Equal(t, 1, ComplexityK(10))
	assert.Equal(t, 1, ComplexityK(15))

	assert.Equal(t, Underfit, Diagnose(0.6, 0.5))
	assert.Equal(t, Overfit, Diagnose(1.0, 0.7))
	assert.Equal(t, GoodFit, Diagnose(0.9, 0.85))
}

func TestHyperplaneGeometry(t *testing.T) {
	h := Hyperplane{B0: -1, B1: 3, B2: 4}
	assert.Equal(t, 5.0, h.Norm())
	assert.Equal(t, 0.2, h.Margin())
	assert.InDelta(t, 1.0, h.Distance(2, 0), 1e-12)
	assert.Equal(t, 1, h.Classify(1, 1))
	assert.Equal(t, -1, h.Classify(0, 0))

	assert.True(t, math.IsInf(Hyperplane{B0: 1}.Margin(), 1))
	assert.True(t, math.IsInf(Hyperplane{B0: 1}.Distance(0, 0), 1))
}

func TestFitHardMargin(t *testing.T) {
	data := separable(t)
	h, err := FitHardMargin(data)
	require.NoError(t, err)

	minAbs := math.Inf(1)
	for _, p := range data {
		assert.Equal(t, p.Label, h.Classify(p.X1, p.X2))
		minAbs = math.Min(minAbs, math.Abs(h.Value(p.X1, p.X2)))
	}
	assert.InDelta(t, 1, minAbs, 1e-9, "closest point sits on the margin")
	assert.NotEmpty(t, HardMarginSupportVectors(h, data))
}

func TestFitNeedsBothClasses(t *testing.T) {
	data := []dataset.LabeledPoint{{X1: 0, X2: 0, Label: 1}, {X1: 1, X2: 1, Label: 1}}
	_, err := FitHardMargin(data)
	require.ErrorIs(t, err, ErrNeedBothClasses)
	_, err = FitSoftMargin(data, 1)
	require.ErrorIs(t, err, ErrNeedBothClasses)
}

func TestFitSoftMarginNormalization(t *testing.T) {
	data := separable(t)
	h, err := FitSoftMargin(data, 10)
	require.NoError(t, err)

	minPos := math.Inf(1)
	for _, p := range data {
		assert.Equal(t, p.Label, h.Classify(p.X1, p.X2))
		if fm := h.FunctionalMargin(p); fm > 0 {
			minPos = math.Min(minPos, fm)
		}
	}
	assert.InDelta(t, 1, minPos, 1e-9)

	r := Slack(h, data)
	assert.Equal(t, 1.0, r.Accuracy)
	assert.InDelta(t, 0, r.TotalSlack, 1e-9)
	assert.Positive(t, r.SupportVectors, "points on the margin are support vectors")
}

func TestSlackStatus(t *testing.T) {
	h := Hyperplane{B1: 1}
	data := []dataset.LabeledPoint{
		{X1: 2, Label: 1},   // fm 2
		{X1: 0.5, Label: 1}, // fm 0.5
		{X1: 1, Label: -1},  // fm -1
		{X1: -1, Label: -1}, // fm 1, on the margin
	}
	r := Slack(h, data)
	require.Len(t, r.Points, 4)

	assert.Equal(t, StatusCorrect, r.Points[0].Status)
	assert.False(t, r.Points[0].SupportVector)
	assert.Equal(t, StatusInMargin, r.Points[1].Status)
	assert.InDelta(t, 0.5, r.Points[1].Slack, 1e-12)
	assert.Equal(t, StatusError, r.Points[2].Status)
	assert.InDelta(t, 2, r.Points[2].Slack, 1e-12)
	assert.Equal(t, StatusCorrect, r.Points[3].Status)
	assert.True(t, r.Points[3].SupportVector)

	assert.Equal(t, 0.75, r.Accuracy)
	assert.Equal(t, 2, r.Violations)
	assert.Equal(t, 3, r.SupportVectors)
	assert.InDelta(t, 2.5, r.TotalSlack, 1e-12)
	assert.Equal(t, 1.0, r.Margin)
}

func TestFitSoftMarginWithOptimizer(t *testing.T) {
	data := separable(t)
	o, err := opt.NewGonum(opt.MethodNelderMead, 2000)
	require.NoError(t, err)

	h, err := FitSoftMarginWith(data, 10, 20, o)
	require.NoError(t, err)
	assert.Less(t, PrimalObjective(h, data, 10), PrimalObjective(Hyperplane{}, data, 10))
}

func TestConfusionMetrics(t *testing.T) {
	s, err := LookupScenario("balanced")
	require.NoError(t, err)
	m := s.Matrix.Metrics()

	assert.Equal(t, 100, m.Total)
	assert.InDelta(t, 0.85, m.Accuracy, 1e-12)
	assert.InDelta(t, 50.0/55, m.Precision, 1e-12)
	assert.InDelta(t, 50.0/60, m.Recall, 1e-12)
	assert.InDelta(t, 35.0/40, m.Specificity, 1e-12)
	assert.InDelta(t, 35.0/45, m.NPV, 1e-12)
	assert.Equal(t, m.Precision, m.PPV)
	assert.InDelta(t, (m.Recall+m.Specificity)/2, m.BalancedAccuracy, 1e-12)
	assert.InDelta(t, 2*m.Precision*m.Recall/(m.Precision+m.Recall), m.F1, 1e-12)
	assert.Equal(t, 60, m.ActualPositives)
	assert.Equal(t, 40, m.ActualNegatives)

	assert.Equal(t, Metrics{}, ConfusionMatrix{}.Metrics())

	_, err = LookupScenario("nope")
	require.Error(t, err)
	assert.Len(t, ScenarioKeys(), 6)
}

func TestFraudAccuracyIsMisleading(t *testing.T) {
	m := ConfusionScenarios["fraud"].Matrix.Metrics()
	assert.Greater(t, m.Accuracy, 0.9)
	assert.Less(t, m.Precision, 0.5)
}

func TestROC(t *testing.T) {
	cases := []struct {
		name     string
		pos, neg []float64
		want     float64
	}{
		{"perfect", []float64{0.93, 0.87}, []float64{0.13, 0.27}, 1},
		{"inverted", []float64{0.23}, []float64{0.83}, 0},
		{"identical", []float64{0.55}, []float64{0.55}, 0.5},
		{"partial", []float64{0.93, 0.43}, []float64{0.63, 0.13}, 0.75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			curve := ROCCurve(tc.pos, tc.neg, 0.01)
			assert.Len(t, curve, 102)
			for i := 1; i < len(curve); i++ {
				assert.GreaterOrEqual(t, curve[i].FPR, curve[i-1].FPR)
			}
			assert.InDelta(t, tc.want, AUC(curve), 1e-12)
		})
	}
}

func TestAtThreshold(t *testing.T) {
	p := AtThreshold([]float64{0.9, 0.4}, []float64{0.6, 0.1, 0.2}, 0.5)
	assert.Equal(t, ConfusionMatrix{TP: 1, FN: 1, FP: 1, TN: 2}, p.Matrix)
	assert.Equal(t, 0.5, p.TPR)
	assert.InDelta(t, 1.0/3, p.FPR, 1e-12)

	empty := AtThreshold(nil, nil, 0.5)
	assert.Zero(t, empty.TPR)
	assert.Zero(t, empty.FPR)

	assert.Equal(t, "excellent", AUCRating(0.95))
	assert.Equal(t, "poor", AUCRating(0.6))
}

func TestRules(t *testing.T) {
	houses := []dataset.House{
		{Elevation: 100, PricePerSqft: 1000, InSF: true}, // SF, correct
		{Elevation: 5, PricePerSqft: 1500},               // NY, correct
		{Elevation: 20, PricePerSqft: 800},               // no rule
		{Elevation: 60, PricePerSqft: 900},               // SF, wrong
		{Elevation: 10, PricePerSqft: 1300, InSF: true},  // NY, wrong
	}
	rules := DefaultRules()
	require.NoError(t, rules.Validate())

	pred, ok := rules.Classify(houses[0])
	require.True(t, ok)
	assert.Equal(t, CitySF, pred)
	_, ok = rules.Classify(houses[2])
	assert.False(t, ok)

	m := rules.Evaluate(houses)
	assert.Equal(t, 2, m.Correct)
	assert.Equal(t, 2, m.Incorrect)
	assert.Equal(t, 1, m.Unclassified)
	assert.Equal(t, 0.5, m.Accuracy)
	assert.Equal(t, ConfusionMatrix{TP: 1, FN: 1, FP: 1, TN: 1}, m.Matrix)
	assert.Equal(t, 0.8, m.Coverage())
}

func TestRuleConnectorsAndInactive(t *testing.T) {
	h := dataset.House{Elevation: 30, PricePerSqft: 3000}
	r := Rule{
		Prediction: CityNY,
		Active:     true,
		Conditions: []Condition{
			{Attribute: AttrElevation, Operator: ">=", Value: 100},
			{Attribute: AttrPricePerSqft, Operator: ">", Value: 2000, Connector: Or},
		},
	}
	assert.True(t, r.Match(h))

	r.Conditions[1].Connector = And
	assert.False(t, r.Match(h))

	r.Active = false
	r.Conditions[1].Connector = Or
	assert.False(t, r.Match(h))

	assert.False(t, Rule{Prediction: CitySF, Active: true}.Match(h))
	assert.Equal(t, "IF elevation >= 100 OR price_per_sqft > 2000 THEN NY", r.String())
}

func TestRuleValidate(t *testing.T) {
	bad := RuleSet{{Prediction: CitySF, Active: true, Conditions: []Condition{{Attribute: "rooms", Operator: ">"}}}}
	require.Error(t, bad.Validate())

	bad = RuleSet{{Prediction: CitySF, Active: true, Conditions: []Condition{{Attribute: AttrElevation, Operator: "!="}}}}
	require.Error(t, bad.Validate())

	bad = RuleSet{{Prediction: "LA"}}
	require.Error(t, bad.Validate())
}

func TestCompare(t *testing.T) {
	data := separable(t)
	cmp, err := Compare(data, 10)
	require.NoError(t, err)

	assert.Equal(t, 1.0, cmp.LogisticReport.Metrics.Accuracy)
	assert.Equal(t, 1.0, cmp.SVMReport.Metrics.Accuracy)
	assert.Equal(t, 5, cmp.SVMReport.Matrix.TP)
	assert.Equal(t, 5, cmp.SVMReport.Matrix.TN)
	assert.NotEmpty(t, cmp.SupportVectors)

	_, err = Compare(data[:5], 1)
	require.ErrorIs(t, err, ErrNeedBothClasses)
}

func TestToBinary(t *testing.T) {
	in := []dataset.LabeledPoint{{Label: -1}, {Label: 1}}
	out := ToBinary(in)
	assert.Equal(t, 0, out[0].Label)
	assert.Equal(t, 1, out[1].Label)
	assert.Equal(t, -1, in[0].Label, "input is left untouched")
}
