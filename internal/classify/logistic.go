// Package classify holds the binary classifiers and evaluation tools of the
// classification demos: logistic regression, k-nearest neighbors, margin
// classifiers, confusion matrices, ROC analysis and hand-written rules.
package classify

import (
	"math"

	"github.com/cwbudde/mlplayground/internal/dataset"
)

// Epsilon clips probabilities away from 0 and 1 before taking logs.
const Epsilon = 1e-15

// Sigmoid returns 1/(1+e^-z).
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// CrossEntropy is the log loss of predicting probability yHat for label y ∈ {0, 1}.
func CrossEntropy(y int, yHat float64) float64 {
	p := math.Max(Epsilon, math.Min(1-Epsilon, yHat))
	if y == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// SquaredLoss is (y - yHat)².
func SquaredLoss(y int, yHat float64) float64 {
	d := float64(y) - yHat
	return d * d
}

// Logistic is p(y=1|x) = σ(W1·x1 + W2·x2 + B).
type Logistic struct {
	W1 float64 `json:"w1"`
	W2 float64 `json:"w2"`
	B  float64 `json:"b"`
}

// Z returns the linear score.
func (m Logistic) Z(x1, x2 float64) float64 {
	return m.W1*x1 + m.W2*x2 + m.B
}

// Predict returns the probability of class 1.
func (m Logistic) Predict(x1, x2 float64) float64 {
	return Sigmoid(m.Z(x1, x2))
}

// Classify thresholds Predict at 0.5.
func (m Logistic) Classify(x1, x2 float64) int {
	if m.Predict(x1, x2) >= 0.5 {
		return 1
	}
	return 0
}

// Loss is the mean cross-entropy over data with 0/1 labels.
func (m Logistic) Loss(data []dataset.LabeledPoint) float64 {
	if len(data) == 0 {
		return 0
	}
	var loss float64
	for _, p := range data {
		loss += CrossEntropy(p.Label, m.Predict(p.X1, p.X2))
	}
	return loss / float64(len(data))
}

// Accuracy is the share of data classified correctly.
func (m Logistic) Accuracy(data []dataset.LabeledPoint) float64 {
	if len(data) == 0 {
		return 0
	}
	correct := 0
	for _, p := range data {
		if m.Classify(p.X1, p.X2) == p.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(data))
}

// Step applies one batch gradient step of the mean cross-entropy.
func (m *Logistic) Step(data []dataset.LabeledPoint, lr float64) {
	if len(data) == 0 {
		return
	}
	var dw1, dw2, db float64
	for _, p := range data {
		e := m.Predict(p.X1, p.X2) - float64(p.Label)
		dw1 += e * p.X1
		dw2 += e * p.X2
		db += e
	}
	n := float64(len(data))
	m.W1 -= lr * dw1 / n
	m.W2 -= lr * dw2 / n
	m.B -= lr * db / n
}

// TrainConfig controls logistic training.
type TrainConfig struct {
	LearningRate float64
	MaxIters     int
	// Window and Tolerance stop training once the loss moved less than
	// Tolerance over the last Window steps. A zero Window disables it.
	Window    int
	Tolerance float64
}

// DefaultTrainConfig mirrors the interactive trainer: stop after 1000 steps
// or when the loss changed less than 1e-4 over 10 steps.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LearningRate: 0.5,
		MaxIters:     1000,
		Window:       10,
		Tolerance:    1e-4,
	}
}

// Train runs gradient steps and returns the loss after each one.
func (m *Logistic) Train(data []dataset.LabeledPoint, cfg TrainConfig) []float64 {
	var history []float64
	for i := 0; i < cfg.MaxIters; i++ {
		m.Step(data, cfg.LearningRate)
		history = append(history, m.Loss(data))

		if cfg.Window > 0 && len(history) > cfg.Window {
			recent := history[len(history)-cfg.Window:]
			if math.Abs(recent[len(recent)-1]-recent[0]) < cfg.Tolerance {
				break
			}
		}
	}
	return history
}

// BoundaryX2 returns the x2 of the decision line at x1, and false when the
// boundary is vertical.
func (m Logistic) BoundaryX2(x1 float64) (float64, bool) {
	if math.Abs(m.W2) < 1e-12 {
		return 0, false
	}
	return -(m.W1*x1 + m.B) / m.W2, true
}

// LossPoint compares both losses at one predicted probability.
type LossPoint struct {
	YHat         float64 `json:"y_hat"`
	CrossEntropy float64 `json:"cross_entropy"`
	Squared      float64 `json:"squared"`
}

// LossCurve samples both losses for true label y at n probabilities evenly
// spaced strictly inside (0, 1).
func LossCurve(y, n int) []LossPoint {
	out := make([]LossPoint, n)
	for i := range out {
		p := float64(i+1) / float64(n+1)
		out[i] = LossPoint{YHat: p, CrossEntropy: CrossEntropy(y, p), Squared: SquaredLoss(y, p)}
	}
	return out
}
