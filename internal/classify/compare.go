package classify

import (
	"github.com/cwbudde/mlplayground/internal/dataset"
)

// ModelReport is the evaluation of one model in a comparison.
type ModelReport struct {
	Matrix  ConfusionMatrix `json:"matrix"`
	Metrics Metrics         `json:"metrics"`
}

// Comparison puts logistic regression and a soft-margin SVM side by side on
// the same ±1 data.
type Comparison struct {
	Logistic       Logistic               `json:"logistic"`
	LogisticReport ModelReport            `json:"logistic_report"`
	SVM            Hyperplane             `json:"svm"`
	SVMReport      ModelReport            `json:"svm_report"`
	SupportVectors []dataset.LabeledPoint `json:"support_vectors"`
}

// ToBinary maps ±1 labels to 1/0.
func ToBinary(data []dataset.LabeledPoint) []dataset.LabeledPoint {
	out := make([]dataset.LabeledPoint, len(data))
	for i, p := range data {
		out[i] = p
		out[i].Label = 0
		if p.Label == 1 {
			out[i].Label = 1
		}
	}
	return out
}

// Report scores a ±1 classifier that returns true for the positive class.
func Report(data []dataset.LabeledPoint, positive func(x1, x2 float64) bool) ModelReport {
	var c ConfusionMatrix
	for _, p := range data {
		c.Add(p.Label == 1, positive(p.X1, p.X2))
	}
	return ModelReport{Matrix: c, Metrics: c.Metrics()}
}

// Compare trains logistic regression (500 steps at rate 0.5 from
// w = (0.1, 0.1)) and a soft-margin SVM with penalty c on ±1 data.
// SVM support vectors are the points with functional margin ≤ 1.1.
func Compare(data []dataset.LabeledPoint, c float64) (Comparison, error) {
	svm, err := FitSoftMargin(data, c)
	if err != nil {
		return Comparison{}, err
	}

	lr := Logistic{W1: 0.1, W2: 0.1}
	lr.Train(ToBinary(data), TrainConfig{LearningRate: 0.5, MaxIters: 500})

	cmp := Comparison{
		Logistic:       lr,
		LogisticReport: Report(data, func(x1, x2 float64) bool { return lr.Predict(x1, x2) >= 0.5 }),
		SVM:            svm,
		SVMReport:      Report(data, func(x1, x2 float64) bool { return svm.Value(x1, x2) >= 0 }),
	}
	if svm.Norm() >= normEpsilon {
		for _, p := range data {
			if svm.FunctionalMargin(p) <= 1.1 {
				cmp.SupportVectors = append(cmp.SupportVectors, p)
			}
		}
	}
	return cmp, nil
}
