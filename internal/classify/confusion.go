package classify

import (
	"fmt"
	"sort"
)

// ConfusionMatrix holds the four outcome counts of a binary classifier.
type ConfusionMatrix struct {
	TP int `json:"tp"`
	FN int `json:"fn"`
	FP int `json:"fp"`
	TN int `json:"tn"`
}

// Metrics are the ratios derived from a confusion matrix. Each ratio is 0
// when its denominator is 0.
type Metrics struct {
	Accuracy         float64 `json:"accuracy"`
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	Specificity      float64 `json:"specificity"`
	F1               float64 `json:"f1"`
	BalancedAccuracy float64 `json:"balanced_accuracy"`
	PPV              float64 `json:"ppv"`
	NPV              float64 `json:"npv"`
	Total            int     `json:"total"`
	ActualPositives  int     `json:"actual_positives"`
	ActualNegatives  int     `json:"actual_negatives"`
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Total is the number of classified samples.
func (c ConfusionMatrix) Total() int {
	return c.TP + c.FN + c.FP + c.TN
}

// Metrics derives every ratio of the matrix.
func (c ConfusionMatrix) Metrics() Metrics {
	m := Metrics{
		Accuracy:        ratio(c.TP+c.TN, c.Total()),
		Precision:       ratio(c.TP, c.TP+c.FP),
		Recall:          ratio(c.TP, c.TP+c.FN),
		Specificity:     ratio(c.TN, c.TN+c.FP),
		NPV:             ratio(c.TN, c.TN+c.FN),
		Total:           c.Total(),
		ActualPositives: c.TP + c.FN,
		ActualNegatives: c.TN + c.FP,
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.BalancedAccuracy = (m.Recall + m.Specificity) / 2
	m.PPV = m.Precision
	return m
}

// Add records one prediction against its true label.
func (c *ConfusionMatrix) Add(actual, predicted bool) {
	switch {
	case actual && predicted:
		c.TP++
	case actual:
		c.FN++
	case predicted:
		c.FP++
	default:
		c.TN++
	}
}

// ConfusionScenario is a named example matrix.
type ConfusionScenario struct {
	Name        string          `json:"name"`
	Matrix      ConfusionMatrix `json:"matrix"`
	Description string          `json:"description"`
}

// ConfusionScenarios are the preset matrices of the confusion-matrix demo.
var ConfusionScenarios = map[string]ConfusionScenario{
	"balanced": {
		Name:        "Balanced",
		Matrix:      ConfusionMatrix{TP: 50, FN: 10, FP: 5, TN: 35},
		Description: "A model with a good balance between precision and recall.",
	},
	"medical": {
		Name:        "Medical diagnosis",
		Matrix:      ConfusionMatrix{TP: 95, FN: 5, FP: 30, TN: 70},
		Description: "Missing a positive case is costly, so false negatives are kept low at the price of false alarms.",
	},
	"spam": {
		Name:        "Spam filter",
		Matrix:      ConfusionMatrix{TP: 80, FN: 20, FP: 2, TN: 98},
		Description: "False positives lose real mail, so the filter keeps them rare.",
	},
	"fraud": {
		Name:        "Fraud detection",
		Matrix:      ConfusionMatrix{TP: 45, FN: 5, FP: 50, TN: 900},
		Description: "Heavily imbalanced classes make accuracy misleading.",
	},
	"high-precision": {
		Name:        "High precision",
		Matrix:      ConfusionMatrix{TP: 40, FN: 30, FP: 2, TN: 128},
		Description: "A conservative model that only predicts positive when very sure.",
	},
	"high-recall": {
		Name:        "High recall",
		Matrix:      ConfusionMatrix{TP: 68, FN: 2, FP: 40, TN: 90},
		Description: "An aggressive model that flags many cases as positive.",
	},
}

// LookupScenario returns the preset with the given key.
func LookupScenario(key string) (ConfusionScenario, error) {
	s, ok := ConfusionScenarios[key]
	if !ok {
		return ConfusionScenario{}, fmt.Errorf("unknown confusion scenario %q", key)
	}
	return s, nil
}

// ScenarioKeys returns the preset keys in sorted order.
func ScenarioKeys() []string {
	keys := make([]string, 0, len(ConfusionScenarios))
	for k := range ConfusionScenarios {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
