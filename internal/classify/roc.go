package classify

import (
	"math"
	"sort"
)

// ROCPoint is one threshold on a ROC curve.
type ROCPoint struct {
	Threshold float64         `json:"threshold"`
	TPR       float64         `json:"tpr"`
	FPR       float64         `json:"fpr"`
	Matrix    ConfusionMatrix `json:"matrix"`
}

// AtThreshold counts scores ≥ t as predicted positive.
func AtThreshold(pos, neg []float64, t float64) ROCPoint {
	var c ConfusionMatrix
	for _, s := range pos {
		c.Add(true, s >= t)
	}
	for _, s := range neg {
		c.Add(false, s >= t)
	}
	return ROCPoint{
		Threshold: t,
		TPR:       ratio(c.TP, len(pos)),
		FPR:       ratio(c.FP, len(neg)),
		Matrix:    c,
	}
}

// ROCCurve sweeps thresholds from 0 to 1+step in increments of step and
// returns the points sorted by ascending FPR. Non-positive steps use 0.01.
func ROCCurve(pos, neg []float64, step float64) []ROCPoint {
	if step <= 0 {
		step = 0.01
	}
	n := int(math.Round(1/step)) + 1
	curve := make([]ROCPoint, 0, n+1)
	for i := 0; i <= n; i++ {
		curve = append(curve, AtThreshold(pos, neg, float64(i)*step))
	}
	sort.SliceStable(curve, func(i, j int) bool {
		if curve[i].FPR != curve[j].FPR {
			return curve[i].FPR < curve[j].FPR
		}
		return curve[i].TPR < curve[j].TPR
	})
	return curve
}

// AUC integrates a FPR-sorted curve with the trapezoid rule.
func AUC(curve []ROCPoint) float64 {
	var auc float64
	for i := 1; i < len(curve); i++ {
		dx := curve[i].FPR - curve[i-1].FPR
		auc += dx * (curve[i].TPR + curve[i-1].TPR) / 2
	}
	return auc
}

// AUCRating describes discriminative power.
func AUCRating(auc float64) string {
	switch {
	case auc > 0.9:
		return "excellent"
	case auc > 0.8:
		return "good"
	case auc > 0.7:
		return "acceptable"
	default:
		return "poor"
	}
}
