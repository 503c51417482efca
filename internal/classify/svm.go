package classify

import (
	"errors"
	"math"
	"sort"

	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/opt"
)

// ErrNeedBothClasses is returned when a margin classifier is fit on data
// that lacks one of the ±1 labels.
var ErrNeedBothClasses = errors.New("need at least one point of each class")

const normEpsilon = 0.001

// Hyperplane is the decision function f(x) = B0 + B1·x1 + B2·x2 for ±1 labels.
type Hyperplane struct {
	B0 float64 `json:"b0"`
	B1 float64 `json:"b1"`
	B2 float64 `json:"b2"`
}

// Value returns f(x1, x2).
func (h Hyperplane) Value(x1, x2 float64) float64 {
	return h.B0 + h.B1*x1 + h.B2*x2
}

// Norm returns ‖β‖ without the intercept.
func (h Hyperplane) Norm() float64 {
	return math.Hypot(h.B1, h.B2)
}

// Margin is 1/‖β‖, infinite for a vanishing normal.
func (h Hyperplane) Margin() float64 {
	n := h.Norm()
	if n < normEpsilon {
		return math.Inf(1)
	}
	return 1 / n
}

// Distance is the geometric distance from (x1, x2) to the hyperplane.
func (h Hyperplane) Distance(x1, x2 float64) float64 {
	n := h.Norm()
	if n < normEpsilon {
		return math.Inf(1)
	}
	return math.Abs(h.Value(x1, x2)) / n
}

// FunctionalMargin is y·f(x).
func (h Hyperplane) FunctionalMargin(p dataset.LabeledPoint) float64 {
	return float64(p.Label) * h.Value(p.X1, p.X2)
}

// Classify returns +1 when f(x) ≥ 0, else -1.
func (h Hyperplane) Classify(x1, x2 float64) int {
	if h.Value(x1, x2) >= 0 {
		return 1
	}
	return -1
}

func (h Hyperplane) scale(s float64) Hyperplane {
	return Hyperplane{B0: h.B0 * s, B1: h.B1 * s, B2: h.B2 * s}
}

// centroidInit starts from the unit normal pointing from the negative to the
// positive centroid, through their midpoint.
func centroidInit(data []dataset.LabeledPoint) (Hyperplane, error) {
	var neg, pos [2]float64
	var nNeg, nPos int
	for _, p := range data {
		switch p.Label {
		case -1:
			neg[0] += p.X1
			neg[1] += p.X2
			nNeg++
		case 1:
			pos[0] += p.X1
			pos[1] += p.X2
			nPos++
		}
	}
	if nNeg == 0 || nPos == 0 {
		return Hyperplane{}, ErrNeedBothClasses
	}
	for i := range neg {
		neg[i] /= float64(nNeg)
		pos[i] /= float64(nPos)
	}

	h := Hyperplane{B1: 1}
	dx, dy := pos[0]-neg[0], pos[1]-neg[1]
	if l := math.Hypot(dx, dy); l >= normEpsilon {
		h.B1, h.B2 = dx/l, dy/l
	}
	midX, midY := (neg[0]+pos[0])/2, (neg[1]+pos[1])/2
	h.B0 = -(h.B1*midX + h.B2*midY)
	return h, nil
}

// FitHardMargin searches the maximum-margin separating line by subgradient
// steps: while some point is misclassified it pushes the boundary away from
// offending points, otherwise it shrinks ‖β‖. The result is rescaled so the
// closest point has |f(x)| = 1.
func FitHardMargin(data []dataset.LabeledPoint) (Hyperplane, error) {
	h, err := centroidInit(data)
	if err != nil {
		return h, err
	}

	const (
		lr    = 0.01
		iters = 500
	)
	for iter := 0; iter < iters; iter++ {
		separated := true
		for _, p := range data {
			f := h.Value(p.X1, p.X2)
			if (p.Label == -1 && f > 0) || (p.Label == 1 && f < 0) {
				separated = false
				break
			}
		}

		if !separated {
			for _, p := range data {
				f := h.Value(p.X1, p.X2)
				if p.Label == -1 && f > -0.01 {
					h.B0 -= 2 * lr
					h.B1 -= 2 * lr * p.X1
					h.B2 -= 2 * lr * p.X2
				}
				if p.Label == 1 && f < 0.01 {
					h.B0 += 2 * lr
					h.B1 += 2 * lr * p.X1
					h.B2 += 2 * lr * p.X2
				}
			}
			continue
		}

		if n := h.Norm(); n > 0.1 {
			h.B1 -= lr * 0.1 * h.B1 / n
			h.B2 -= lr * 0.1 * h.B2 / n
		}
	}

	minAbs := math.Inf(1)
	for _, p := range data {
		if v := math.Abs(h.Value(p.X1, p.X2)); v > normEpsilon && v < minAbs {
			minAbs = v
		}
	}
	if !math.IsInf(minAbs, 1) {
		h = h.scale(1 / minAbs)
	}
	return h, nil
}

// HardMarginSupportVectors returns the points whose distance lies within
// 0.1·M + 0.05 of the margin M, or the three closest points if none do.
func HardMarginSupportVectors(h Hyperplane, data []dataset.LabeledPoint) []dataset.LabeledPoint {
	margin := h.Margin()
	tol := margin*0.1 + 0.05

	var out []dataset.LabeledPoint
	for _, p := range data {
		if math.Abs(h.Distance(p.X1, p.X2)-margin) < tol {
			out = append(out, p)
		}
	}
	if len(out) > 0 || len(data) == 0 {
		return out
	}

	sorted := append([]dataset.LabeledPoint(nil), data...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return h.Distance(sorted[i].X1, sorted[i].X2) < h.Distance(sorted[j].X1, sorted[j].X2)
	})
	return sorted[:min(3, len(sorted))]
}

// FitSoftMargin minimizes ½‖β‖² + C·Σξᵢ by subgradient descent from the
// centroid initialization, then rescales so the smallest positive functional
// margin is 1.
func FitSoftMargin(data []dataset.LabeledPoint, c float64) (Hyperplane, error) {
	h, err := centroidInit(data)
	if err != nil {
		return h, err
	}

	const (
		lr    = 0.005
		iters = 1000
	)
	reg := 1 / (c + 0.001)
	for iter := 0; iter < iters; iter++ {
		db0 := 0.0
		db1 := reg * h.B1
		db2 := reg * h.B2
		for _, p := range data {
			if h.FunctionalMargin(p) < 1 {
				y := float64(p.Label)
				db0 -= y * c * 0.1
				db1 -= y * p.X1 * c * 0.1
				db2 -= y * p.X2 * c * 0.1
			}
		}
		h.B0 -= lr * db0
		h.B1 -= lr * db1
		h.B2 -= lr * db2
	}
	return normalizeSoft(h, data), nil
}

func normalizeSoft(h Hyperplane, data []dataset.LabeledPoint) Hyperplane {
	if h.Norm() <= normEpsilon {
		return h
	}
	minPos := math.Inf(1)
	for _, p := range data {
		if fm := h.FunctionalMargin(p); fm > 0 && fm < minPos {
			minPos = fm
		}
	}
	if minPos > 0.01 && !math.IsInf(minPos, 1) {
		return h.scale(1 / minPos)
	}
	return h
}

// PrimalObjective is ½‖β‖² + C·Σ max(0, 1 − yᵢ·f(xᵢ)).
func PrimalObjective(h Hyperplane, data []dataset.LabeledPoint, c float64) float64 {
	obj := 0.5 * (h.B1*h.B1 + h.B2*h.B2)
	for _, p := range data {
		obj += c * math.Max(0, 1-h.FunctionalMargin(p))
	}
	return obj
}

// FitSoftMarginWith minimizes the primal objective directly with a black-box
// optimizer over β ∈ [-bound, bound]³.
func FitSoftMarginWith(data []dataset.LabeledPoint, c, bound float64, o opt.Optimizer) (Hyperplane, error) {
	if _, err := centroidInit(data); err != nil {
		return Hyperplane{}, err
	}
	eval := func(b []float64) float64 {
		return PrimalObjective(Hyperplane{B0: b[0], B1: b[1], B2: b[2]}, data, c)
	}
	lower := []float64{-bound, -bound, -bound}
	upper := []float64{bound, bound, bound}
	best, _ := o.Run(eval, lower, upper, 3)
	return Hyperplane{B0: best[0], B1: best[1], B2: best[2]}, nil
}

// SlackStatus classifies a point by its slack ξ = max(0, 1 − y·f(x)).
type SlackStatus string

const (
	StatusCorrect  SlackStatus = "correct"
	StatusInMargin SlackStatus = "in-margin"
	StatusError    SlackStatus = "error"
)

// SlackPoint is a point with its slack and status.
type SlackPoint struct {
	Point         dataset.LabeledPoint `json:"point"`
	Slack         float64              `json:"slack"`
	Status        SlackStatus          `json:"status"`
	SupportVector bool                 `json:"support_vector"`
}

// SoftMarginReport summarizes a soft-margin fit.
type SoftMarginReport struct {
	Points         []SlackPoint `json:"points"`
	Accuracy       float64      `json:"accuracy"`
	Margin         float64      `json:"margin"`
	Violations     int          `json:"violations"`
	SupportVectors int          `json:"support_vectors"`
	TotalSlack     float64      `json:"total_slack"`
}

// Slack computes per-point slack and status. Support vectors are points
// inside the margin or misclassified, plus points lying on the margin.
func Slack(h Hyperplane, data []dataset.LabeledPoint) SoftMarginReport {
	r := SoftMarginReport{Margin: h.Margin()}
	correct := 0
	for _, p := range data {
		fm := h.FunctionalMargin(p)
		xi := math.Max(0, 1-fm)
		sp := SlackPoint{Point: p, Slack: xi}
		switch {
		case xi == 0:
			sp.Status = StatusCorrect
		case xi < 1:
			sp.Status = StatusInMargin
			sp.SupportVector = true
		default:
			sp.Status = StatusError
			sp.SupportVector = true
		}
		if math.Abs(fm-1) < 0.1 && xi < 0.1 {
			sp.SupportVector = true
		}

		if sp.Status != StatusError {
			correct++
		}
		if sp.Status != StatusCorrect {
			r.Violations++
		}
		if sp.SupportVector {
			r.SupportVectors++
		}
		r.TotalSlack += xi
		r.Points = append(r.Points, sp)
	}

	r.Accuracy = 1
	if len(data) > 0 {
		r.Accuracy = float64(correct) / float64(len(data))
	}
	return r
}
