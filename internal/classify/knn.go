package classify

import (
	"math"
	"sort"

	"github.com/cwbudde/mlplayground/internal/dataset"
)

// Neighbor is a training point with its distance to a query.
type Neighbor struct {
	Index    int                  `json:"index"`
	Point    dataset.LabeledPoint `json:"point"`
	Distance float64              `json:"distance"`
}

// Vote is the outcome of a k-NN query.
type Vote struct {
	Label     int         `json:"label"`
	Counts    map[int]int `json:"counts"`
	Neighbors []Neighbor  `json:"neighbors"`
}

// KNN is a k-nearest-neighbors classifier over labelled points.
type KNN struct {
	Train []dataset.LabeledPoint
}

// Nearest returns the k training points closest to (x1, x2), nearest first.
// k is clamped to the training size.
func (m KNN) Nearest(x1, x2 float64, k int) []Neighbor {
	all := make([]Neighbor, len(m.Train))
	for i, p := range m.Train {
		all[i] = Neighbor{Index: i, Point: p, Distance: math.Hypot(p.X1-x1, p.X2-x2)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })
	return all[:min(max(k, 0), len(all))]
}

// Classify takes a majority vote among the k nearest neighbors. Ties go to
// the tied label whose member is nearest to the query. ok is false when
// there is no training data or k < 1.
func (m KNN) Classify(x1, x2 float64, k int) (Vote, bool) {
	if len(m.Train) == 0 || k < 1 {
		return Vote{}, false
	}

	neighbors := m.Nearest(x1, x2, k)
	counts := make(map[int]int)
	for _, n := range neighbors {
		counts[n.Point.Label]++
	}
	best := 0
	for _, c := range counts {
		best = max(best, c)
	}

	// neighbors are sorted, so the first one with a top count decides
	label := neighbors[0].Point.Label
	for _, n := range neighbors {
		if counts[n.Point.Label] == best {
			label = n.Point.Label
			break
		}
	}
	return Vote{Label: label, Counts: counts, Neighbors: neighbors}, true
}

// Accuracy is the share of test points the classifier labels correctly.
func (m KNN) Accuracy(test []dataset.LabeledPoint, k int) float64 {
	if len(test) == 0 {
		return 0
	}
	correct := 0
	for _, p := range test {
		if v, ok := m.Classify(p.X1, p.X2, k); ok && v.Label == p.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(test))
}

// DecisionGrid classifies the centers of cells of the given size over a
// width × height plane. Cells are -1 when the classifier has no data.
func (m KNN) DecisionGrid(width, height, cell float64, k int) [][]int {
	rows := int(math.Ceil(height / cell))
	cols := int(math.Ceil(width / cell))
	out := make([][]int, rows)
	for r := range out {
		out[r] = make([]int, cols)
		for c := range out[r] {
			v, ok := m.Classify(float64(c)*cell+cell/2, float64(r)*cell+cell/2, k)
			if !ok {
				out[r][c] = -1
				continue
			}
			out[r][c] = v.Label
		}
	}
	return out
}

// ComplexityK maps a model complexity slider (1..10) to k: higher
// complexity means fewer neighbors.
func ComplexityK(complexity int) int {
	return max(1, 11-complexity)
}

// FitStatus labels a train/test accuracy pair.
type FitStatus string

const (
	Underfit FitStatus = "underfit"
	Overfit  FitStatus = "overfit"
	GoodFit  FitStatus = "good"
)

// Diagnose classifies a model as under- or overfitting from its train and
// test accuracies.
func Diagnose(trainAcc, testAcc float64) FitStatus {
	switch {
	case trainAcc < 0.7 && testAcc < 0.7:
		return Underfit
	case trainAcc-testAcc > 0.15 && trainAcc > 0.85:
		return Overfit
	default:
		return GoodFit
	}
}
