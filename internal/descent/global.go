package descent

import (
	"context"
	"math"
	"sort"

	"github.com/cwbudde/mlplayground/internal/opt"
)

// SearchResult is the outcome of one method on a surface.
type SearchResult struct {
	Method      string     `json:"method"`
	W           [2]float64 `json:"w"`
	Loss        float64    `json:"loss"`
	Evaluations int        `json:"evaluations"`
	// DistanceToMinimum is measured to the surface's global minimum.
	DistanceToMinimum float64 `json:"distance_to_minimum"`
}

// GlobalSearch minimizes the surface over its whole domain with a black-box
// optimizer.
func GlobalSearch(s Surface, o opt.Optimizer) SearchResult {
	evals := 0
	eval := func(x []float64) float64 {
		evals++
		return s.Loss(x[0], x[1])
	}
	lower := []float64{-s.Range, -s.Range}
	upper := []float64{s.Range, s.Range}

	best, _ := o.Run(eval, lower, upper, 2)
	w := [2]float64{best[0], best[1]}
	return SearchResult{
		W:                 w,
		Loss:              s.LossAt(w),
		Evaluations:       evals,
		DistanceToMinimum: distance(w, s.Minimum),
	}
}

func distance(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

// Compare runs gradient descent from start and every named optimizer on the
// same surface. Results are sorted by final loss.
func Compare(ctx context.Context, s Surface, start [2]float64, lr float64, optimizers map[string]opt.Optimizer) ([]SearchResult, error) {
	gd := NewGradientDescent(s, lr, start)
	res, err := gd.Run(ctx, DefaultRunConfig(), nil)
	if err != nil {
		return nil, err
	}
	out := []SearchResult{{
		Method:            "gradient-descent",
		W:                 res.W,
		Loss:              res.Loss,
		Evaluations:       res.Iterations,
		DistanceToMinimum: distance(res.W, s.Minimum),
	}}

	names := make([]string, 0, len(optimizers))
	for name := range optimizers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r := GlobalSearch(s, optimizers[name])
		r.Method = name
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Loss < out[j].Loss })
	return out, nil
}
