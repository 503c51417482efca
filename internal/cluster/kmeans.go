// Package cluster implements Lloyd's k-means with k-means++ seeding, one
// observable step at a time.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/cwbudde/mlplayground/internal/dataset"
)

// ErrNoPoints is returned when clustering an empty data set.
var ErrNoPoints = errors.New("no points to cluster")

// MoveThreshold is the total centroid displacement below which an update
// step counts as converged.
const MoveThreshold = 0.1

// KMeans is the state of one clustering run.
type KMeans struct {
	Points      []dataset.Point2
	Centroids   []dataset.Point2
	Assignments []int // -1 until the first assignment
	Iteration   int
	Converged   bool
	Inertia     []float64

	k   int
	rng *rand.Rand
}

// New prepares a run over points with k clusters. Centroids are not set until
// Seed or SeedPlusPlus is called.
func New(rng *rand.Rand, points []dataset.Point2, k int) (*KMeans, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	km := &KMeans{
		Points: points,
		k:      k,
		rng:    rng,
	}
	km.reset()
	return km, nil
}

func (km *KMeans) reset() {
	km.Assignments = make([]int, len(km.Points))
	for i := range km.Assignments {
		km.Assignments[i] = -1
	}
	km.Iteration = 0
	km.Converged = false
	km.Inertia = nil
}

// K returns the number of clusters.
func (km *KMeans) K() int {
	return km.k
}

func sqDist(a, b dataset.Point2) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// Seed uses the given centroids and restarts the run.
func (km *KMeans) Seed(centroids []dataset.Point2) error {
	if len(centroids) != km.k {
		return fmt.Errorf("expected %d centroids, got %d", km.k, len(centroids))
	}
	km.Centroids = append([]dataset.Point2(nil), centroids...)
	km.reset()
	return nil
}

// SeedPlusPlus picks the first centroid uniformly among the points and each
// further one with probability proportional to its squared distance to the
// nearest centroid chosen so far.
func (km *KMeans) SeedPlusPlus() {
	km.Centroids = []dataset.Point2{km.Points[km.rng.Intn(len(km.Points))]}

	d2 := make([]float64, len(km.Points))
	for len(km.Centroids) < km.k {
		var total float64
		for i, p := range km.Points {
			d2[i] = math.Inf(1)
			for _, c := range km.Centroids {
				d2[i] = math.Min(d2[i], sqDist(p, c))
			}
			total += d2[i]
		}

		// all points coincide with a centroid
		if total == 0 {
			km.Centroids = append(km.Centroids, km.Points[km.rng.Intn(len(km.Points))])
			continue
		}

		r := km.rng.Float64() * total
		next := len(km.Points) - 1
		for i, d := range d2 {
			r -= d
			if r <= 0 {
				next = i
				break
			}
		}
		km.Centroids = append(km.Centroids, km.Points[next])
	}
	km.reset()
}

// SeedRandom places centroids uniformly at random inside the padded plane.
func (km *KMeans) SeedRandom() {
	km.Centroids = make([]dataset.Point2, km.k)
	for i := range km.Centroids {
		km.Centroids[i] = dataset.Point2{
			X: 50 + km.rng.Float64()*(dataset.PlaneWidth-100),
			Y: 50 + km.rng.Float64()*(dataset.PlaneHeight-100),
		}
	}
	km.reset()
}

// Assign moves every point to its nearest centroid and reports whether any
// assignment changed.
func (km *KMeans) Assign() bool {
	changed := false
	for i, p := range km.Points {
		best, bestD := 0, math.Inf(1)
		for j, c := range km.Centroids {
			if d := sqDist(p, c); d < bestD {
				best, bestD = j, d
			}
		}
		if km.Assignments[i] != best {
			km.Assignments[i] = best
			changed = true
		}
	}
	return changed
}

// Update recenters each centroid on the mean of its points and returns the
// total distance moved. An empty cluster is reseeded on a random point.
func (km *KMeans) Update() float64 {
	sums := make([]dataset.Point2, km.k)
	counts := make([]int, km.k)
	for i, a := range km.Assignments {
		if a < 0 {
			continue
		}
		sums[a].X += km.Points[i].X
		sums[a].Y += km.Points[i].Y
		counts[a]++
	}

	var moved float64
	for j := range km.Centroids {
		if counts[j] == 0 {
			km.Centroids[j] = km.Points[km.rng.Intn(len(km.Points))]
			continue
		}
		next := dataset.Point2{X: sums[j].X / float64(counts[j]), Y: sums[j].Y / float64(counts[j])}
		moved += math.Sqrt(sqDist(km.Centroids[j], next))
		km.Centroids[j] = next
	}
	return moved
}

// CurrentInertia is the sum of squared distances of points to their
// assigned centroids.
func (km *KMeans) CurrentInertia() float64 {
	var total float64
	for i, a := range km.Assignments {
		if a >= 0 {
			total += sqDist(km.Points[i], km.Centroids[a])
		}
	}
	return total
}

// StepResult describes one Lloyd iteration.
type StepResult struct {
	Iteration int     `json:"iteration"`
	Changed   bool    `json:"changed"`
	Moved     float64 `json:"moved"`
	Inertia   float64 `json:"inertia"`
	Converged bool    `json:"converged"`
}

// Step runs one assignment and update. It is a no-op once converged. A run
// converges when no assignment changes after the first iteration or when
// the centroids moved less than MoveThreshold in total.
func (km *KMeans) Step() StepResult {
	if km.Converged {
		return StepResult{Iteration: km.Iteration, Converged: true, Inertia: km.CurrentInertia()}
	}
	if km.Centroids == nil {
		km.SeedPlusPlus()
	}

	changed := km.Assign()
	if !changed && km.Iteration > 0 {
		km.Converged = true
		return StepResult{Iteration: km.Iteration, Converged: true, Inertia: km.CurrentInertia()}
	}

	moved := km.Update()
	km.Iteration++
	inertia := km.CurrentInertia()
	km.Inertia = append(km.Inertia, inertia)
	if moved < MoveThreshold {
		km.Converged = true
	}
	return StepResult{
		Iteration: km.Iteration,
		Changed:   changed,
		Moved:     moved,
		Inertia:   inertia,
		Converged: km.Converged,
	}
}

// Run steps until convergence or maxIter iterations.
func (km *KMeans) Run(maxIter int) []StepResult {
	var steps []StepResult
	for km.Iteration < maxIter && !km.Converged {
		steps = append(steps, km.Step())
	}
	return steps
}

// ClusterSizes counts the points per cluster.
func (km *KMeans) ClusterSizes() []int {
	sizes := make([]int, km.k)
	for _, a := range km.Assignments {
		if a >= 0 {
			sizes[a]++
		}
	}
	return sizes
}

// LibraryResult is a partition computed by the muesli/kmeans engine.
type LibraryResult struct {
	Centroids []dataset.Point2 `json:"centroids"`
	Sizes     []int            `json:"sizes"`
	Inertia   float64          `json:"inertia"`

	// Seeded is always false: muesli/kmeans picks its initial centroids with
	// a generator it seeds itself, so repeated runs may differ for one seed.
	Seeded bool `json:"seeded"`
}

// PartitionWithLibrary clusters points with muesli/kmeans, as an independent
// cross-check of the step-by-step implementation. The library takes no
// generator, so the result is not reproducible from --seed.
func PartitionWithLibrary(points []dataset.Point2, k int) (LibraryResult, error) {
	if len(points) == 0 {
		return LibraryResult{}, ErrNoPoints
	}

	var obs clusters.Observations
	for _, p := range points {
		obs = append(obs, clusters.Coordinates{p.X, p.Y})
	}

	km := kmeans.New()
	cc, err := km.Partition(obs, k)
	if err != nil {
		return LibraryResult{}, fmt.Errorf("partition: %w", err)
	}

	res := LibraryResult{}
	for _, c := range cc {
		center := dataset.Point2{X: c.Center[0], Y: c.Center[1]}
		res.Centroids = append(res.Centroids, center)
		res.Sizes = append(res.Sizes, len(c.Observations))
		for _, o := range c.Observations {
			co := o.Coordinates()
			res.Inertia += sqDist(center, dataset.Point2{X: co[0], Y: co[1]})
		}
	}
	return res, nil
}
