// Package search runs single-agent and population metaheuristics over an
// integer grid, one observable step at a time. Lower values are better.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/cwbudde/mlplayground/internal/grid"
)

// Phase labels what a step did.
type Phase string

const (
	PhaseMove             Phase = "move"
	PhaseStay             Phase = "stay"
	PhaseNextNeighborhood Phase = "next_neighborhood"
	PhaseShake            Phase = "shake"
	PhaseAccept           Phase = "accept"
	PhaseReject           Phase = "reject"
	PhaseConstruct        Phase = "construction"
	PhaseGeneration       Phase = "generation"
	PhaseDone             Phase = "done"
)

// Event is the state after one step.
type Event struct {
	Iteration int       `json:"iteration"`
	Phase     Phase     `json:"phase"`
	Current   grid.Cell `json:"current"`
	Best      grid.Cell `json:"best"`
	Value     float64   `json:"value"`
	BestValue float64   `json:"bestValue"`
	Accepted  bool      `json:"accepted"`
	Note      string    `json:"note,omitempty"`

	Temperature  float64     `json:"temperature,omitempty"`
	Neighborhood string      `json:"neighborhood,omitempty"`
	Tabu         []grid.Cell `json:"tabu,omitempty"`
	AvgFitness   float64     `json:"avgFitness,omitempty"`
	Diversity    int         `json:"diversity,omitempty"`
	Population   []grid.Cell `json:"population,omitempty"`
}

// Observer receives every event of a run.
type Observer func(Event)

// Result summarizes a run.
type Result struct {
	Algorithm  string      `json:"algorithm"`
	Start      grid.Cell   `json:"start"`
	StartValue float64     `json:"startValue"`
	Best       grid.Cell   `json:"best"`
	BestValue  float64     `json:"bestValue"`
	Final      grid.Cell   `json:"final"`
	Iterations int         `json:"iterations"`
	Path       []grid.Cell `json:"path"`
}

// Stepper is a search that advances one step per call. Step returns done
// once the search has finished; calls after that repeat the final event.
type Stepper interface {
	Name() string
	Step() (ev Event, done bool)
	Result() Result
}

// Runner drives a Stepper to completion.
type Runner struct {
	// Pace is the delay between steps. Zero runs at full speed.
	Pace     time.Duration
	Observer Observer
}

// Run steps s until it is done or ctx is cancelled. On cancellation the
// partial result is returned together with ctx.Err().
func (r Runner) Run(ctx context.Context, s Stepper) (Result, error) {
	var tick <-chan time.Time
	if r.Pace > 0 {
		ticker := time.NewTicker(r.Pace)
		defer ticker.Stop()
		tick = ticker.C
	}

	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			slog.Debug("Search cancelled", "algorithm", s.Name(), "steps", steps)
			return s.Result(), err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return s.Result(), ctx.Err()
			case <-tick:
			}
		}

		ev, done := s.Step()
		steps++
		if r.Observer != nil {
			r.Observer(ev)
		}
		if done {
			res := s.Result()
			slog.Debug("Search finished",
				"algorithm", s.Name(),
				"iterations", res.Iterations,
				"best", res.Best,
				"best_value", res.BestValue,
			)
			return res, nil
		}
	}
}

// Run drives s at full speed without cancellation.
func Run(s Stepper, observe Observer) Result {
	res, _ := Runner{Observer: observe}.Run(context.Background(), s)
	return res
}

// walker is the state shared by the single-agent searches.
type walker struct {
	g         *grid.Grid
	start     grid.Cell
	current   grid.Cell
	best      grid.Cell
	bestValue float64
	iteration int
	path      []grid.Cell
	finished  bool
	last      Event
}

func newWalker(g *grid.Grid, start grid.Cell) (walker, error) {
	if _, err := g.At(start); err != nil {
		return walker{}, err
	}
	return walker{
		g:         g,
		start:     start,
		current:   start,
		best:      start,
		bestValue: g.Value(start),
		path:      []grid.Cell{start},
	}, nil
}

// moveTo makes c current and reports whether it is a new best.
func (w *walker) moveTo(c grid.Cell) bool {
	w.current = c
	w.path = append(w.path, c)
	if v := w.g.Value(c); v < w.bestValue {
		w.best, w.bestValue = c, v
		return true
	}
	return false
}

// bestNeighbor returns the strictly lowest neighbor of c, keeping the first
// one on ties, or false when no neighbor beats c.
func (w *walker) bestNeighbor(c grid.Cell, n grid.Neighborhood) (grid.Cell, bool) {
	best, bestV, found := c, w.g.Value(c), false
	for _, nc := range w.g.Neighbors(c, n) {
		if v := w.g.Value(nc); v < bestV {
			best, bestV, found = nc, v, true
		}
	}
	return best, found
}

// descend runs best-improvement local search from the current cell.
func (w *walker) descend(n grid.Neighborhood) {
	for {
		next, ok := w.bestNeighbor(w.current, n)
		if !ok {
			return
		}
		w.moveTo(next)
	}
}

func (w *walker) event(phase Phase) Event {
	return Event{
		Iteration: w.iteration,
		Phase:     phase,
		Current:   w.current,
		Best:      w.best,
		Value:     w.g.Value(w.current),
		BestValue: w.bestValue,
	}
}

// finish records the final event. Later Step calls return it again.
func (w *walker) finish(ev Event) (Event, bool) {
	w.finished = true
	w.last = ev
	return ev, true
}

func (w *walker) result(name string) Result {
	return Result{
		Algorithm:  name,
		Start:      w.start,
		StartValue: w.g.Value(w.start),
		Best:       w.best,
		BestValue:  w.bestValue,
		Final:      w.current,
		Iterations: w.iteration,
		Path:       append([]grid.Cell(nil), w.path...),
	}
}
