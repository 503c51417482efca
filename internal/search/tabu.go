package search

import (
	"fmt"
	"math"

	"github.com/cwbudde/mlplayground/internal/grid"
)

// TabuConfig bounds a tabu search.
type TabuConfig struct {
	Tenure        int `json:"tenure"`
	MaxIterations int `json:"maxIterations"`
}

// DefaultTabuConfig keeps moves tabu for 7 iterations over a 50 iteration run.
func DefaultTabuConfig() TabuConfig {
	return TabuConfig{Tenure: 7, MaxIterations: 50}
}

// Validate rejects a non-positive tenure or iteration budget.
func (c TabuConfig) Validate() error {
	if c.Tenure < 1 {
		return fmt.Errorf("tenure must be positive, got %d", c.Tenure)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

type tabuEntry struct {
	cell    grid.Cell
	addedAt int
}

// TabuSearch always moves to the best admissible 8-neighbor, even uphill.
// Cells it leaves become tabu for Tenure iterations. A tabu neighbor is
// admissible only when it beats the best value so far.
type TabuSearch struct {
	walker
	cfg  TabuConfig
	tabu []tabuEntry
}

func NewTabuSearch(g *grid.Grid, start grid.Cell, cfg TabuConfig) (*TabuSearch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := newWalker(g, start)
	if err != nil {
		return nil, err
	}
	return &TabuSearch{walker: w, cfg: cfg}, nil
}

// Name returns AlgTabu.
func (t *TabuSearch) Name() string { return AlgTabu }

// IsTabu reports whether c is on the tabu list.
func (t *TabuSearch) IsTabu(c grid.Cell) bool {
	for _, e := range t.tabu {
		if e.cell == c {
			return true
		}
	}
	return false
}

// TabuList returns the tabu cells, oldest first.
func (t *TabuSearch) TabuList() []grid.Cell {
	out := make([]grid.Cell, len(t.tabu))
	for i, e := range t.tabu {
		out[i] = e.cell
	}
	return out
}

func (t *TabuSearch) addTabu(c grid.Cell) {
	kept := t.tabu[:0]
	for _, e := range t.tabu {
		if e.cell != c {
			kept = append(kept, e)
		}
	}
	t.tabu = append(kept, tabuEntry{cell: c, addedAt: t.iteration})
	if len(t.tabu) > t.cfg.Tenure {
		t.tabu = t.tabu[len(t.tabu)-t.cfg.Tenure:]
	}
}

func (t *TabuSearch) expire() {
	kept := t.tabu[:0]
	for _, e := range t.tabu {
		if t.iteration-e.addedAt < t.cfg.Tenure {
			kept = append(kept, e)
		}
	}
	t.tabu = kept
}

// Step moves to the best admissible neighbor, even when it is worse.
func (t *TabuSearch) Step() (Event, bool) {
	if t.finished {
		return t.last, true
	}

	var (
		next       grid.Cell
		found      bool
		aspiration bool
		nextV      = math.Inf(1)
	)
	for _, nc := range t.g.Neighbors(t.current, grid.Moore8) {
		v := t.g.Value(nc)
		tabu := t.IsTabu(nc)
		if tabu && v < t.bestValue {
			next, found, aspiration = nc, true, true
			break
		}
		if !tabu && v < nextV {
			next, nextV, found = nc, v, true
		}
	}

	if !found {
		ev := t.event(PhaseDone)
		ev.Tabu = t.TabuList()
		ev.Note = "no admissible move"
		return t.finish(ev)
	}

	t.addTabu(t.current)
	improved := t.moveTo(next)
	t.expire()
	t.iteration++

	ev := t.event(PhaseMove)
	ev.Accepted = true
	ev.Tabu = t.TabuList()
	switch {
	case aspiration:
		ev.Note = "aspiration"
	case improved:
		ev.Note = "new best"
	}
	if t.iteration >= t.cfg.MaxIterations {
		return t.finish(ev)
	}
	return ev, false
}

// Result reports the best cell seen so far.
func (t *TabuSearch) Result() Result { return t.result(AlgTabu) }
