package search

import (
	"github.com/cwbudde/mlplayground/internal/grid"
)

// HillClimber moves to the strictly lowest neighbor until none is lower.
type HillClimber struct {
	walker
	n grid.Neighborhood
}

// NewHillClimber starts a climb at start. The neighborhood order decides
// between equal neighbors.
func NewHillClimber(g *grid.Grid, start grid.Cell, n grid.Neighborhood) (*HillClimber, error) {
	w, err := newWalker(g, start)
	if err != nil {
		return nil, err
	}
	return &HillClimber{walker: w, n: n}, nil
}

// Name returns AlgHillClimb.
func (h *HillClimber) Name() string { return AlgHillClimb }

// Step moves to the lowest neighbor. It finishes at a local minimum.
func (h *HillClimber) Step() (Event, bool) {
	if h.finished {
		return h.last, true
	}
	next, ok := h.bestNeighbor(h.current, h.n)
	if !ok {
		ev := h.event(PhaseDone)
		ev.Neighborhood = h.n.Name
		ev.Note = "local minimum"
		return h.finish(ev)
	}
	h.iteration++
	h.moveTo(next)
	ev := h.event(PhaseMove)
	ev.Accepted = true
	ev.Neighborhood = h.n.Name
	return ev, false
}

// Result summarizes the climb.
func (h *HillClimber) Result() Result { return h.result(AlgHillClimb) }

// HillClimb runs a climb to completion.
func HillClimb(g *grid.Grid, start grid.Cell, n grid.Neighborhood, observe Observer) (Result, error) {
	h, err := NewHillClimber(g, start, n)
	if err != nil {
		return Result{}, err
	}
	return Run(h, observe), nil
}
