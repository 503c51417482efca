package search

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/cwbudde/mlplayground/internal/grid"
)

// GRASPConfig bounds a GRASP run.
type GRASPConfig struct {
	MaxIterations int `json:"maxIterations"`
	// Alpha sets the candidate list threshold: 0 is greedy, 1 is uniform.
	Alpha float64 `json:"alpha"`
}

// DefaultGRASPConfig runs 10 constructions with alpha 0.3.
func DefaultGRASPConfig() GRASPConfig {
	return GRASPConfig{MaxIterations: 10, Alpha: 0.3}
}

// Validate requires at least one iteration and alpha in [0, 1].
func (c GRASPConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0, 1], got %v", c.Alpha)
	}
	return nil
}

// RestrictedCandidates returns the cells whose value is within
// alpha*(max-min) of the best of cells, sorted by value.
func RestrictedCandidates(g *grid.Grid, cells []grid.Cell, alpha float64) []grid.Cell {
	if len(cells) == 0 {
		return nil
	}
	sorted := append([]grid.Cell(nil), cells...)
	sort.SliceStable(sorted, func(i, j int) bool { return g.Value(sorted[i]) < g.Value(sorted[j]) })

	lo, hi := g.Value(sorted[0]), g.Value(sorted[len(sorted)-1])
	threshold := lo + alpha*(hi-lo)
	n := 0
	for n < len(sorted) && g.Value(sorted[n]) <= threshold {
		n++
	}
	return sorted[:n]
}

// GRASP repeats a greedy randomized construction followed by local search and
// keeps the best local optimum. Construction picks a random cell, then a
// random member of the restricted candidate list drawn from it and its
// 8-neighbors.
type GRASP struct {
	walker
	cfg GRASPConfig
	rng *rand.Rand

	// pending is set while the first constructed cell awaits its local search.
	pending bool
}

// NewGRASP prepares a run. The first construction happens here and its cell
// becomes the start, so Result is meaningful before the first step.
func NewGRASP(g *grid.Grid, cfg GRASPConfig, rng *rand.Rand) (*GRASP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &GRASP{walker: walker{g: g}, cfg: cfg, rng: rng}
	first := s.construct()
	w, err := newWalker(g, first)
	if err != nil {
		return nil, err
	}
	s.walker = w
	s.pending = true
	return s, nil
}

// Name returns the algorithm key.
func (s *GRASP) Name() string { return AlgGRASP }

func (s *GRASP) construct() grid.Cell {
	seed := s.g.RandomCell(s.rng)
	cands := append([]grid.Cell{seed}, s.g.Neighbors(seed, grid.Moore8)...)
	rcl := RestrictedCandidates(s.g, cands, s.cfg.Alpha)
	return rcl[s.rng.Intn(len(rcl))]
}

// Step runs one construction and its local search.
func (s *GRASP) Step() (Event, bool) {
	if s.finished {
		return s.last, true
	}

	first := s.pending
	c := s.start
	if first {
		s.pending = false
	} else {
		c = s.construct()
		s.current = c
		s.path = append(s.path, c)
	}
	constructed := s.g.Value(c)

	prev := s.bestValue
	s.descend(grid.Moore8)
	if v := s.g.Value(s.current); v < s.bestValue {
		s.best, s.bestValue = s.current, v
	}
	improved := first || s.bestValue < prev
	s.iteration++

	ev := s.event(PhaseConstruct)
	ev.Accepted = improved
	ev.Note = fmt.Sprintf("constructed %s (%v), local optimum %v", c, constructed, s.g.Value(s.current))
	if s.iteration >= s.cfg.MaxIterations {
		return s.finish(ev)
	}
	return ev, false
}

// Result summarizes the run so far.
func (s *GRASP) Result() Result { return s.result(AlgGRASP) }
