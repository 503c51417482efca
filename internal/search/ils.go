package search

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mlplayground/internal/grid"
)

// ILSConfig bounds an iterated local search.
type ILSConfig struct {
	MaxIterations int `json:"maxIterations"`
	// Strength is the number of random 8-neighbor moves per perturbation.
	Strength int `json:"strength"`
}

// DefaultILSConfig runs 15 iterations with perturbations of two moves.
func DefaultILSConfig() ILSConfig {
	return ILSConfig{MaxIterations: 15, Strength: 2}
}

// Validate checks the iteration budget and perturbation strength.
func (c ILSConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Strength < 1 {
		return fmt.Errorf("perturbation strength must be positive, got %d", c.Strength)
	}
	return nil
}

// ILS alternates local search with random perturbations. A perturbed local
// optimum replaces the current one when it is no worse; otherwise the search
// returns to where it was.
type ILS struct {
	walker
	cfg          ILSConfig
	localOptimum float64
	rng          *rand.Rand
}

func NewILS(g *grid.Grid, start grid.Cell, cfg ILSConfig, rng *rand.Rand) (*ILS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := newWalker(g, start)
	if err != nil {
		return nil, err
	}
	return &ILS{walker: w, cfg: cfg, localOptimum: g.Value(start), rng: rng}, nil
}

// Name returns AlgILS.
func (s *ILS) Name() string { return AlgILS }

func (s *ILS) perturb() {
	for i := 0; i < s.cfg.Strength; i++ {
		if ns := s.g.Neighbors(s.current, grid.Moore8); len(ns) > 0 {
			s.moveTo(ns[s.rng.Intn(len(ns))])
		}
	}
}

// Step runs one iteration: local search, then, unless it is the last
// iteration, perturbation, local search and the acceptance test.
func (s *ILS) Step() (Event, bool) {
	if s.finished {
		return s.last, true
	}
	s.iteration++

	s.descend(grid.Moore8)
	s.localOptimum = s.g.Value(s.current)

	if s.iteration >= s.cfg.MaxIterations {
		ev := s.event(PhaseDone)
		ev.Note = fmt.Sprintf("local optimum %v", s.localOptimum)
		return s.finish(ev)
	}

	before := s.current
	s.perturb()
	s.descend(grid.Moore8)

	nv := s.g.Value(s.current)
	accepted := nv <= s.localOptimum
	phase := PhaseAccept
	note := fmt.Sprintf("%v <= %v", nv, s.localOptimum)
	if accepted {
		s.localOptimum = nv
	} else {
		phase = PhaseReject
		note = fmt.Sprintf("%v > %v, back to %s", nv, s.localOptimum, before)
		s.current = before
		s.path = append(s.path, before)
	}

	ev := s.event(phase)
	ev.Accepted = accepted
	ev.Note = note
	return ev, false
}

// Result is the best local optimum found.
func (s *ILS) Result() Result { return s.result(AlgILS) }
