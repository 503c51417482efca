package search

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mlplayground/internal/grid"
)

// VNSNeighborhoods are N1..N4, from smallest to largest.
var VNSNeighborhoods = []grid.Neighborhood{
	grid.Cross4,
	grid.Diagonal4,
	grid.Moore8,
	grid.ExtendedCross12,
}

// VNSConfig bounds a variable neighborhood search.
type VNSConfig struct {
	MaxIterations int `json:"maxIterations"`
}

// DefaultVNSConfig allows 100 iterations.
func DefaultVNSConfig() VNSConfig {
	return VNSConfig{MaxIterations: 100}
}

// Validate requires a positive iteration budget.
func (c VNSConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

// VNS looks for an improving move in one neighborhood per step. An
// improvement resets to N1, a failure widens to the next neighborhood, and a
// failure in the last one shakes to a random cell of it.
type VNS struct {
	walker
	cfg VNSConfig
	k   int
	rng *rand.Rand
}

func NewVNS(g *grid.Grid, start grid.Cell, cfg VNSConfig, rng *rand.Rand) (*VNS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := newWalker(g, start)
	if err != nil {
		return nil, err
	}
	return &VNS{walker: w, cfg: cfg, rng: rng}, nil
}

// Name returns AlgVNS.
func (v *VNS) Name() string { return AlgVNS }

// Neighborhood returns the neighborhood the next step searches.
func (v *VNS) Neighborhood() grid.Neighborhood { return VNSNeighborhoods[v.k] }

// Step searches the current neighborhood. It returns to the first one on
// improvement, widens on failure and shakes once the widest has failed.
func (v *VNS) Step() (Event, bool) {
	if v.finished {
		return v.last, true
	}

	n := VNSNeighborhoods[v.k]
	var phase Phase
	var note string
	if next, ok := v.bestNeighbor(v.current, n); ok {
		v.moveTo(next)
		v.k = 0
		phase = PhaseMove
	} else if v.k < len(VNSNeighborhoods)-1 {
		v.k++
		phase = PhaseNextNeighborhood
		note = "no improvement, widening to " + VNSNeighborhoods[v.k].Name
	} else {
		phase = PhaseShake
		if all := v.g.Neighbors(v.current, n); len(all) > 0 {
			v.moveTo(all[v.rng.Intn(len(all))])
		}
		v.k = 0
	}
	v.iteration++

	ev := v.event(phase)
	ev.Accepted = phase == PhaseMove
	ev.Neighborhood = n.Name
	ev.Note = note
	if v.iteration >= v.cfg.MaxIterations {
		return v.finish(ev)
	}
	return ev, false
}

// Result reports the best cell so far.
func (v *VNS) Result() Result { return v.result(AlgVNS) }
