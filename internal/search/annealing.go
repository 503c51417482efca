package search

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mlplayground/internal/grid"
)

// AnnealingConfig controls the cooling schedule.
type AnnealingConfig struct {
	InitialTemp   float64 `json:"initialTemp"`
	Cooling       float64 `json:"cooling"`
	MinTemp       float64 `json:"minTemp"`
	MaxIterations int     `json:"maxIterations"`
}

// DefaultAnnealingConfig starts at 100 and cools by 5% per step for at most
// 100 steps.
func DefaultAnnealingConfig() AnnealingConfig {
	return AnnealingConfig{
		InitialTemp:   100,
		Cooling:       0.95,
		MinTemp:       0.1,
		MaxIterations: 100,
	}
}

// Validate checks the temperature schedule.
func (c AnnealingConfig) Validate() error {
	if c.InitialTemp <= 0 {
		return fmt.Errorf("initial temperature must be positive, got %v", c.InitialTemp)
	}
	if c.Cooling <= 0 || c.Cooling >= 1 {
		return fmt.Errorf("cooling must be in (0, 1), got %v", c.Cooling)
	}
	if c.MinTemp < 0 {
		return fmt.Errorf("min temperature must be non-negative, got %v", c.MinTemp)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

// AcceptanceProbability is 1 for an improvement and exp((e-next)/t)
// otherwise.
func AcceptanceProbability(e, next, t float64) float64 {
	if next < e {
		return 1
	}
	return math.Exp((e - next) / t)
}

// Annealer proposes a random 8-neighbor per step and accepts it with the
// Metropolis probability at the current temperature.
type Annealer struct {
	walker
	cfg  AnnealingConfig
	temp float64
	rng  *rand.Rand
}

func NewAnnealer(g *grid.Grid, start grid.Cell, cfg AnnealingConfig, rng *rand.Rand) (*Annealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := newWalker(g, start)
	if err != nil {
		return nil, err
	}
	return &Annealer{walker: w, cfg: cfg, temp: cfg.InitialTemp, rng: rng}, nil
}

// Name returns AlgAnnealing.
func (a *Annealer) Name() string { return AlgAnnealing }

// Temperature returns the current temperature.
func (a *Annealer) Temperature() float64 { return a.temp }

// Step proposes one neighbor, applies the acceptance rule and cools.
func (a *Annealer) Step() (Event, bool) {
	if a.finished {
		return a.last, true
	}

	neighbors := a.g.Neighbors(a.current, grid.Moore8)
	if len(neighbors) == 0 {
		ev := a.event(PhaseDone)
		ev.Note = "no neighbors"
		return a.finish(ev)
	}
	cand := neighbors[a.rng.Intn(len(neighbors))]
	p := AcceptanceProbability(a.g.Value(a.current), a.g.Value(cand), a.temp)
	accepted := a.rng.Float64() < p

	stepTemp := a.temp
	phase := PhaseStay
	if accepted {
		a.moveTo(cand)
		phase = PhaseMove
	}
	a.temp *= a.cfg.Cooling
	a.iteration++

	ev := a.event(phase)
	ev.Accepted = accepted
	ev.Temperature = stepTemp
	ev.Note = fmt.Sprintf("candidate %s p=%.3f", cand, p)
	if a.iteration >= a.cfg.MaxIterations || a.temp < a.cfg.MinTemp {
		return a.finish(ev)
	}
	return ev, false
}

// Result is the best cell visited, not the final one.
func (a *Annealer) Result() Result { return a.result(AlgAnnealing) }
