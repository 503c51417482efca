package search

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/cwbudde/mlplayground/internal/grid"
)

const (
	AlgHillClimb = "hill"
	AlgAnnealing = "sa"
	AlgTabu      = "tabu"
	AlgVNS       = "vns"
	AlgILS       = "ils"
	AlgGRASP     = "grasp"
	AlgGenetic   = "ga"
)

// Algorithms lists every algorithm name accepted by New.
var Algorithms = []string{AlgHillClimb, AlgAnnealing, AlgTabu, AlgVNS, AlgILS, AlgGRASP, AlgGenetic}

// ErrUnknownAlgorithm is returned by New for an unrecognized name.
var ErrUnknownAlgorithm = errors.New("unknown search algorithm")

// Config selects an algorithm and carries the settings of every algorithm;
// only the selected one is used.
type Config struct {
	Algorithm    string          `json:"algorithm"`
	Neighborhood string          `json:"neighborhood,omitempty"`
	Annealing    AnnealingConfig `json:"annealing"`
	Tabu         TabuConfig      `json:"tabu"`
	VNS          VNSConfig       `json:"vns"`
	ILS          ILSConfig       `json:"ils"`
	GRASP        GRASPConfig     `json:"grasp"`
	Genetic      GeneticConfig   `json:"genetic"`
}

// DefaultConfig returns the demo settings for algorithm. Hill climbing uses
// the right, left, down, up order.
func DefaultConfig(algorithm string) Config {
	return Config{
		Algorithm:    algorithm,
		Neighborhood: grid.VonNeumannOrdered.Name,
		Annealing:    DefaultAnnealingConfig(),
		Tabu:         DefaultTabuConfig(),
		VNS:          DefaultVNSConfig(),
		ILS:          DefaultILSConfig(),
		GRASP:        DefaultGRASPConfig(),
		Genetic:      DefaultGeneticConfig(),
	}
}

// NeedsStart reports whether the algorithm walks from a chosen start cell.
func NeedsStart(algorithm string) bool {
	return algorithm != AlgGRASP && algorithm != AlgGenetic
}

// New builds the configured search on g. start is ignored by GRASP and the
// genetic algorithm.
func New(g *grid.Grid, start grid.Cell, cfg Config, rng *rand.Rand) (Stepper, error) {
	switch cfg.Algorithm {
	case AlgHillClimb:
		name := cfg.Neighborhood
		if name == "" {
			name = grid.VonNeumannOrdered.Name
		}
		n, err := grid.LookupNeighborhood(name)
		if err != nil {
			return nil, err
		}
		return stepper(NewHillClimber(g, start, n))
	case AlgAnnealing:
		return stepper(NewAnnealer(g, start, cfg.Annealing, rng))
	case AlgTabu:
		return stepper(NewTabuSearch(g, start, cfg.Tabu))
	case AlgVNS:
		return stepper(NewVNS(g, start, cfg.VNS, rng))
	case AlgILS:
		return stepper(NewILS(g, start, cfg.ILS, rng))
	case AlgGRASP:
		return stepper(NewGRASP(g, cfg.GRASP, rng))
	case AlgGenetic:
		return stepper(NewGenetic(g, cfg.Genetic, rng))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, cfg.Algorithm)
	}
}

// stepper keeps a typed nil out of the Stepper interface.
func stepper[S Stepper](s S, err error) (Stepper, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
