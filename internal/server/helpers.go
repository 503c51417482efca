package server

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/cwbudde/mlplayground/internal/search"
)

// maxGridCells bounds explicit grids posted to the server.
const maxGridCells = 1 << 16

// DefaultJobConfig returns the settings a request body is decoded over, so
// omitted fields keep their defaults.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Config:    search.DefaultConfig(""),
		Generator: grid.GenPath,
	}
}

// NewSearch builds the grid and the search described by cfg. The same seed
// always yields the same grid, start cell and run.
//
// An explicit grid takes precedence over the generator. Without an explicit
// start, generated path grids start at the top of the path and every other
// grid at a random cell.
func NewSearch(cfg JobConfig) (*grid.Grid, search.Stepper, error) {
	if cfg.Algorithm == "" {
		return nil, nil, errors.New("algorithm is required")
	}
	if cfg.PaceMillis < 0 {
		return nil, nil, fmt.Errorf("paceMs must be non-negative, got %d", cfg.PaceMillis)
	}
	if cfg.CheckpointInterval < 0 {
		return nil, nil, fmt.Errorf("checkpointInterval must be non-negative, got %d", cfg.CheckpointInterval)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	var (
		g     *grid.Grid
		start grid.Cell
		err   error
	)
	if cfg.Grid != nil {
		if len(cfg.Grid) > 0 && len(cfg.Grid)*len(cfg.Grid[0]) > maxGridCells {
			return nil, nil, fmt.Errorf("grid too large: more than %d cells", maxGridCells)
		}
		g, err = grid.FromRows(cfg.Grid)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid grid: %w", err)
		}
		start = g.RandomCell(rng)
	} else {
		g, start, err = grid.Generate(cfg.Generator, rng)
		if err != nil {
			return nil, nil, err
		}
	}
	if cfg.Start != nil {
		start = *cfg.Start
	}

	s, err := search.New(g, start, cfg.Config, rng)
	if err != nil {
		return nil, nil, err
	}
	return g, s, nil
}
