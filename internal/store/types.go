package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/cwbudde/mlplayground/internal/search"
)

// JobConfig holds the configuration of a search job. The embedded search
// settings are flattened into the JSON object, so a request body looks like
// {"algorithm": "sa", "generator": "landscape", "annealing": {...}}.
type JobConfig struct {
	search.Config

	// Generator names the grid generator (path, landscape, mountains).
	// Ignored when Grid is set.
	Generator string `json:"generator,omitempty"`

	// Grid is an explicit grid, row-major.
	Grid [][]int `json:"grid,omitempty"`

	// Start overrides the generator's start cell.
	Start *grid.Cell `json:"start,omitempty"`

	Seed int64 `json:"seed"`

	// PaceMillis delays every step, 0 runs at full speed.
	PaceMillis int `json:"paceMs,omitempty"`

	// CheckpointInterval saves a checkpoint every N steps (0 = only at the end).
	CheckpointInterval int `json:"checkpointInterval,omitempty"`
}

// Checkpoint is a saved search state.
//
// Only the best cell and the counters are kept. Tabu lists, temperatures and
// GA populations are algorithm specific and are rebuilt on resume, which
// restarts the configured algorithm from Best on the stored grid. The best
// value therefore never gets worse across a resume, but the run is not a
// bit-exact continuation.
type Checkpoint struct {
	JobID string `json:"jobId"`

	// Grid is the searched grid, row-major.
	Grid [][]int `json:"grid"`

	Start      grid.Cell `json:"start"`
	StartValue float64   `json:"startValue"`

	// Best is the lowest cell seen so far and BestValue its value.
	Best      grid.Cell `json:"best"`
	BestValue float64   `json:"bestValue"`

	Current   grid.Cell `json:"current"`
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`

	Config JobConfig `json:"config"`
}

// CheckpointInfo is the listing view of a checkpoint, without the grid.
type CheckpointInfo struct {
	JobID      string    `json:"jobId"`
	Algorithm  string    `json:"algorithm"`
	BestValue  float64   `json:"bestValue"`
	StartValue float64   `json:"startValue"`
	Iteration  int       `json:"iteration"`
	Timestamp  time.Time `json:"timestamp"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
}

// NewCheckpoint captures the latest search event of a job.
func NewCheckpoint(jobID string, g *grid.Grid, start grid.Cell, ev search.Event, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:      jobID,
		Grid:       g.Data(),
		Start:      start,
		StartValue: g.Value(start),
		Best:       ev.Best,
		BestValue:  ev.BestValue,
		Current:    ev.Current,
		Iteration:  ev.Iteration,
		Timestamp:  time.Now(),
		Config:     config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	info := CheckpointInfo{
		JobID:      c.JobID,
		Algorithm:  c.Config.Algorithm,
		BestValue:  c.BestValue,
		StartValue: c.StartValue,
		Iteration:  c.Iteration,
		Timestamp:  c.Timestamp,
		Rows:       len(c.Grid),
	}
	if len(c.Grid) > 0 {
		info.Cols = len(c.Grid[0])
	}
	return info
}

// LoadGrid rebuilds the stored grid.
func (c *Checkpoint) LoadGrid() (*grid.Grid, error) {
	return grid.FromRows(c.Grid)
}

// Validate checks that the checkpoint is internally consistent.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.Grid) == 0 {
		return &ValidationError{Field: "Grid", Reason: "cannot be empty"}
	}
	g, err := c.LoadGrid()
	if err != nil {
		return &ValidationError{Field: "Grid", Reason: err.Error()}
	}
	if !g.Contains(c.Start) {
		return &ValidationError{Field: "Start", Reason: "outside the grid " + c.Start.String()}
	}
	if !g.Contains(c.Best) {
		return &ValidationError{Field: "Best", Reason: "outside the grid " + c.Best.String()}
	}
	if v := g.Value(c.Best); v != c.BestValue {
		return &ValidationError{
			Field:  "BestValue",
			Reason: fmt.Sprintf("is %v but the grid holds %v at %s", c.BestValue, v, c.Best),
		}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if !slices.Contains(search.Algorithms, c.Config.Algorithm) {
		return &ValidationError{Field: "Config.Algorithm", Reason: fmt.Sprintf("unknown algorithm %q", c.Config.Algorithm)}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given config.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.Algorithm != config.Algorithm {
		return &CompatibilityError{
			Field:    "Algorithm",
			Expected: c.Config.Algorithm,
			Actual:   config.Algorithm,
		}
	}
	if config.Grid != nil {
		rows, cols := len(config.Grid), 0
		if rows > 0 {
			cols = len(config.Grid[0])
		}
		info := c.ToInfo()
		if rows != info.Rows || cols != info.Cols {
			return &CompatibilityError{
				Field:    "Grid",
				Expected: fmt.Sprintf("%dx%d", info.Rows, info.Cols),
				Actual:   fmt.Sprintf("%dx%d", rows, cols),
			}
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
