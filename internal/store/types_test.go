package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/cwbudde/mlplayground/internal/search"
)

func testConfig() JobConfig {
	return JobConfig{
		Config:    search.DefaultConfig(search.AlgTabu),
		Generator: grid.GenPath,
		Seed:      42,
	}
}

// createTestCheckpoint returns a valid checkpoint on a 2x3 grid.
func createTestCheckpoint(jobID string) *Checkpoint {
	return &Checkpoint{
		JobID:      jobID,
		Grid:       [][]int{{9, 7, 4}, {8, 6, 2}},
		Start:      grid.Cell{Row: 0, Col: 0},
		StartValue: 9,
		Best:       grid.Cell{Row: 1, Col: 2},
		BestValue:  2,
		Current:    grid.Cell{Row: 1, Col: 2},
		Iteration:  3,
		Timestamp:  time.Date(2025, 10, 23, 10, 30, 0, 0, time.UTC),
		Config:     testConfig(),
	}
}

func TestCheckpoint_JSONRoundTrip(t *testing.T) {
	original := createTestCheckpoint("test-job-123")

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal checkpoint: %v", err)
	}

	var restored Checkpoint
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal checkpoint: %v", err)
	}

	if restored.JobID != original.JobID {
		t.Errorf("JobID mismatch: expected %s, got %s", original.JobID, restored.JobID)
	}
	if restored.Best != original.Best || restored.BestValue != original.BestValue {
		t.Errorf("Best mismatch: expected %v=%v, got %v=%v", original.Best, original.BestValue, restored.Best, restored.BestValue)
	}
	if !restored.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", original.Timestamp, restored.Timestamp)
	}
	if restored.Config.Algorithm != search.AlgTabu {
		t.Errorf("Config.Algorithm mismatch: got %q", restored.Config.Algorithm)
	}
	if restored.Config.Tabu.Tenure != original.Config.Tabu.Tenure {
		t.Errorf("Config.Tabu.Tenure mismatch: expected %d, got %d", original.Config.Tabu.Tenure, restored.Config.Tabu.Tenure)
	}
	if err := restored.Validate(); err != nil {
		t.Errorf("Restored checkpoint is invalid: %v", err)
	}
}

func TestJobConfig_FlattensSearchSettings(t *testing.T) {
	body := `{"algorithm": "sa", "generator": "landscape", "seed": 7, "annealing": {"initialTemp": 50, "cooling": 0.9, "minTemp": 0.1, "maxIterations": 20}}`

	var cfg JobConfig
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}
	if cfg.Algorithm != search.AlgAnnealing {
		t.Errorf("Expected algorithm sa, got %q", cfg.Algorithm)
	}
	if cfg.Generator != grid.GenLandscape || cfg.Seed != 7 {
		t.Errorf("Unexpected generator/seed: %q/%d", cfg.Generator, cfg.Seed)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	if !strings.Contains(string(data), `"algorithm":"sa"`) {
		t.Errorf("Expected flattened algorithm field in %s", data)
	}
}

func TestCheckpoint_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Checkpoint)
		field  string
	}{
		{"valid", func(c *Checkpoint) {}, ""},
		{"empty job id", func(c *Checkpoint) { c.JobID = "" }, "JobID"},
		{"empty grid", func(c *Checkpoint) { c.Grid = nil }, "Grid"},
		{"ragged grid", func(c *Checkpoint) { c.Grid = [][]int{{1, 2}, {3}} }, "Grid"},
		{"start outside", func(c *Checkpoint) { c.Start = grid.Cell{Row: 5, Col: 0} }, "Start"},
		{"best outside", func(c *Checkpoint) { c.Best = grid.Cell{Row: 0, Col: 3} }, "Best"},
		{"best value mismatch", func(c *Checkpoint) { c.BestValue = 1 }, "BestValue"},
		{"negative iteration", func(c *Checkpoint) { c.Iteration = -1 }, "Iteration"},
		{"zero timestamp", func(c *Checkpoint) { c.Timestamp = time.Time{} }, "Timestamp"},
		{"unknown algorithm", func(c *Checkpoint) { c.Config.Algorithm = "pso" }, "Config.Algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createTestCheckpoint("job")
			tt.mutate(c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Expected valid checkpoint, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s (%v)", tt.field, verr.Field, err)
			}
		})
	}
}

func TestCheckpoint_IsCompatible(t *testing.T) {
	c := createTestCheckpoint("job")

	if err := c.IsCompatible(testConfig()); err != nil {
		t.Errorf("Expected compatible config, got %v", err)
	}

	other := testConfig()
	other.Algorithm = search.AlgVNS
	err := c.IsCompatible(other)
	var cerr *CompatibilityError
	if !errors.As(err, &cerr) || cerr.Field != "Algorithm" {
		t.Fatalf("Expected Algorithm compatibility error, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected tabu, got vns") {
		t.Errorf("Unexpected message: %v", err)
	}

	sized := testConfig()
	sized.Grid = [][]int{{1, 2}, {3, 4}}
	err = c.IsCompatible(sized)
	if !errors.As(err, &cerr) || cerr.Field != "Grid" {
		t.Fatalf("Expected Grid compatibility error, got %v", err)
	}
	if cerr.Expected != "2x3" || cerr.Actual != "2x2" {
		t.Errorf("Expected 2x3 vs 2x2, got %s vs %s", cerr.Expected, cerr.Actual)
	}
}

func TestCheckpoint_ToInfo(t *testing.T) {
	info := createTestCheckpoint("job-7").ToInfo()

	if info.JobID != "job-7" || info.Algorithm != search.AlgTabu {
		t.Errorf("Unexpected identity: %+v", info)
	}
	if info.Rows != 2 || info.Cols != 3 {
		t.Errorf("Expected 2x3, got %dx%d", info.Rows, info.Cols)
	}
	if info.BestValue != 2 || info.StartValue != 9 || info.Iteration != 3 {
		t.Errorf("Unexpected values: %+v", info)
	}
}

func TestNewCheckpoint(t *testing.T) {
	g, err := grid.FromRows([][]int{{9, 7, 4}, {8, 6, 2}})
	if err != nil {
		t.Fatal(err)
	}
	ev := search.Event{
		Iteration: 2,
		Current:   grid.Cell{Row: 0, Col: 2},
		Best:      grid.Cell{Row: 0, Col: 2},
		BestValue: 4,
	}

	before := time.Now()
	c := NewCheckpoint("job", g, grid.Cell{}, ev, testConfig())

	if c.StartValue != 9 || c.BestValue != 4 || c.Iteration != 2 {
		t.Errorf("Unexpected checkpoint: %+v", c)
	}
	if c.Timestamp.Before(before) {
		t.Errorf("Timestamp %v is before %v", c.Timestamp, before)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Expected valid checkpoint, got %v", err)
	}

	loaded, err := c.LoadGrid()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.String() != g.String() {
		t.Errorf("Grid mismatch:\n%s\nvs\n%s", loaded, g)
	}
}
