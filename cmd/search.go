package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/cwbudde/mlplayground/internal/search"
	"github.com/cwbudde/mlplayground/internal/server"
	"github.com/cwbudde/mlplayground/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	searchGenerator    string
	searchGridFile     string
	searchStart        []int
	searchNeighborhood string
	searchMaxIters     int
	searchPace         int
	searchShowSteps    bool
	searchDataDir      string
	searchInitialTemp  float64
	searchCooling      float64
	searchMinTemp      float64
	searchTenure       int
	searchStrength     int
	searchAlpha        float64
	searchPopulation   int
	searchGenerations  int
	searchMutation     float64
)

var searchCmd = &cobra.Command{
	Use:   "search <algorithm>",
	Short: "Run a grid metaheuristic",
	Long: `Minimizes a numeric grid with one of the metaheuristics:
  ` + strings.Join(search.Algorithms, ", ") + `

The grid comes from a generator (path, landscape, mountains) or from a text
file in the "v, v, v" row format. With --data-dir the run is saved as a
checkpoint plus a JSONL trace and can be continued with "resume".`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: search.Algorithms,
	RunE:      runSearch,
}

func init() {
	def := search.DefaultConfig("")
	searchCmd.Flags().StringVar(&searchGenerator, "generator", grid.GenPath, "Grid generator ("+strings.Join(grid.Generators, ", ")+")")
	searchCmd.Flags().StringVar(&searchGridFile, "grid-file", "", "Read the grid from a text file instead of generating it")
	searchCmd.Flags().IntSliceVar(&searchStart, "start", nil, "Start cell as row,col")
	searchCmd.Flags().StringVar(&searchNeighborhood, "neighborhood", def.Neighborhood, "Hill climbing neighborhood (cross4, diagonal4, moore8, extended12, vonneumann)")
	searchCmd.Flags().IntVar(&searchMaxIters, "max-iters", 0, "Iteration limit of the algorithm (0 = default)")
	searchCmd.Flags().IntVar(&searchPace, "pace", 0, "Delay between steps in milliseconds")
	searchCmd.Flags().BoolVar(&searchShowSteps, "steps", false, "Print every step")
	searchCmd.Flags().StringVar(&searchDataDir, "data-dir", "", "Save a checkpoint and trace under this directory")

	searchCmd.Flags().Float64Var(&searchInitialTemp, "temp", def.Annealing.InitialTemp, "Annealing initial temperature")
	searchCmd.Flags().Float64Var(&searchCooling, "cooling", def.Annealing.Cooling, "Annealing cooling rate")
	searchCmd.Flags().Float64Var(&searchMinTemp, "min-temp", def.Annealing.MinTemp, "Annealing minimum temperature")
	searchCmd.Flags().IntVar(&searchTenure, "tenure", def.Tabu.Tenure, "Tabu tenure")
	searchCmd.Flags().IntVar(&searchStrength, "strength", def.ILS.Strength, "ILS perturbation strength")
	searchCmd.Flags().Float64Var(&searchAlpha, "alpha", def.GRASP.Alpha, "GRASP candidate list threshold")
	searchCmd.Flags().IntVar(&searchPopulation, "population", def.Genetic.Population, "GA population size")
	searchCmd.Flags().IntVar(&searchGenerations, "generations", def.Genetic.Generations, "GA generations")
	searchCmd.Flags().Float64Var(&searchMutation, "mutation", def.Genetic.MutationRate, "GA mutation rate")

	rootCmd.AddCommand(searchCmd)
}

// searchConfig builds the job configuration from the command line.
func searchConfig(algorithm string) (store.JobConfig, error) {
	cfg := server.DefaultJobConfig()
	cfg.Algorithm = algorithm
	cfg.Generator = searchGenerator
	cfg.Seed = seed
	cfg.PaceMillis = searchPace
	cfg.Neighborhood = searchNeighborhood

	cfg.Annealing.InitialTemp = searchInitialTemp
	cfg.Annealing.Cooling = searchCooling
	cfg.Annealing.MinTemp = searchMinTemp
	cfg.Tabu.Tenure = searchTenure
	cfg.ILS.Strength = searchStrength
	cfg.GRASP.Alpha = searchAlpha
	cfg.Genetic.Population = searchPopulation
	cfg.Genetic.Generations = searchGenerations
	cfg.Genetic.MutationRate = searchMutation

	if searchMaxIters > 0 {
		cfg.Annealing.MaxIterations = searchMaxIters
		cfg.Tabu.MaxIterations = searchMaxIters
		cfg.VNS.MaxIterations = searchMaxIters
		cfg.ILS.MaxIterations = searchMaxIters
		cfg.GRASP.MaxIterations = searchMaxIters
	}

	if searchGridFile != "" {
		f, err := os.Open(searchGridFile)
		if err != nil {
			return cfg, fmt.Errorf("failed to open grid file: %w", err)
		}
		defer f.Close()
		g, err := grid.ParseText(f)
		if err != nil {
			return cfg, fmt.Errorf("failed to parse grid file: %w", err)
		}
		cfg.Grid = g.Data()
	}

	if len(searchStart) > 0 {
		if len(searchStart) != 2 {
			return cfg, fmt.Errorf("start needs row,col, got %d values", len(searchStart))
		}
		cfg.Start = &grid.Cell{Row: searchStart[0], Col: searchStart[1]}
	}
	return cfg, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := searchConfig(args[0])
	if err != nil {
		return err
	}
	g, stepper, err := server.NewSearch(cfg)
	if err != nil {
		return err
	}

	var fsStore *store.FSStore
	if searchDataDir != "" {
		fsStore, err = store.NewFSStore(searchDataDir)
		if err != nil {
			return fmt.Errorf("failed to create checkpoint store: %w", err)
		}
	}

	run := searchRun{
		jobID:   uuid.New().String(),
		config:  cfg,
		grid:    g,
		start:   stepper.Result().Start,
		stepper: stepper,
		store:   fsStore,
	}
	return run.execute(cmd.Context(), cmd.OutOrStdout())
}

// searchRun is one command-line search, optionally persisted like a server job.
type searchRun struct {
	jobID   string
	config  store.JobConfig
	grid    *grid.Grid
	start   grid.Cell
	stepper search.Stepper
	store   *store.FSStore

	// prior is set when resuming: the trace is appended to, iterations
	// continue from its count and its best is kept when the new run does
	// not beat it.
	prior *store.Checkpoint
}

func (r searchRun) execute(ctx context.Context, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var trace *store.TraceWriter
	if r.store != nil {
		tw, err := store.NewTraceWriter(r.store.BaseDir(), r.jobID, r.prior != nil)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		trace = tw
	}

	var last search.Event
	steps := 0
	observe := func(ev search.Event) {
		if r.prior != nil {
			ev.Iteration += r.prior.Iteration
			if r.prior.BestValue < ev.BestValue {
				ev.Best = r.prior.Best
				ev.BestValue = r.prior.BestValue
			}
		}
		last = ev
		steps++
		if trace != nil {
			if err := trace.WriteEvent(ev); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", r.jobID, "error", err)
			}
		}
		if searchShowSteps && !jsonOutput {
			printEvent(out, r.grid, ev)
		}
	}

	runner := search.Runner{
		Pace:     time.Duration(r.config.PaceMillis) * time.Millisecond,
		Observer: observe,
	}
	result, runErr := runner.Run(ctx, r.stepper)

	if trace != nil {
		if err := trace.Close(); err != nil {
			slog.Warn("Failed to close trace", "job_id", r.jobID, "error", err)
		}
	}
	if r.store != nil && steps > 0 {
		checkpoint := store.NewCheckpoint(r.jobID, r.grid, r.start, last, r.config)
		if err := r.store.SaveCheckpoint(r.jobID, checkpoint); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		slog.Info("Checkpoint saved", "job_id", r.jobID, "iteration", last.Iteration, "best_value", last.BestValue)
	}
	if runErr != nil {
		return runErr
	}
	if r.prior != nil && r.prior.BestValue < result.BestValue {
		result.Best = r.prior.Best
		result.BestValue = r.prior.BestValue
	}

	if jsonOutput {
		return writeJSON(out, struct {
			JobID  string        `json:"jobId,omitempty"`
			Result search.Result `json:"result"`
		}{r.persistedID(), result})
	}
	printResult(out, r.grid, result)
	if id := r.persistedID(); id != "" {
		fmt.Fprintf(out, "Saved as job %s\n", id)
	}
	return nil
}

func (r searchRun) persistedID() string {
	if r.store == nil {
		return ""
	}
	return r.jobID
}

func printEvent(out io.Writer, g *grid.Grid, ev search.Event) {
	line := fmt.Sprintf("%4d  %-18s  at %-9s %6.1f  best %-9s %6.1f",
		ev.Iteration, ev.Phase, g.Label(ev.Current), ev.Value, g.Label(ev.Best), ev.BestValue)
	if ev.Temperature > 0 {
		line += fmt.Sprintf("  T=%.3f", ev.Temperature)
	}
	if ev.Neighborhood != "" {
		line += "  N=" + ev.Neighborhood
	}
	if ev.Note != "" {
		line += "  " + ev.Note
	}
	fmt.Fprintln(out, line)
}

func printResult(out io.Writer, g *grid.Grid, res search.Result) {
	fmt.Fprintf(out, "Algorithm:  %s\n", res.Algorithm)
	fmt.Fprintf(out, "Start:      %s = %g\n", g.Label(res.Start), res.StartValue)
	fmt.Fprintf(out, "Best:       %s = %g\n", g.Label(res.Best), res.BestValue)
	fmt.Fprintf(out, "Iterations: %d\n", res.Iterations)
	if minCell, minValue := g.Min(); float64(minValue) == res.BestValue {
		fmt.Fprintln(out, "Reached the global minimum.")
	} else {
		fmt.Fprintf(out, "Global minimum is %s = %d\n", g.Label(minCell), minValue)
	}
}
