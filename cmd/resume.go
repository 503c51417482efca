package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/mlplayground/internal/server"
	"github.com/cwbudde/mlplayground/internal/store"
	"github.com/spf13/cobra"
)

var (
	resumeDataDir   string
	resumeAlgorithm string
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a search from its checkpoint",
	Long: `Loads a saved checkpoint and restarts the search on the stored grid from
the best cell found so far. The checkpoint and trace are extended in place.
--algorithm guards against resuming the wrong job: a value that differs
from the checkpoint's algorithm is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for checkpoint storage")
	resumeCmd.Flags().StringVar(&resumeAlgorithm, "algorithm", "", "Expected algorithm of the checkpoint")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	fsStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	checkpoint, err := fsStore.LoadCheckpoint(jobID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no checkpoint for job %s in %s", jobID, resumeDataDir)
	}
	if err != nil {
		return err
	}

	cfg := checkpoint.Config
	cfg.Grid = checkpoint.Grid
	if resumeAlgorithm != "" {
		cfg.Algorithm = resumeAlgorithm
	}
	if err := checkpoint.IsCompatible(cfg); err != nil {
		return fmt.Errorf("cannot resume %s: %w", jobID, err)
	}

	best := checkpoint.Best
	cfg.Start = &best
	g, stepper, err := server.NewSearch(cfg)
	if err != nil {
		return err
	}

	slog.Info("Resuming job",
		"job_id", jobID,
		"algorithm", cfg.Algorithm,
		"iteration", checkpoint.Iteration,
		"best", checkpoint.Best,
		"best_value", checkpoint.BestValue,
	)

	run := searchRun{
		jobID:   jobID,
		config:  checkpoint.Config,
		grid:    g,
		start:   checkpoint.Start,
		stepper: stepper,
		store:   fsStore,
		prior:   checkpoint,
	}
	return run.execute(cmd.Context(), cmd.OutOrStdout())
}
