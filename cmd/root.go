package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logger     *slog.Logger
	seed       int64
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "mlplayground",
	Short: "Machine learning and metaheuristic teaching algorithms",
	Long: `mlplayground runs small, self-contained machine learning demos
(regression, classification, clustering, gradient descent) and grid
metaheuristics (hill climbing, annealing, tabu, VNS, ILS, GRASP, genetic)
from the command line or as jobs behind an HTTP server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		// Logs go to stderr so --json output on stdout stays parseable.
		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Random seed for data generation and stochastic algorithms")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON instead of text")
}

// newRNG returns a generator seeded from --seed.
func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
