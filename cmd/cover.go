package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/cwbudde/mlplayground/internal/cover"
	"github.com/spf13/cobra"
)

var (
	coverInput      string
	coverOutput     string
	coverPoints     int
	coverFacilities int
	coverRadiusKm   float64
	coverMetric     string
)

var coverCmd = &cobra.Command{
	Use:   "cover",
	Short: "Place facilities with the greedy maximal covering heuristic",
	Long: `Places facilities (ambulances, say) on incident locations so that as many
incidents as possible lie within the coverage radius. Each facility goes to
the location covering the most still uncovered incidents.

Incidents come from --input (CSV with latitude/longitude columns such as
LATITUD,LONGITUD) or are generated around a demo city center.`,
	RunE: runCover,
}

func init() {
	def := cover.DefaultConfig()
	coverCmd.Flags().StringVarP(&coverInput, "input", "i", "", "CSV file with incident coordinates (default: generated)")
	coverCmd.Flags().StringVarP(&coverOutput, "output", "o", "", "Write facility locations to this CSV file")
	coverCmd.Flags().IntVar(&coverPoints, "points", 300, "Number of generated incidents when no --input is given")
	coverCmd.Flags().IntVarP(&coverFacilities, "facilities", "a", def.Facilities, "Number of facilities to place")
	coverCmd.Flags().Float64VarP(&coverRadiusKm, "radius", "r", def.Radius/1000, "Coverage radius in km")
	coverCmd.Flags().StringVarP(&coverMetric, "metric", "m", string(def.Metric), "Distance (haversine, euclidean, manhattan)")
	rootCmd.AddCommand(coverCmd)
}

func runCover(cmd *cobra.Command, args []string) error {
	metric, err := cover.ParseMetric(coverMetric)
	if err != nil {
		return err
	}
	cfg := cover.Config{Facilities: coverFacilities, Radius: coverRadiusKm * 1000, Metric: metric}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rng := newRNG()
	demand, source, err := loadDemand(rng)
	if err != nil {
		return err
	}
	slog.Info("Placing facilities", "incidents", len(demand), "source", source,
		"facilities", cfg.Facilities, "radius_m", cfg.Radius, "metric", cfg.Metric)

	placements, err := cover.Greedy(rng, demand, cfg)
	if err != nil {
		return err
	}
	report := cover.Coverage(demand, cover.Sites(placements), cfg)

	if coverOutput != "" {
		f, err := os.Create(coverOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", coverOutput, err)
		}
		if err := cover.WriteCSV(f, cover.Sites(placements)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", coverOutput, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		slog.Info("Solution saved", "path", coverOutput)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"config":     cfg,
			"source":     source,
			"placements": placements,
			"coverage":   report,
		})
	}

	fmt.Fprintf(out, "Incidents: %d (%s)\n", len(demand), source)
	fmt.Fprintf(out, "Facilities: %d, radius %.2f km, metric %s\n\n", cfg.Facilities, coverRadiusKm, cfg.Metric)
	w := newTable(out)
	fmt.Fprintln(w, "#\tLATITUDE\tLONGITUDE\tNEWLY COVERED")
	for i, p := range placements {
		fmt.Fprintf(w, "%d\t%.6f\t%.6f\t%d\n", i+1, p.Site.Lat, p.Site.Lon, p.Gain)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nCovered: %d of %d (%.2f%%)\n", report.Covered, report.Total, report.Percent)
	return nil
}

// loadDemand reads --input or generates incidents when none is given.
func loadDemand(rng *rand.Rand) ([]cover.Site, string, error) {
	if coverInput == "" {
		if coverPoints < 1 {
			return nil, "", fmt.Errorf("points must be at least 1, got %d", coverPoints)
		}
		return cover.DemoSites(rng, cover.Center, coverPoints), "generated", nil
	}
	f, err := os.Open(coverInput)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open incidents: %w", err)
	}
	defer f.Close()
	sites, err := cover.ReadCSV(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", coverInput, err)
	}
	return sites, coverInput, nil
}
