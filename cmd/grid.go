package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/spf13/cobra"
)

var (
	gridGenerator string
	gridRows      int
	gridCols      int
	gridOutput    string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Generate and inspect fitness grids",
}

var gridGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a grid and write it in text form",
	Long: `Generates a fitness grid. "path" is the 10x10 descent path demo; "landscape"
and "mountains" add random hills and valleys and accept --rows and --cols.`,
	RunE: runGridGenerate,
}

var gridShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Read a grid file and report its size and minimum",
	Args:  cobra.ExactArgs(1),
	RunE:  runGridShow,
}

func init() {
	gridGenerateCmd.Flags().StringVar(&gridGenerator, "generator", grid.GenPath, "Generator ("+strings.Join(grid.Generators, ", ")+")")
	gridGenerateCmd.Flags().IntVar(&gridRows, "rows", grid.DefaultSize, "Rows of a landscape grid")
	gridGenerateCmd.Flags().IntVar(&gridCols, "cols", grid.DefaultSize, "Columns of a landscape grid")
	gridGenerateCmd.Flags().StringVarP(&gridOutput, "output", "o", "", "Write to a file instead of stdout")

	gridCmd.AddCommand(gridGenerateCmd, gridShowCmd)
	rootCmd.AddCommand(gridCmd)
}

func generateGrid() (*grid.Grid, grid.Cell, error) {
	rng := newRNG()
	switch gridGenerator {
	case grid.GenLandscape, grid.GenMountains:
		g, err := grid.GenerateLandscapeSized(rng, gridRows, gridCols, gridGenerator == grid.GenMountains)
		if err != nil {
			return nil, grid.Cell{}, err
		}
		return g, g.RandomCell(rng), nil
	default:
		return grid.Generate(gridGenerator, rng)
	}
}

func runGridGenerate(cmd *cobra.Command, args []string) error {
	g, start, err := generateGrid()
	if err != nil {
		return err
	}

	if gridOutput != "" {
		f, err := os.Create(gridOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if err := g.WriteText(f); err != nil {
			return err
		}
		fmt.Fprintln(f)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d grid to %s (start %s)\n", g.Rows(), g.Cols(), gridOutput, g.Label(start))
		return nil
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"rows":  g.Rows(),
			"cols":  g.Cols(),
			"grid":  g.Data(),
			"start": start,
		})
	}
	if err := g.WriteText(out); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func runGridShow(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open grid file: %w", err)
		}
		defer f.Close()
		r = f
	}

	g, err := grid.ParseText(r)
	if err != nil {
		return fmt.Errorf("failed to parse grid: %w", err)
	}
	minCell, minValue := g.Min()

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"rows":     g.Rows(),
			"cols":     g.Cols(),
			"min":      minCell,
			"minValue": minValue,
			"minLabel": g.Label(minCell),
		})
	}
	fmt.Fprintf(out, "%dx%d grid, minimum %d at %s\n\n", g.Rows(), g.Cols(), minValue, g.Label(minCell))
	if err := g.WriteText(out); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}
