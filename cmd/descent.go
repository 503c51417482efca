package main

import (
	"fmt"
	"strings"

	"github.com/cwbudde/mlplayground/internal/descent"
	"github.com/cwbudde/mlplayground/internal/opt"
	"github.com/spf13/cobra"
)

var (
	descentSurface  string
	descentLR       float64
	descentStart    []float64
	descentIters    int
	descentGradTol  float64
	descentConverge bool
	descentCompare  []string
	descentEvery    int
)

var descentCmd = &cobra.Command{
	Use:   "descent",
	Short: "Gradient descent on a 2D loss surface",
	Long: `Runs gradient descent on one of the built-in loss surfaces (bowl,
elongated, rosenbrock, rastrigin) and prints the trajectory.
--compare runs black-box optimizers on the same surface (mayfly, bfgs, neldermead).`,
	RunE: runDescent,
}

func init() {
	def := descent.DefaultRunConfig()
	descentCmd.Flags().StringVar(&descentSurface, "surface", "bowl", "Loss surface ("+strings.Join(descent.SurfaceNames(), ", ")+")")
	descentCmd.Flags().Float64Var(&descentLR, "lr", descent.DefaultLearningRate, "Learning rate")
	descentCmd.Flags().Float64SliceVar(&descentStart, "start", []float64{descent.DefaultStart[0], descent.DefaultStart[1]}, "Start point w1,w2")
	descentCmd.Flags().IntVar(&descentIters, "iters", def.MaxIters, "Maximum iterations")
	descentCmd.Flags().Float64Var(&descentGradTol, "grad-tol", def.GradTol, "Stop when the gradient norm falls below this")
	descentCmd.Flags().BoolVar(&descentConverge, "converge", false, "Stop when the loss plateaus")
	descentCmd.Flags().StringSliceVar(&descentCompare, "compare", nil, "Global optimizers to compare (mayfly, bfgs, neldermead)")
	descentCmd.Flags().IntVar(&descentEvery, "every", 10, "Print every Nth step")
	rootCmd.AddCommand(descentCmd)
}

func descentOptimizers(names []string) (map[string]opt.Optimizer, error) {
	optimizers := make(map[string]opt.Optimizer, len(names))
	for _, name := range names {
		switch name {
		case "mayfly":
			optimizers[name] = opt.NewMayfly(200, opt.MinMayflyPopulation, seed)
		case opt.MethodBFGS, opt.MethodNelderMead:
			o, err := opt.NewGonum(name, 500)
			if err != nil {
				return nil, err
			}
			optimizers[name] = o
		default:
			return nil, fmt.Errorf("unknown optimizer %q", name)
		}
	}
	return optimizers, nil
}

func runDescent(cmd *cobra.Command, args []string) error {
	surface, err := descent.Lookup(descentSurface)
	if err != nil {
		return err
	}
	if len(descentStart) != 2 {
		return fmt.Errorf("start needs two coordinates, got %d", len(descentStart))
	}
	if descentLR <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", descentLR)
	}
	start := [2]float64{descentStart[0], descentStart[1]}

	cfg := descent.DefaultRunConfig()
	cfg.MaxIters = descentIters
	cfg.GradTol = descentGradTol
	if descentConverge {
		cfg.Convergence = descent.DefaultConvergenceConfig()
	}

	out := cmd.OutOrStdout()
	if len(descentCompare) > 0 {
		optimizers, err := descentOptimizers(descentCompare)
		if err != nil {
			return err
		}
		results, err := descent.Compare(cmd.Context(), surface, start, descentLR, optimizers)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, results)
		}
		fmt.Fprintf(out, "%s: %s, minimum at (%g, %g)\n\n", surface.Name, surface.Equation, surface.Minimum[0], surface.Minimum[1])
		w := newTable(out)
		fmt.Fprintln(w, "METHOD\tW1\tW2\tLOSS\tEVALS\tDISTANCE")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.6f\t%d\t%.4f\n", r.Method, r.W[0], r.W[1], r.Loss, r.Evaluations, r.DistanceToMinimum)
		}
		return w.Flush()
	}

	gd := descent.NewGradientDescent(surface, descentLR, start)
	w := newTable(out)
	if !jsonOutput {
		fmt.Fprintln(w, "ITER\tW1\tW2\tLOSS\t|GRAD|")
	}
	observe := func(info descent.StepInfo) {
		if jsonOutput || descentEvery <= 0 || info.Iteration%descentEvery != 0 {
			return
		}
		fmt.Fprintf(w, "%d\t%.5f\t%.5f\t%.6f\t%.5f\n", info.Iteration, info.W[0], info.W[1], info.Loss, info.GradNorm)
	}
	res, err := gd.Run(cmd.Context(), cfg, observe)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, res)
	}
	w.Flush()
	fmt.Fprintf(out, "\nStopped after %d iterations (%s) at (%.5f, %.5f), loss %.6f\n",
		res.Iterations, res.Reason, res.W[0], res.W[1], res.Loss)
	return nil
}
