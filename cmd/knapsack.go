package main

import (
	"fmt"
	"io"

	"github.com/cwbudde/mlplayground/internal/knapsack"
	"github.com/spf13/cobra"
)

var (
	knapsackRep      string
	knapsackCapacity int
	knapsackSamples  int
)

var knapsackCmd = &cobra.Command{
	Use:   "knapsack",
	Short: "Encode and evaluate 0/1 knapsack solutions",
	Long: `Shows the demo knapsack instance (15 items) under one solution
representation: binary, integer, randomkeys or permutation. Prints the greedy
value/weight solution, random samples and the exact optimum.`,
	RunE: runKnapsack,
}

func init() {
	knapsackCmd.Flags().StringVar(&knapsackRep, "representation", string(knapsack.Binary), "Encoding (binary, integer, randomkeys, permutation)")
	knapsackCmd.Flags().IntVar(&knapsackCapacity, "capacity", knapsack.DefaultCapacity, "Knapsack capacity")
	knapsackCmd.Flags().IntVar(&knapsackSamples, "samples", 5, "Number of random solutions to evaluate")
	rootCmd.AddCommand(knapsackCmd)
}

type scoredSolution struct {
	Label      string              `json:"label"`
	Solution   knapsack.Solution   `json:"solution"`
	Evaluation knapsack.Evaluation `json:"evaluation"`
}

func runKnapsack(cmd *cobra.Command, args []string) error {
	rep, err := knapsack.ParseRepresentation(knapsackRep)
	if err != nil {
		return err
	}
	problem := knapsack.DefaultProblem()
	problem.Capacity = knapsackCapacity
	if err := problem.Validate(); err != nil {
		return fmt.Errorf("invalid problem: %w", err)
	}

	var scored []scoredSolution
	score := func(label string, s knapsack.Solution) error {
		ev, err := problem.Evaluate(s)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		scored = append(scored, scoredSolution{Label: label, Solution: s, Evaluation: ev})
		return nil
	}

	greedy, err := problem.Greedy(rep)
	if err != nil {
		return err
	}
	if err := score("greedy", greedy); err != nil {
		return err
	}
	rng := newRNG()
	for i := 0; i < knapsackSamples; i++ {
		s, err := problem.Random(rng, rep)
		if err != nil {
			return err
		}
		if err := score(fmt.Sprintf("random %d", i+1), s); err != nil {
			return err
		}
	}
	optimum := problem.Optimum()

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"problem":   problem,
			"solutions": scored,
			"optimum":   optimum,
		})
	}

	printItems(out, problem)
	fmt.Fprintf(out, "\nRepresentation: %s, capacity %d\n\n", rep, problem.Capacity)
	w := newTable(out)
	fmt.Fprintln(w, "SOLUTION\tWEIGHT\tVALUE\tFEASIBLE\tENCODING")
	for _, s := range scored {
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%s\n", s.Label, s.Evaluation.Weight, s.Evaluation.Value, s.Evaluation.Feasible, s.Solution)
	}
	fmt.Fprintf(w, "optimum\t%d\t%d\t%v\t%v\n", optimum.Weight, optimum.Value, optimum.Feasible, optimum.Packed)
	return w.Flush()
}

func printItems(out io.Writer, p knapsack.Problem) {
	w := newTable(out)
	fmt.Fprintln(w, "#\tITEM\tWEIGHT\tVALUE\tRATIO")
	for i, it := range p.Items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.2f\n", i, it.Name, it.Weight, it.Value, it.Ratio())
	}
	w.Flush()
}
