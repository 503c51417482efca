package main

import (
	"fmt"

	"github.com/cwbudde/mlplayground/internal/classify"
	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/opt"
	"github.com/spf13/cobra"
)

var (
	classifyPoints     int
	classifyShape      string
	classifyLR         float64
	classifyIters      int
	classifyK          int
	classifyComplexity int
	classifyQuery      []float64
	classifyPreset     string
	classifyC          float64
	classifyOptimizer  string
	classifyScenario   string
	classifyMatrix     []int
	classifyPosMean    float64
	classifyNegMean    float64
	classifyStd        float64
	classifyStep       float64
	classifyThreshold  float64
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classification demos: logistic regression, k-NN, SVM and evaluation",
}

var classifyLogisticCmd = &cobra.Command{
	Use:   "logistic",
	Short: "Train logistic regression by gradient descent on cross-entropy",
	RunE:  runClassifyLogistic,
}

var classifyKNNCmd = &cobra.Command{
	Use:   "knn",
	Short: "k-nearest-neighbor accuracy on the three-class sample",
	RunE:  runClassifyKNN,
}

var classifySVMCmd = &cobra.Command{
	Use:   "svm",
	Short: "Fit a hard- or soft-margin SVM to a preset data set",
	Long: `Fits a maximum-margin hyperplane to one of the preset ±1 data sets.
With --c 0 the hard-margin fit is used; otherwise a soft margin with penalty C.
--optimizer mayfly minimizes the primal objective with the mayfly algorithm.`,
	RunE: runClassifySVM,
}

var classifyConfusionCmd = &cobra.Command{
	Use:   "confusion",
	Short: "Metrics of a confusion matrix",
	RunE:  runClassifyConfusion,
}

var classifyROCCmd = &cobra.Command{
	Use:   "roc",
	Short: "ROC curve and AUC for simulated classifier scores",
	RunE:  runClassifyROC,
}

var classifyRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Evaluate the housing rule set (SF vs NY)",
	RunE:  runClassifyRules,
}

var classifyCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare logistic regression and a soft-margin SVM",
	RunE:  runClassifyCompare,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.AddCommand(classifyLogisticCmd, classifyKNNCmd, classifySVMCmd, classifyConfusionCmd,
		classifyROCCmd, classifyRulesCmd, classifyCompareCmd)

	classifyCmd.PersistentFlags().IntVarP(&classifyPoints, "points", "n", 100, "Number of samples")

	def := classify.DefaultTrainConfig()
	classifyLogisticCmd.Flags().StringVar(&classifyShape, "shape", "separable", "Data set (separable, overlap, diagonal)")
	classifyLogisticCmd.Flags().Float64Var(&classifyLR, "lr", def.LearningRate, "Learning rate")
	classifyLogisticCmd.Flags().IntVar(&classifyIters, "iters", def.MaxIters, "Maximum gradient steps")

	classifyKNNCmd.Flags().IntVar(&classifyK, "k", 5, "Number of neighbors")
	classifyKNNCmd.Flags().IntVar(&classifyComplexity, "complexity", 0, "Model complexity 1..10, overrides --k")
	classifyKNNCmd.Flags().Float64SliceVar(&classifyQuery, "query", nil, "Classify one point given as x1,x2")

	for _, c := range []*cobra.Command{classifySVMCmd, classifyCompareCmd} {
		c.Flags().StringVar(&classifyPreset, "preset", "separable", "Data set (separable, overlap, outlier, diagonal, clusters)")
		c.Flags().Float64Var(&classifyC, "c", 1, "Soft-margin penalty C")
	}
	classifySVMCmd.Flags().StringVar(&classifyOptimizer, "optimizer", "", "Primal optimizer for the soft margin (mayfly)")

	classifyConfusionCmd.Flags().StringVar(&classifyScenario, "scenario", "balanced", "Preset matrix")
	classifyConfusionCmd.Flags().IntSliceVar(&classifyMatrix, "matrix", nil, "Custom matrix as tp,fn,fp,tn")

	classifyROCCmd.Flags().Float64Var(&classifyPosMean, "pos-mean", 0.7, "Mean score of positives")
	classifyROCCmd.Flags().Float64Var(&classifyNegMean, "neg-mean", 0.3, "Mean score of negatives")
	classifyROCCmd.Flags().Float64Var(&classifyStd, "std", 0.15, "Score standard deviation")
	classifyROCCmd.Flags().Float64Var(&classifyStep, "step", 0.05, "Threshold step")
	classifyROCCmd.Flags().Float64Var(&classifyThreshold, "threshold", 0.5, "Threshold to report the confusion matrix at")
}

func runClassifyLogistic(cmd *cobra.Command, args []string) error {
	data, err := dataset.LogisticShape(newRNG(), classifyShape, classifyPoints)
	if err != nil {
		return err
	}

	cfg := classify.DefaultTrainConfig()
	cfg.LearningRate = classifyLR
	cfg.MaxIters = classifyIters

	var model classify.Logistic
	losses := model.Train(data, cfg)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"model":    model,
			"accuracy": model.Accuracy(data),
			"loss":     model.Loss(data),
			"steps":    len(losses),
		})
	}
	fmt.Fprintf(out, "Trained %d steps on %q (%d points)\n", len(losses), classifyShape, len(data))
	fmt.Fprintf(out, "Weights: w1=%.4f w2=%.4f b=%.4f\n", model.W1, model.W2, model.B)
	fmt.Fprintf(out, "Cross-entropy: %.4f  Accuracy: %.1f%%\n", model.Loss(data), model.Accuracy(data)*100)
	if x2, ok := model.BoundaryX2(0); ok {
		fmt.Fprintf(out, "Boundary crosses x1=0 at x2=%.4f\n", x2)
	}
	return nil
}

func runClassifyKNN(cmd *cobra.Command, args []string) error {
	k := classifyK
	if classifyComplexity > 0 {
		k = classify.ComplexityK(classifyComplexity)
	}
	if k < 1 {
		return fmt.Errorf("k must be at least 1, got %d", k)
	}

	rng := newRNG()
	pts := dataset.Shuffle(rng, dataset.KNNClasses(rng))
	cut := len(pts) * 7 / 10
	model := classify.KNN{Train: pts[:cut]}
	trainAcc := model.Accuracy(pts[:cut], k)
	testAcc := model.Accuracy(pts[cut:], k)
	status := classify.Diagnose(trainAcc, testAcc)

	var vote *classify.Vote
	if len(classifyQuery) > 0 {
		if len(classifyQuery) != 2 {
			return fmt.Errorf("query needs two coordinates, got %d", len(classifyQuery))
		}
		v, ok := model.Classify(classifyQuery[0], classifyQuery[1], k)
		if !ok {
			return fmt.Errorf("no training points to vote")
		}
		vote = &v
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"k":              k,
			"train_accuracy": trainAcc,
			"test_accuracy":  testAcc,
			"status":         status,
			"vote":           vote,
		})
	}
	fmt.Fprintf(out, "k=%d on %d training and %d test points\n", k, cut, len(pts)-cut)
	fmt.Fprintf(out, "Train accuracy: %.1f%%  Test accuracy: %.1f%%  (%s)\n", trainAcc*100, testAcc*100, status)
	if vote != nil {
		fmt.Fprintf(out, "Query (%.1f, %.1f) -> class %d, votes %v\n", classifyQuery[0], classifyQuery[1], vote.Label, vote.Counts)
	}
	return nil
}

func runClassifySVM(cmd *cobra.Command, args []string) error {
	data, err := dataset.MarginPreset(classifyPreset)
	if err != nil {
		return err
	}

	var h classify.Hyperplane
	switch {
	case classifyC <= 0:
		h, err = classify.FitHardMargin(data)
	case classifyOptimizer == "mayfly":
		h, err = classify.FitSoftMarginWith(data, classifyC, 50, opt.NewMayfly(300, 30, seed))
	case classifyOptimizer == "":
		h, err = classify.FitSoftMargin(data, classifyC)
	default:
		return fmt.Errorf("unknown optimizer %q", classifyOptimizer)
	}
	if err != nil {
		return fmt.Errorf("failed to fit SVM: %w", err)
	}
	report := classify.Slack(h, data)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"hyperplane": h,
			"report":     report,
		})
	}
	mode := "hard margin"
	if classifyC > 0 {
		mode = fmt.Sprintf("soft margin, C=%g", classifyC)
	}
	fmt.Fprintf(out, "Preset %s, %s\n", classifyPreset, mode)
	fmt.Fprintf(out, "Hyperplane: %.4f + %.4f x1 + %.4f x2 = 0\n", h.B0, h.B1, h.B2)
	fmt.Fprintf(out, "Margin: %.4f  Accuracy: %.1f%%  Violations: %d  Total slack: %.4f\n",
		report.Margin, report.Accuracy*100, report.Violations, report.TotalSlack)

	w := newTable(out)
	fmt.Fprintln(w, "X1\tX2\tLABEL\tSLACK\tSTATUS\tSV")
	for _, p := range report.Points {
		sv := ""
		if p.SupportVector {
			sv = "*"
		}
		fmt.Fprintf(w, "%.2f\t%.2f\t%+d\t%.3f\t%s\t%s\n", p.Point.X1, p.Point.X2, p.Point.Label, p.Slack, p.Status, sv)
	}
	return w.Flush()
}

func runClassifyConfusion(cmd *cobra.Command, args []string) error {
	var m classify.ConfusionMatrix
	name := "custom"
	if len(classifyMatrix) > 0 {
		if len(classifyMatrix) != 4 {
			return fmt.Errorf("matrix needs tp,fn,fp,tn, got %d values", len(classifyMatrix))
		}
		for _, v := range classifyMatrix {
			if v < 0 {
				return fmt.Errorf("matrix counts must be non-negative")
			}
		}
		m = classify.ConfusionMatrix{TP: classifyMatrix[0], FN: classifyMatrix[1], FP: classifyMatrix[2], TN: classifyMatrix[3]}
	} else {
		sc, err := classify.LookupScenario(classifyScenario)
		if err != nil {
			return fmt.Errorf("%w (have %v)", err, classify.ScenarioKeys())
		}
		m = sc.Matrix
		name = sc.Name
	}
	metrics := m.Metrics()

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{"matrix": m, "metrics": metrics})
	}
	fmt.Fprintf(out, "%s: TP=%d FN=%d FP=%d TN=%d\n\n", name, m.TP, m.FN, m.FP, m.TN)
	w := newTable(out)
	fmt.Fprintln(w, "METRIC\tVALUE")
	fmt.Fprintf(w, "Accuracy\t%.4f\n", metrics.Accuracy)
	fmt.Fprintf(w, "Precision\t%.4f\n", metrics.Precision)
	fmt.Fprintf(w, "Recall\t%.4f\n", metrics.Recall)
	fmt.Fprintf(w, "Specificity\t%.4f\n", metrics.Specificity)
	fmt.Fprintf(w, "F1\t%.4f\n", metrics.F1)
	fmt.Fprintf(w, "Balanced accuracy\t%.4f\n", metrics.BalancedAccuracy)
	fmt.Fprintf(w, "NPV\t%.4f\n", metrics.NPV)
	return w.Flush()
}

func runClassifyROC(cmd *cobra.Command, args []string) error {
	if classifyStd <= 0 {
		return fmt.Errorf("std must be positive, got %g", classifyStd)
	}
	rng := newRNG()
	pos := dataset.ClassScores(rng, classifyPoints/2, classifyPosMean, classifyStd)
	neg := dataset.ClassScores(rng, classifyPoints-classifyPoints/2, classifyNegMean, classifyStd)

	curve := classify.ROCCurve(pos, neg, classifyStep)
	auc := classify.AUC(curve)
	at := classify.AtThreshold(pos, neg, classifyThreshold)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"curve":     curve,
			"auc":       auc,
			"rating":    classify.AUCRating(auc),
			"threshold": at,
		})
	}
	w := newTable(out)
	fmt.Fprintln(w, "THRESHOLD\tFPR\tTPR")
	for _, p := range curve {
		fmt.Fprintf(w, "%.2f\t%.3f\t%.3f\n", p.Threshold, p.FPR, p.TPR)
	}
	w.Flush()
	fmt.Fprintf(out, "\nAUC: %.4f (%s)\n", auc, classify.AUCRating(auc))
	fmt.Fprintf(out, "At threshold %.2f: TP=%d FN=%d FP=%d TN=%d\n", classifyThreshold, at.Matrix.TP, at.Matrix.FN, at.Matrix.FP, at.Matrix.TN)
	return nil
}

func runClassifyRules(cmd *cobra.Command, args []string) error {
	rules := classify.DefaultRules()
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("invalid rule set: %w", err)
	}
	houses := dataset.Housing(newRNG(), classifyPoints)
	metrics := rules.Evaluate(houses)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, map[string]interface{}{"rules": rules, "metrics": metrics})
	}
	for i, r := range rules {
		fmt.Fprintf(out, "Rule %d: %s\n", i+1, r)
	}
	fmt.Fprintf(out, "\nCorrect: %d  Incorrect: %d  Unclassified: %d of %d\n",
		metrics.Correct, metrics.Incorrect, metrics.Unclassified, metrics.Total)
	fmt.Fprintf(out, "Accuracy: %.1f%%  Coverage: %.1f%%\n", metrics.Accuracy*100, metrics.Coverage()*100)
	return nil
}

func runClassifyCompare(cmd *cobra.Command, args []string) error {
	data, err := dataset.MarginPreset(classifyPreset)
	if err != nil {
		return err
	}
	cmp, err := classify.Compare(data, classifyC)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, cmp)
	}
	w := newTable(out)
	fmt.Fprintln(w, "MODEL\tACCURACY\tPRECISION\tRECALL\tF1")
	for _, row := range []struct {
		name string
		m    classify.Metrics
	}{
		{"logistic", cmp.LogisticReport.Metrics},
		{"svm", cmp.SVMReport.Metrics},
	} {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\n", row.name, row.m.Accuracy, row.m.Precision, row.m.Recall, row.m.F1)
	}
	w.Flush()
	fmt.Fprintf(out, "\nSVM support vectors: %d\n", len(cmp.SupportVectors))
	return nil
}
