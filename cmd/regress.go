package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/cwbudde/mlplayground/internal/dataset"
	"github.com/cwbudde/mlplayground/internal/regress"
	"github.com/spf13/cobra"
)

var (
	regressPoints    int
	regressNoise     float64
	regressSlope     float64
	regressIntercept float64
	regressDegree    int
	regressRidge     float64
	regressSolver    string
	regressScenario  string
	regressSeverity  float64
	regressR12       float64
	regressR13       float64
	regressR23       float64
	regressReps      int
	regressMaxDegree int
	regressFolds     int
	regressXMax      float64
	regressHorizon   float64
	regressCurve     bool
)

var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Regression demos: least squares fits, metrics and diagnostics",
}

var regressLineCmd = &cobra.Command{
	Use:   "line",
	Short: "Fit a least-squares line to noisy linear data",
	RunE:  runRegressLine,
}

var regressPlaneCmd = &cobra.Command{
	Use:   "plane",
	Short: "Fit a least-squares plane y = b0 + b1*x1 + b2*x2",
	RunE:  runRegressPlane,
}

var regressPolyCmd = &cobra.Command{
	Use:   "poly",
	Short: "Fit a ridge-stabilized polynomial to a noisy sine",
	RunE:  runRegressPoly,
}

var regressMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Report MAE, MSE, RMSE, MAPE, R² and adjusted R² of a line fit",
	RunE:  runRegressMetrics,
}

var regressDiagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check the regression assumptions on simulated residuals",
	Long: `Draws data that violates one regression assumption (non-normal,
heteroscedastic, autocorrelated or nonlinear errors, or none for "ideal"),
fits a line and reports the residual diagnostics.`,
	RunE: runRegressDiagnose,
}

var regressVIFCmd = &cobra.Command{
	Use:   "vif",
	Short: "Variance inflation factors for three correlated predictors",
	RunE:  runRegressVIF,
}

var regressBiasVarCmd = &cobra.Command{
	Use:   "biasvar",
	Short: "Train and test error across polynomial degrees",
	RunE:  runRegressBiasVar,
}

var regressCVCmd = &cobra.Command{
	Use:   "cv",
	Short: "k-fold cross-validation of a polynomial fit",
	RunE:  runRegressCV,
}

var regressExtrapolateCmd = &cobra.Command{
	Use:   "extrapolate",
	Short: "Measure how a line fit degrades beyond the training range",
	RunE:  runRegressExtrapolate,
}

func init() {
	rootCmd.AddCommand(regressCmd)
	regressCmd.AddCommand(regressLineCmd, regressPlaneCmd, regressPolyCmd, regressMetricsCmd,
		regressDiagnoseCmd, regressVIFCmd, regressBiasVarCmd, regressCVCmd, regressExtrapolateCmd)

	regressCmd.PersistentFlags().IntVarP(&regressPoints, "points", "n", 30, "Number of data points")
	regressCmd.PersistentFlags().Float64Var(&regressNoise, "noise", 1.0, "Standard deviation of the additive noise")

	for _, c := range []*cobra.Command{regressLineCmd, regressMetricsCmd} {
		c.Flags().Float64Var(&regressSlope, "slope", 2.0, "True slope")
		c.Flags().Float64Var(&regressIntercept, "intercept", 1.0, "True intercept")
	}

	regressPolyCmd.Flags().IntVar(&regressDegree, "degree", 3, "Polynomial degree")
	regressPolyCmd.Flags().Float64Var(&regressRidge, "ridge", regress.DefaultRidge, "Ridge penalty on the normal equations")
	regressPolyCmd.Flags().StringVar(&regressSolver, "solver", "gauss", "Linear solver (gauss, lu)")
	regressPolyCmd.Flags().BoolVar(&regressCurve, "curve", false, "Also print the fitted curve")

	regressDiagnoseCmd.Flags().StringVar(&regressScenario, "scenario", string(dataset.ScenarioIdeal),
		"Residual scenario (ideal, non-normal, heteroscedastic, autocorrelated, nonlinear)")
	regressDiagnoseCmd.Flags().Float64Var(&regressSeverity, "severity", 0.5, "Violation severity in [0, 1]")

	regressVIFCmd.Flags().Float64Var(&regressR12, "r12", 0.5, "Correlation of x1 and x2")
	regressVIFCmd.Flags().Float64Var(&regressR13, "r13", 0.3, "Correlation of x1 and x3")
	regressVIFCmd.Flags().Float64Var(&regressR23, "r23", 0.2, "Correlation of x2 and x3")
	regressVIFCmd.Flags().IntVar(&regressReps, "reps", 200, "Simulated samples for the spread of β₁ (0 = skip)")

	regressBiasVarCmd.Flags().IntVar(&regressMaxDegree, "max-degree", 10, "Highest polynomial degree")

	regressCVCmd.Flags().IntVar(&regressFolds, "folds", 5, "Number of folds")
	regressCVCmd.Flags().IntVar(&regressDegree, "degree", 3, "Polynomial degree")

	regressExtrapolateCmd.Flags().StringVar(&regressScenario, "scenario", "quadratic", "Ground truth (quadratic, logarithmic, saturation, sinusoidal)")
	regressExtrapolateCmd.Flags().Float64Var(&regressXMax, "x-max", 10, "Upper end of the training range")
	regressExtrapolateCmd.Flags().Float64Var(&regressHorizon, "horizon", 20, "Prediction horizon")
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func linearData() []dataset.Point {
	f := func(x float64) float64 { return regressSlope*x + regressIntercept }
	return dataset.GenerateFunc(newRNG(), regressPoints, f, regressNoise, 0, 10)
}

func runRegressLine(cmd *cobra.Command, args []string) error {
	pts := linearData()
	line := regress.FitLine(pts)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, struct {
			Line regress.Line `json:"line"`
			RSS  float64      `json:"rss"`
		}{line, line.RSS(pts)})
	}
	fmt.Fprintf(out, "Fitted line: y = %.4f x + %.4f\n", line.Slope, line.Intercept)
	fmt.Fprintf(out, "True line:   y = %.4f x + %.4f\n", regressSlope, regressIntercept)
	fmt.Fprintf(out, "RSS: %.4f over %d points\n", line.RSS(pts), len(pts))
	return nil
}

func runRegressPlane(cmd *cobra.Command, args []string) error {
	rng := newRNG()
	pts := make([]dataset.Point3, regressPoints)
	for i := range pts {
		x1 := rng.Float64() * 10
		x2 := rng.Float64() * 10
		pts[i] = dataset.Point3{X1: x1, X2: x2, Y: 3 + 1.5*x1 - 0.8*x2 + dataset.Normal(rng, 0, regressNoise)}
	}

	plane, err := regress.FitPlane(pts)
	if err != nil {
		return fmt.Errorf("failed to fit plane: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, struct {
			Plane regress.Plane `json:"plane"`
			RSS   float64       `json:"rss"`
			R2    float64       `json:"r2"`
		}{plane, plane.RSS(pts), plane.R2(pts)})
	}
	fmt.Fprintf(out, "Fitted plane: y = %.4f + %.4f x1 + %.4f x2\n", plane.B0, plane.B1, plane.B2)
	fmt.Fprintf(out, "True plane:   y = 3.0000 + 1.5000 x1 + -0.8000 x2\n")
	fmt.Fprintf(out, "RSS: %.4f  R²: %.4f\n", plane.RSS(pts), plane.R2(pts))
	return nil
}

func runRegressPoly(cmd *cobra.Command, args []string) error {
	solve, ok := regress.Solvers[regressSolver]
	if !ok {
		return fmt.Errorf("unknown solver %q", regressSolver)
	}

	pts := dataset.GenerateFunc(newRNG(), regressPoints, math.Sin, regressNoise, 0, 2*math.Pi)
	poly, err := regress.FitPolynomialWith(pts, regressDegree, regressRidge, solve)
	if err != nil {
		return fmt.Errorf("failed to fit polynomial: %w", err)
	}
	report := regress.NewReport(regress.Targets(pts), poly.Predictions(pts), poly.Degree())

	out := cmd.OutOrStdout()
	if jsonOutput {
		res := map[string]interface{}{"coefficients": poly, "report": report}
		if regressCurve {
			res["curve"] = regress.PolynomialCurve(poly, 0, 2*math.Pi, 50)
		}
		return writeJSON(out, res)
	}

	fmt.Fprintf(out, "Degree %d fit with %s solver (ridge %g)\n", poly.Degree(), regressSolver, regressRidge)
	for i, c := range poly {
		fmt.Fprintf(out, "  c%d = %+.6f\n", i, c)
	}
	printReport(out, report)

	if regressCurve {
		w := newTable(out)
		fmt.Fprintln(w, "\nX\tY")
		for _, p := range regress.PolynomialCurve(poly, 0, 2*math.Pi, 50) {
			fmt.Fprintf(w, "%.4f\t%.4f\n", p.X, p.Y)
		}
		w.Flush()
	}
	return nil
}

func printReport(out io.Writer, r regress.Report) {
	w := newTable(out)
	fmt.Fprintln(w, "METRIC\tVALUE")
	fmt.Fprintf(w, "n\t%d\n", r.N)
	fmt.Fprintf(w, "MAE\t%.4f\n", r.MAE)
	fmt.Fprintf(w, "MSE\t%.4f\n", r.MSE)
	fmt.Fprintf(w, "RMSE\t%.4f\n", r.RMSE)
	fmt.Fprintf(w, "MAPE\t%.2f%%\n", r.MAPE)
	fmt.Fprintf(w, "R²\t%.4f\n", r.R2)
	fmt.Fprintf(w, "Adjusted R²\t%.4f\n", r.AdjustedR2)
	w.Flush()
}

func runRegressMetrics(cmd *cobra.Command, args []string) error {
	pts := linearData()
	line := regress.FitLine(pts)
	yPred := make([]float64, len(pts))
	for i, p := range pts {
		yPred[i] = line.Predict(p.X)
	}
	report := regress.NewReport(regress.Targets(pts), yPred, 1)

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func runRegressDiagnose(cmd *cobra.Command, args []string) error {
	scenario := dataset.ResidualScenario(regressScenario)
	switch scenario {
	case dataset.ScenarioIdeal, dataset.ScenarioNonNormal, dataset.ScenarioHeteroscedastic,
		dataset.ScenarioAutocorrelated, dataset.ScenarioNonlinear:
	default:
		return fmt.Errorf("unknown scenario %q", regressScenario)
	}
	if regressSeverity < 0 || regressSeverity > 1 {
		return fmt.Errorf("severity must be in [0, 1], got %g", regressSeverity)
	}

	pts := dataset.AssumptionData(newRNG(), regressPoints, scenario, regressSeverity)
	line := regress.FitLine(pts)
	x := make([]float64, len(pts))
	fitted := make([]float64, len(pts))
	residuals := make([]float64, len(pts))
	for i, p := range pts {
		x[i] = p.X
		fitted[i] = line.Predict(p.X)
		residuals[i] = p.Y - fitted[i]
	}
	diag := regress.Diagnose(x, residuals, fitted)
	passes := diag.Passes()

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, struct {
			Diagnostics regress.Diagnostics `json:"diagnostics"`
			Passes      map[string]bool     `json:"passes"`
		}{diag, passes})
	}

	fmt.Fprintf(out, "Scenario %s (severity %.2f), line y = %.3f x + %.3f\n\n", scenario, regressSeverity, line.Slope, line.Intercept)
	w := newTable(out)
	fmt.Fprintln(w, "STATISTIC\tVALUE")
	fmt.Fprintf(w, "Mean\t%.4f\n", diag.Mean)
	fmt.Fprintf(w, "Std\t%.4f\n", diag.Std)
	fmt.Fprintf(w, "Skewness\t%.4f\n", diag.Skewness)
	fmt.Fprintf(w, "Kurtosis\t%.4f\n", diag.Kurtosis)
	fmt.Fprintf(w, "Q-Q correlation\t%.4f\n", diag.QQCorrelation)
	fmt.Fprintf(w, "Durbin-Watson\t%.4f\n", diag.DurbinWatson)
	w.Flush()

	fmt.Fprintln(out)
	names := make([]string, 0, len(passes))
	for name := range passes {
		names = append(names, name)
	}
	sort.Strings(names)
	w = newTable(out)
	fmt.Fprintln(w, "CHECK\tRESULT")
	for _, name := range names {
		verdict := "pass"
		if !passes[name] {
			verdict = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, verdict)
	}
	return w.Flush()
}

func runRegressVIF(cmd *cobra.Command, args []string) error {
	vifs := regress.VIFFromCorrelations(regressR12, regressR13, regressR23)
	out := cmd.OutOrStdout()
	if !dataset.ValidCorrelation(regressR12, regressR13, regressR23) {
		if jsonOutput {
			return writeJSON(out, map[string]interface{}{
				"vif":               vifs,
				"positive_definite": false,
			})
		}
		w := newTable(out)
		fmt.Fprintln(w, "PREDICTOR\tVIF\tSEVERITY")
		for i, v := range vifs {
			fmt.Fprintf(w, "x%d\t%.3f\t%s\n", i+1, v, regress.VIFSeverity(v))
		}
		w.Flush()
		fmt.Fprintf(out, "\nr12=%g r13=%g r23=%g is not a positive definite correlation matrix, no data drawn.\n",
			regressR12, regressR13, regressR23)
		return nil
	}

	beta := [3]float64{1, 1, 1}
	rng := newRNG()

	data, err := dataset.CorrelatedGaussian(rng, regressPoints, regressR12, regressR13, regressR23, beta)
	if err != nil {
		return fmt.Errorf("failed to draw correlated predictors: %w", err)
	}
	fit, err := regress.MultipleOLS3(data.Y, data.X1, data.X2, data.X3)
	if err != nil {
		return fmt.Errorf("failed to fit three-predictor model: %w", err)
	}

	var spread float64
	if regressReps > 0 {
		estimates, err := regress.SimulateBeta1(rng, regressReps, regressPoints, regressR12, regressR13, regressR23, beta)
		if err != nil {
			return fmt.Errorf("failed to simulate β₁: %w", err)
		}
		spread = stdDev(estimates)
	}

	if jsonOutput {
		return writeJSON(out, map[string]interface{}{
			"vif":               vifs,
			"positive_definite": true,
			"fit":               fit,
			"beta1_sd":          spread,
			"correlation":       dataset.CorrelationMatrix(data.X1, data.X2, data.X3),
		})
	}

	w := newTable(out)
	fmt.Fprintln(w, "PREDICTOR\tVIF\tSEVERITY\tβ\tSE")
	for i, v := range vifs {
		fmt.Fprintf(w, "x%d\t%.3f\t%s\t%.4f\t%.4f\n", i+1, v, regress.VIFSeverity(v), fit.Beta[i], fit.SE[i])
	}
	w.Flush()
	if regressReps > 0 {
		fmt.Fprintf(out, "\nSpread of β₁ over %d samples: %.4f\n", regressReps, spread)
	}
	return nil
}

func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// noisySine is the bias-variance and cross-validation data set.
func noisySine() []dataset.Point {
	return dataset.GenerateFunc(newRNG(), regressPoints, func(x float64) float64 {
		return math.Sin(2 * math.Pi * x)
	}, regressNoise, 0, 1)
}

func runRegressBiasVar(cmd *cobra.Command, args []string) error {
	if regressMaxDegree < 1 {
		return fmt.Errorf("max degree must be at least 1, got %d", regressMaxDegree)
	}
	train, test := dataset.TrainTestSplit(newRNG(), noisySine(), 0.7)
	sweep := regress.BiasVarianceSweep(train, test, regressMaxDegree)
	best := regress.BestDegree(sweep)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, struct {
			Sweep      []regress.DegreeError `json:"sweep"`
			BestDegree int                   `json:"best_degree"`
		}{sweep, best})
	}

	w := newTable(out)
	fmt.Fprintln(w, "DEGREE\tTRAIN MSE\tTEST MSE\t")
	for _, e := range sweep {
		mark := ""
		if e.Degree == best {
			mark = "<- best"
		} else if e.Failed {
			mark = "fit failed"
		}
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%s\n", e.Degree, e.TrainMSE, e.TestMSE, mark)
	}
	return w.Flush()
}

func runRegressCV(cmd *cobra.Command, args []string) error {
	if regressFolds < 2 {
		return fmt.Errorf("need at least 2 folds, got %d", regressFolds)
	}
	rng := newRNG()
	pts := noisySine()
	folds := dataset.AssignFolds(rng, len(pts), regressFolds)

	res, err := regress.CrossValidate(pts, folds, regressFolds, regressDegree)
	if err != nil {
		return fmt.Errorf("cross-validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, res)
	}
	w := newTable(out)
	fmt.Fprintln(w, "FOLD\tTRAIN\tTEST\tTRAIN MSE\tTEST MSE")
	for _, f := range res.Folds {
		fmt.Fprintf(w, "%d\t%d\t%d\t%.4f\t%.4f\n", f.Fold+1, f.TrainN, f.TestN, f.TrainMSE, f.TestMSE)
	}
	w.Flush()
	fmt.Fprintf(out, "\nMean test MSE: %.4f ± %.4f\n", res.MeanMSE, res.StdMSE)
	return nil
}

func runRegressExtrapolate(cmd *cobra.Command, args []string) error {
	scenario, ok := regress.Scenarios[regressScenario]
	if !ok {
		return fmt.Errorf("unknown scenario %q (have %v)", regressScenario, regress.ScenarioNames())
	}

	train := dataset.GenerateFunc(newRNG(), regressPoints, scenario.F, regressNoise, 1, regressXMax)
	res, err := regress.Extrapolate(train, scenario.F, regressXMax, regressHorizon)
	if err != nil {
		return fmt.Errorf("extrapolation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "Scenario %s, trained on [1, %g], predicting to %g\n", scenario.Name, regressXMax, regressHorizon)
	fmt.Fprintf(out, "Line: y = %.4f x + %.4f\n", res.Line.Slope, res.Line.Intercept)
	fmt.Fprintf(out, "Training RMSE:      %.4f\n", res.TrainRMSE)
	fmt.Fprintf(out, "Extrapolation RMSE: %.4f over %d points (%s)\n", res.ExtrapRMSE, res.ExtrapSamples, res.Severity)
	return nil
}
