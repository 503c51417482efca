package regress

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Diagnostics summarizes the residuals of a fitted line. The p-values are
// heuristic scores in [0.001, 0.999], not outputs of the textbook tests.
type Diagnostics struct {
	Mean          float64 `json:"mean"`
	Std           float64 `json:"std"`
	Skewness      float64 `json:"skewness"`
	Kurtosis      float64 `json:"kurtosis"`
	QQCorrelation float64 `json:"qq_correlation"`
	BimodalScore  float64 `json:"bimodal_score"`
	DurbinWatson  float64 `json:"durbin_watson"`
	NormalityP    float64 `json:"normality_p"`
	HeteroP       float64 `json:"heteroscedasticity_p"`
	AutocorrP     float64 `json:"autocorrelation_p"`
	LinearityP    float64 `json:"linearity_p"`
}

// Alpha is the significance level used by Passes.
const Alpha = 0.05

// Passes reports which assumptions are not rejected at Alpha, keyed by name.
func (d Diagnostics) Passes() map[string]bool {
	return map[string]bool{
		"normality":        d.NormalityP >= Alpha,
		"homoscedasticity": d.HeteroP >= Alpha,
		"independence":     d.AutocorrP >= Alpha,
		"linearity":        d.LinearityP >= Alpha,
	}
}

const bimodalBins = 20

// Diagnose computes residual statistics for a simple regression with
// predictor x, residuals r and fitted values.
func Diagnose(x, residuals, fitted []float64) Diagnostics {
	n := len(residuals)
	if n < 2 {
		return Diagnostics{DurbinWatson: 2, NormalityP: 0.999, HeteroP: 0.999, AutocorrP: 0.999, LinearityP: 0.999}
	}
	nf := float64(n)

	d := Diagnostics{}
	d.Mean, d.Std = stat.MeanStdDev(residuals, nil)

	var m2, m3, m4 float64
	for _, r := range residuals {
		dev := r - d.Mean
		m2 += dev * dev
		m3 += dev * dev * dev
		m4 += dev * dev * dev * dev
	}
	m2 /= nf
	m3 /= nf
	m4 /= nf
	if m2 > 0 {
		d.Skewness = m3 / math.Pow(m2, 1.5)
		d.Kurtosis = m4/(m2*m2) - 3
	}

	sorted := slices.Clone(residuals)
	sort.Float64s(sorted)
	d.QQCorrelation = QQCorrelation(sorted)
	d.BimodalScore = bimodalScore(residuals)

	shape := (1-d.QQCorrelation)*15 + math.Abs(d.Skewness)*0.8 + math.Abs(d.Kurtosis)*0.3 + d.BimodalScore*3
	d.NormalityP = clampP(math.Exp(-shape * 1.5))

	sq := make([]float64, n)
	for i, r := range residuals {
		sq[i] = r * r
	}
	d.HeteroP = clampP(math.Exp(-absCorr(fitted, sq) * nf / 3))

	d.DurbinWatson = DurbinWatson(residuals)
	d.AutocorrP = clampP(math.Exp(-math.Abs(d.DurbinWatson-2) * nf / 10))

	x2 := make([]float64, n)
	x3 := make([]float64, n)
	for i, v := range x {
		x2[i] = v * v
		x3[i] = v * v * v
	}
	lin := math.Max(absCorr(x2, residuals), absCorr(x3, residuals))
	d.LinearityP = clampP(math.Exp(-lin * nf / 4))

	return d
}

// DurbinWatson returns Σ(rᵢ − rᵢ₋₁)² / Σrᵢ², or 2 when all residuals are zero.
func DurbinWatson(residuals []float64) float64 {
	var diff2, res2 float64
	for i, r := range residuals {
		res2 += r * r
		if i > 0 {
			d := r - residuals[i-1]
			diff2 += d * d
		}
	}
	if res2 == 0 {
		return 2
	}
	return diff2 / res2
}

// QQCorrelation returns the correlation between sorted residuals and the
// standard normal quantiles at (i+0.5)/n, or 1 when either side is constant.
func QQCorrelation(sorted []float64) float64 {
	n := len(sorted)
	theoretical := make([]float64, n)
	for i := range theoretical {
		theoretical[i] = NormalQuantile((float64(i) + 0.5) / float64(n))
	}
	r, ok := pearson(theoretical, sorted)
	if !ok {
		return 1
	}
	return r
}

// Coefficients of Acklam's rational approximation.
var (
	acklamA = [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02, 1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	acklamB = [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02, 6.680131188771972e+01, -1.328068155288572e+01}
	acklamC = [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00, -2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	acklamD = [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00, 3.754408661907416e+00}
)

// NormalQuantile approximates the inverse standard normal CDF. It returns ±3
// outside (0, 1).
func NormalQuantile(p float64) float64 {
	const pLow = 0.02425
	a, b, c, d := acklamA, acklamB, acklamC, acklamD

	switch {
	case p <= 0:
		return -3
	case p >= 1:
		return 3
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= 1-pLow:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}

// bimodalScore measures the valley depth between the two highest peaks of a
// smoothed 20-bin histogram; 0 for unimodal data.
func bimodalScore(values []float64) float64 {
	lo, hi := slices.Min(values), slices.Max(values)
	width := (hi - lo) / bimodalBins
	if width == 0 {
		return 0
	}

	var bins [bimodalBins]float64
	for _, v := range values {
		idx := min(int(math.Floor((v-lo)/width)), bimodalBins-1)
		bins[idx]++
	}

	var smooth [bimodalBins]float64
	for i := range bins {
		start, end := max(0, i-1), min(bimodalBins, i+2)
		var sum float64
		for j := start; j < end; j++ {
			sum += bins[j]
		}
		smooth[i] = sum / float64(end-start)
	}

	type peak struct {
		idx int
		val float64
	}
	var peaks []peak
	for i := 1; i < bimodalBins-1; i++ {
		if smooth[i] > smooth[i-1] && smooth[i] > smooth[i+1] {
			peaks = append(peaks, peak{i, smooth[i]})
		}
	}
	if len(peaks) < 2 {
		return 0
	}

	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].val > peaks[j].val })
	valley := smooth[(peaks[0].idx+peaks[1].idx)/2]
	avg := (peaks[0].val + peaks[1].val) / 2
	if avg <= 0 {
		return 0
	}
	return math.Max(0, (avg-valley)/avg)
}

// pearson returns the sample correlation and false when either input has no
// variance.
func pearson(x, y []float64) (float64, bool) {
	if len(x) < 2 || stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0, false
	}
	return stat.Correlation(x, y, nil), true
}

func absCorr(x, y []float64) float64 {
	r, ok := pearson(x, y)
	if !ok {
		return 0
	}
	return math.Abs(r)
}

func clampP(p float64) float64 {
	return math.Max(0.001, math.Min(0.999, p))
}
