package regress

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const mapeFloor = 0.01

// MSE returns the mean squared error, or 0 for empty input.
func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	return RSS(yTrue, yPred) / float64(len(yTrue))
}

// RMSE returns the root mean squared error.
func RMSE(yTrue, yPred []float64) float64 {
	return math.Sqrt(MSE(yTrue, yPred))
}

// MAE returns the mean absolute error, or 0 for empty input.
func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue))
}

// MAPE returns the mean absolute percentage error in percent. Targets with
// |y| <= 0.01 are skipped; 0 when none remain.
func MAPE(yTrue, yPred []float64) float64 {
	var sum float64
	var count int
	for i, y := range yTrue {
		if math.Abs(y) > mapeFloor {
			sum += math.Abs((y - yPred[i]) / y)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) * 100
}

// RSS returns the residual sum of squares.
func RSS(yTrue, yPred []float64) float64 {
	var sum float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum
}

// R2 returns 1 - SSres/SStot, or 0 when the targets have no spread.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	mean := stat.Mean(yTrue, nil)
	var ssTot float64
	for _, y := range yTrue {
		ssTot += (y - mean) * (y - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - RSS(yTrue, yPred)/ssTot
}

// AdjustedR2 corrects r2 for p predictors over n samples. It returns r2
// unchanged when n <= p+1.
func AdjustedR2(r2 float64, n, p int) float64 {
	if n <= p+1 {
		return r2
	}
	return 1 - (1-r2)*float64(n-1)/float64(n-p-1)
}

// Report bundles the regression metrics of one prediction set.
type Report struct {
	N          int     `json:"n"`
	MAE        float64 `json:"mae"`
	MSE        float64 `json:"mse"`
	RMSE       float64 `json:"rmse"`
	MAPE       float64 `json:"mape"`
	R2         float64 `json:"r2"`
	AdjustedR2 float64 `json:"adjusted_r2"`
}

// NewReport computes all metrics; p is the number of predictors used for the
// adjusted R².
func NewReport(yTrue, yPred []float64, p int) Report {
	if len(yTrue) == 0 {
		return Report{}
	}
	r2 := R2(yTrue, yPred)
	return Report{
		N:          len(yTrue),
		MAE:        MAE(yTrue, yPred),
		MSE:        MSE(yTrue, yPred),
		RMSE:       RMSE(yTrue, yPred),
		MAPE:       MAPE(yTrue, yPred),
		R2:         r2,
		AdjustedR2: AdjustedR2(r2, len(yTrue), p),
	}
}
