package forecast

import (
	"math"

	"github.com/demandcast/demandcast/internal/utils"
)

// mapeEpsilon floors the MAPE denominator so zero actuals do not divide by zero
const mapeEpsilon = 1e-8

// Accuracy holds in-sample error metrics rounded to two decimals
type Accuracy struct {
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
	RMSE float64 `json:"rmse"`
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// CalculateMAPE calculates Mean Absolute Percentage Error
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs((actual[i] - predicted[i]) / math.Max(actual[i], mapeEpsilon))
	}
	return sum / float64(len(actual)) * 100
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// EvaluateNaive scores a one-period-shift forecast over the history. All metrics
// are zero when there are fewer than 2 points to compare.
func EvaluateNaive(y []float64) Accuracy {
	if len(y) < 2 {
		return Accuracy{}
	}
	actual := y[1:]
	predicted := y[:len(y)-1]
	return Accuracy{
		MAE:  utils.Round(CalculateMAE(actual, predicted), utils.AccuracyDecimals),
		MAPE: utils.Round(CalculateMAPE(actual, predicted), utils.AccuracyDecimals),
		RMSE: utils.Round(CalculateRMSE(actual, predicted), utils.AccuracyDecimals),
	}
}
