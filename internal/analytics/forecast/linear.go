package forecast

import (
	"gonum.org/v1/gonum/stat"
)

// LinearRegressionForecaster fits demand against a 0-based period index
type LinearRegressionForecaster struct{}

// NewLinearRegressionForecaster creates a new Linear Regression forecaster
func NewLinearRegressionForecaster() *LinearRegressionForecaster {
	return &LinearRegressionForecaster{}
}

func init() {
	RegisterForecaster(NewLinearRegressionForecaster())
}

// Method returns the algorithm identifier
func (f *LinearRegressionForecaster) Method() Method {
	return MethodLinearTrend
}

// Forecast extrapolates the least-squares line, floored at zero
func (f *LinearRegressionForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if err := checkData(data, config); err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return fallback(MethodLinearTrend, NewSMAForecaster(), data, config,
			"linear trend needs at least 2 periods, used moving average")
	}

	y := values(data)
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}

	var intercept, slope float64
	if stat.Variance(x, nil) == 0 {
		intercept = stat.Mean(y, nil)
	} else {
		intercept, slope = stat.LinearRegression(x, y, nil, false)
	}

	fitted := make([]float64, len(y))
	for i := range fitted {
		fitted[i] = intercept + slope*x[i]
	}

	n := float64(len(y))
	predictions := newPredictions(data, config, func(i int) float64 {
		return floorZero(intercept + slope*(n+float64(i)))
	})

	return &ForecastResult{
		Predictions: predictions,
		Fitted:      fitted,
		ModelInfo: ModelInfo{
			Algorithm: MethodLinearTrend,
			Requested: MethodLinearTrend,
			Parameters: map[string]interface{}{
				"slope":     slope,
				"intercept": intercept,
			},
			DataPoints: len(data),
		},
	}, nil
}
