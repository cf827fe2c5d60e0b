package forecast

import (
	"gonum.org/v1/gonum/stat"
)

// MovingAverageWindowMax caps the trailing window of the moving average
const MovingAverageWindowMax = 7

// SMAForecaster implements Simple Moving Average forecasting
type SMAForecaster struct{}

// NewSMAForecaster creates a new SMA forecaster
func NewSMAForecaster() *SMAForecaster {
	return &SMAForecaster{}
}

func init() {
	RegisterForecaster(NewSMAForecaster())
}

// Method returns the algorithm identifier
func (f *SMAForecaster) Method() Method {
	return MethodMovingAverage
}

// Forecast holds the mean of the trailing window flat across the horizon
func (f *SMAForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if err := checkData(data, config); err != nil {
		return nil, err
	}

	y := values(data)
	windowSize := movingAverageWindow(len(y))

	// Trailing mean at every index, as a rolling window would report it
	fitted := make([]float64, len(y))
	for i := range y {
		start := i - windowSize + 1
		if start < 0 {
			start = 0
		}
		fitted[i] = stat.Mean(y[start:i+1], nil)
	}

	forecastValue := stat.Mean(y[len(y)-windowSize:], nil)

	return &ForecastResult{
		Predictions: newPredictions(data, config, flat(forecastValue)),
		Fitted:      fitted,
		ModelInfo: ModelInfo{
			Algorithm:  MethodMovingAverage,
			Requested:  MethodMovingAverage,
			Parameters: map[string]interface{}{"window_size": windowSize},
			DataPoints: len(data),
		},
	}, nil
}

// movingAverageWindow returns min(7, n/2), never below 1 and never above n
func movingAverageWindow(n int) int {
	if n <= 1 {
		return 1
	}
	window := n / 2
	if window > MovingAverageWindowMax {
		window = MovingAverageWindowMax
	}
	if window < 1 {
		window = 1
	}
	return window
}
