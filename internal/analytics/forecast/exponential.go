package forecast

// DefaultAlpha is used when the caller supplies a smoothing factor outside (0, 1)
const DefaultAlpha = 0.3

// ExponentialSmoothingForecaster implements Simple Exponential Smoothing forecasting
type ExponentialSmoothingForecaster struct{}

// NewExponentialSmoothingForecaster creates a new Exponential Smoothing forecaster
func NewExponentialSmoothingForecaster() *ExponentialSmoothingForecaster {
	return &ExponentialSmoothingForecaster{}
}

func init() {
	RegisterForecaster(NewExponentialSmoothingForecaster())
}

// Method returns the algorithm identifier
func (f *ExponentialSmoothingForecaster) Method() Method {
	return MethodExponentialSmoothing
}

// Forecast smooths the full history and holds the final level flat
func (f *ExponentialSmoothingForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if err := checkData(data, config); err != nil {
		return nil, err
	}

	alpha := config.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}

	smoothed := smooth(values(data), alpha)
	level := smoothed[len(smoothed)-1]

	return &ForecastResult{
		Predictions: newPredictions(data, config, flat(level)),
		Fitted:      smoothed,
		ModelInfo: ModelInfo{
			Algorithm:  MethodExponentialSmoothing,
			Requested:  MethodExponentialSmoothing,
			Parameters: map[string]interface{}{"alpha": alpha},
			DataPoints: len(data),
		},
	}, nil
}

// smooth returns s where s[0] = y[0] and s[i] = alpha*y[i] + (1-alpha)*s[i-1]
func smooth(y []float64, alpha float64) []float64 {
	s := make([]float64, len(y))
	s[0] = y[0]
	for i := 1; i < len(y); i++ {
		s[i] = alpha*y[i] + (1-alpha)*s[i-1]
	}
	return s
}
