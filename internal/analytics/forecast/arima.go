package forecast

import (
	"gonum.org/v1/gonum/stat"
)

// ARIMAForecaster fits a first order auto-regressive model y[t] = c + a*y[t-1]
type ARIMAForecaster struct{}

// NewARIMAForecaster creates a new ARIMA forecaster
func NewARIMAForecaster() *ARIMAForecaster {
	return &ARIMAForecaster{}
}

func init() {
	RegisterForecaster(NewARIMAForecaster())
}

// Method returns the algorithm identifier
func (f *ARIMAForecaster) Method() Method {
	return MethodARIMA
}

// Forecast iterates the AR(1) recurrence over the horizon. Each raw step feeds the
// next one; only the emitted values are floored at zero.
func (f *ARIMAForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if err := checkData(data, config); err != nil {
		return nil, err
	}
	if len(data) < 3 {
		return fallback(MethodARIMA, NewSMAForecaster(), data, config,
			"auto-regressive model needs at least 3 periods, used moving average")
	}

	y := values(data)
	lagged := y[:len(y)-1]
	current := y[1:]

	// Sample covariance over population variance of the lagged series
	_, lagVariance := stat.PopMeanVariance(lagged, nil)
	if lagVariance == 0 {
		return fallback(MethodARIMA, NewSMAForecaster(), data, config,
			"lagged series has zero variance, used moving average")
	}
	coef := stat.Covariance(lagged, current, nil) / lagVariance
	intercept := stat.Mean(current, nil) - coef*stat.Mean(lagged, nil)

	fitted := make([]float64, len(y))
	fitted[0] = y[0]
	for i := 1; i < len(y); i++ {
		fitted[i] = intercept + coef*y[i-1]
	}

	raw := make([]float64, config.Horizon)
	prev := y[len(y)-1]
	for i := range raw {
		raw[i] = intercept + coef*prev
		prev = raw[i]
	}

	return &ForecastResult{
		Predictions: newPredictions(data, config, func(i int) float64 {
			return floorZero(raw[i])
		}),
		Fitted: fitted,
		ModelInfo: ModelInfo{
			Algorithm: MethodARIMA,
			Requested: MethodARIMA,
			Parameters: map[string]interface{}{
				"ar_coefficient": coef,
				"intercept":      intercept,
			},
			DataPoints: len(data),
		},
	}, nil
}
