package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// DefaultSeasonalPeriod is used when the caller supplies no season length
const DefaultSeasonalPeriod = 12

// HoltWintersForecaster implements additive Holt-Winters (Triple Exponential Smoothing) forecasting
type HoltWintersForecaster struct{}

// NewHoltWintersForecaster creates a new Holt-Winters forecaster
func NewHoltWintersForecaster() *HoltWintersForecaster {
	return &HoltWintersForecaster{}
}

func init() {
	RegisterForecaster(NewHoltWintersForecaster())
}

// Method returns the algorithm identifier
func (f *HoltWintersForecaster) Method() Method {
	return MethodHoltWinters
}

// holtWintersState is the smoothing state carried across observations
type holtWintersState struct {
	level    float64
	trend    float64
	seasonal []float64
}

// Forecast generates predictions using additive triple exponential smoothing
func (f *HoltWintersForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if err := checkData(data, config); err != nil {
		return nil, err
	}

	period := config.SeasonalPeriod
	if period <= 0 {
		period = DefaultSeasonalPeriod
	}

	// Need at least 2 complete seasons
	if len(data) < 2*period {
		// the caller's alpha only applies to exponential smoothing requests
		config.Alpha = DefaultAlpha
		return fallback(MethodHoltWinters, NewExponentialSmoothingForecaster(), data, config,
			fmt.Sprintf("holt-winters needs %d periods for season length %d, have %d; used exponential smoothing",
				2*period, period, len(data)))
	}

	y := values(data)
	state, fitted := fitHoltWinters(y, period, HoltWintersAlpha, HoltWintersBeta, HoltWintersGamma)

	n := len(y)
	predictions := newPredictions(data, config, func(i int) float64 {
		step := i + 1
		return floorZero(state.level + float64(step)*state.trend + state.seasonal[(n+step-1)%period])
	})

	return &ForecastResult{
		Predictions: predictions,
		Fitted:      fitted,
		ModelInfo: ModelInfo{
			Algorithm: MethodHoltWinters,
			Requested: MethodHoltWinters,
			Parameters: map[string]interface{}{
				"alpha":           HoltWintersAlpha,
				"beta":            HoltWintersBeta,
				"gamma":           HoltWintersGamma,
				"seasonal_period": period,
				"level":           state.level,
				"trend":           state.trend,
			},
			DataPoints: n,
		},
	}, nil
}

// fitHoltWinters folds every observation into the state. The fitted trace holds
// one-step-ahead values for indexes from period onwards.
func fitHoltWinters(y []float64, period int, alpha, beta, gamma float64) (holtWintersState, []float64) {
	state := initHoltWinters(y, period)
	fitted := make([]float64, 0, len(y)-period)

	for i, obs := range y {
		s := state.seasonal[i%period]
		if i >= period {
			fitted = append(fitted, state.level+state.trend+s)
		}

		lastLevel := state.level
		state.level = alpha*(obs-s) + (1-alpha)*(state.level+state.trend)
		state.trend = beta*(state.level-lastLevel) + (1-beta)*state.trend
		state.seasonal[i%period] = gamma*(obs-state.level) + (1-gamma)*s
	}

	return state, fitted
}

// initHoltWinters seeds level from the first season mean, trend from the first
// and second season starts, and seasonal indices as deviations from that level.
func initHoltWinters(y []float64, period int) holtWintersState {
	level := stat.Mean(y[:period], nil)
	seasonal := make([]float64, period)
	for j := range seasonal {
		seasonal[j] = y[j] - level
	}
	return holtWintersState{
		level:    level,
		trend:    (y[period] - y[0]) / float64(period),
		seasonal: seasonal,
	}
}
