package forecast

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/demandcast/demandcast/internal/analytics"
)

// DataPoint is an alias to the shared analytics.TimeSeriesPoint type.
type DataPoint = analytics.TimeSeriesPoint

// ForecastPoint represents a single forecast row
type ForecastPoint struct {
	Time       time.Time `json:"date"`
	Value      float64   `json:"forecast"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// ModelInfo contains metadata about the model that produced the point forecast
type ModelInfo struct {
	Algorithm  Method                 `json:"algorithm"`           // method that actually ran
	Requested  Method                 `json:"requested"`           // method the caller asked for
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	DataPoints int                    `json:"data_points"`
}

// Fallback reports whether a different method ran than the one requested
func (m ModelInfo) Fallback() bool {
	return m.Requested != "" && m.Algorithm != m.Requested
}

// ForecastResult contains the point forecasts and model information
type ForecastResult struct {
	Predictions []ForecastPoint `json:"predictions"`
	Fitted      []float64       `json:"fitted,omitempty"` // in-sample trace, where the method has one
	ModelInfo   ModelInfo       `json:"model_info"`
}

// Values returns the point forecast values in order
func (r *ForecastResult) Values() []float64 {
	values := make([]float64, len(r.Predictions))
	for i, p := range r.Predictions {
		values[i] = p.Value
	}
	return values
}

// ForecastConfig holds the per-call strategy inputs
type ForecastConfig struct {
	Horizon        int             // Number of periods to forecast
	Grain          analytics.Grain // Period grain used to date the forecast rows
	Alpha          float64         // Smoothing factor for exponential smoothing (0-1)
	SeasonalPeriod int             // Season length for Holt-Winters
	Rand           *rand.Rand      // Random source for stochastic methods
}

// Holt-Winters smoothing constants are fixed
const (
	HoltWintersAlpha = 0.3
	HoltWintersBeta  = 0.1
	HoltWintersGamma = 0.1
)

// DefaultForecastConfig returns default forecast configuration
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Horizon:        analytics.GrainDaily.DefaultHorizon(),
		Grain:          analytics.GrainDaily,
		Alpha:          0.3,
		SeasonalPeriod: 12,
	}
}

// Method identifies one of the forecasting strategies
type Method string

const (
	MethodMovingAverage        Method = "moving_average"
	MethodExponentialSmoothing Method = "exponential_smoothing"
	MethodLinearTrend          Method = "linear_trend"
	MethodSeasonalNaive        Method = "seasonal_naive"
	MethodHoltWinters          Method = "holt_winters"
	MethodARIMA                Method = "arima"
	MethodRandomWalk           Method = "random_walk"
)

// Methods lists every strategy in presentation order
var Methods = []Method{
	MethodMovingAverage,
	MethodExponentialSmoothing,
	MethodLinearTrend,
	MethodSeasonalNaive,
	MethodHoltWinters,
	MethodARIMA,
	MethodRandomWalk,
}

var displayNames = map[Method]string{
	MethodMovingAverage:        "Moving Average",
	MethodExponentialSmoothing: "Exponential Smoothing",
	MethodLinearTrend:          "Linear Trend",
	MethodSeasonalNaive:        "Seasonal Naive",
	MethodHoltWinters:          "Holt-Winters (Triple Smoothing)",
	MethodARIMA:                "ARIMA (Auto-Regressive)",
	MethodRandomWalk:           "Random Walk with Drift",
}

// DisplayName returns the human readable method name
func (m Method) DisplayName() string {
	if name, ok := displayNames[m]; ok {
		return name
	}
	return string(m)
}

// Stochastic reports whether repeated runs may differ without a fixed seed
func (m Method) Stochastic() bool {
	return m == MethodRandomWalk
}

// ParseMethod accepts a method id or its display name, case-insensitively
func ParseMethod(s string) (Method, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Methods {
		if needle == string(m) || needle == strings.ToLower(displayNames[m]) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown forecast method: %q", s)
}

// Forecaster interface for all forecasting algorithms
type Forecaster interface {
	// Method returns the strategy identifier
	Method() Method
	// Forecast generates point predictions for the periods following data
	Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error)
}

var forecasterRegistry = make(map[Method]Forecaster)

// RegisterForecaster adds a forecaster to the registry
func RegisterForecaster(forecaster Forecaster) {
	forecasterRegistry[forecaster.Method()] = forecaster
}

// GetForecaster returns the forecaster registered for a method
func GetForecaster(method Method) (Forecaster, error) {
	if forecaster, ok := forecasterRegistry[method]; ok {
		return forecaster, nil
	}
	return nil, fmt.Errorf("unknown forecaster: %s", method)
}

// ListForecasters returns the registered methods in presentation order
func ListForecasters() []Method {
	methods := make([]Method, 0, len(forecasterRegistry))
	for _, m := range Methods {
		if _, ok := forecasterRegistry[m]; ok {
			methods = append(methods, m)
		}
	}
	return methods
}

// newPredictions dates horizon rows after the last observation and fills them from value(i)
func newPredictions(data []DataPoint, config ForecastConfig, value func(i int) float64) []ForecastPoint {
	grain := config.Grain
	if !grain.Valid() {
		grain = analytics.GrainDaily
	}
	dates := grain.Sequence(data[len(data)-1].Time, config.Horizon)

	predictions := make([]ForecastPoint, len(dates))
	for i, t := range dates {
		predictions[i] = ForecastPoint{Time: t, Value: value(i)}
	}
	return predictions
}

func flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

func floorZero(v float64) float64 {
	return math.Max(0, v)
}

func values(data []DataPoint) []float64 {
	return analytics.TimeSeriesData(data).Values()
}

func checkData(data []DataPoint, config ForecastConfig) error {
	if len(data) == 0 {
		return fmt.Errorf("no data points to forecast")
	}
	if config.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", config.Horizon)
	}
	return nil
}

// fallback runs another strategy and records why on the returned model info
func fallback(requested Method, to Forecaster, data []DataPoint, config ForecastConfig, reason string) (*ForecastResult, error) {
	result, err := to.Forecast(data, config)
	if err != nil {
		return nil, err
	}
	result.ModelInfo.Requested = requested
	result.ModelInfo.Warnings = append(result.ModelInfo.Warnings, reason)
	return result, nil
}
