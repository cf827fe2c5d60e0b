package forecast

// SeasonalNaiveMaxSeason caps the repeated pattern length
const SeasonalNaiveMaxSeason = 7

// SeasonalNaiveForecaster repeats the last observed season
type SeasonalNaiveForecaster struct{}

// NewSeasonalNaiveForecaster creates a new Seasonal Naive forecaster
func NewSeasonalNaiveForecaster() *SeasonalNaiveForecaster {
	return &SeasonalNaiveForecaster{}
}

func init() {
	RegisterForecaster(NewSeasonalNaiveForecaster())
}

// Method returns the algorithm identifier
func (f *SeasonalNaiveForecaster) Method() Method {
	return MethodSeasonalNaive
}

// Forecast cycles through the last min(7, len) values
func (f *SeasonalNaiveForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if err := checkData(data, config); err != nil {
		return nil, err
	}

	y := values(data)
	season := min(SeasonalNaiveMaxSeason, len(y))
	pattern := y[len(y)-season:]

	return &ForecastResult{
		Predictions: newPredictions(data, config, func(i int) float64 {
			return pattern[i%season]
		}),
		ModelInfo: ModelInfo{
			Algorithm:  MethodSeasonalNaive,
			Requested:  MethodSeasonalNaive,
			Parameters: map[string]interface{}{"season_length": season},
			DataPoints: len(data),
		},
	}, nil
}
