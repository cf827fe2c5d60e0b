package models

// ForecastConfig is the per-call configuration surface. Zero values are
// replaced by the service defaults.
type ForecastConfig struct {
	Method             string  `json:"method,omitempty" query:"method"`                           // method id or display name
	Grain              string  `json:"grain,omitempty" query:"grain"`                             // Daily, Weekly, Monthly, Yearly
	Horizon            int     `json:"horizon,omitempty" query:"horizon"`                         // periods to forecast
	ConfidenceLevel    int     `json:"confidence_level,omitempty" query:"confidence_level"`       // 80, 85, 90, 95, 99
	SeasonalityPeriods int     `json:"seasonality_periods,omitempty" query:"seasonality_periods"` // Holt-Winters season length
	Alpha              float64 `json:"alpha,omitempty" query:"alpha"`                             // exponential smoothing factor
	Group              string  `json:"group,omitempty" query:"group"`                             // product_id filter
	Seed               *uint64 `json:"seed,omitempty" query:"-"`                                  // fixes the random walk noise
}

// ForecastRequest represents the forecast request body
type ForecastRequest struct {
	Table  Table          `json:"table"`
	Config ForecastConfig `json:"config"`
}

// GroupsRequest asks for the distinct group keys of a table
type GroupsRequest struct {
	Table Table `json:"table"`
}
