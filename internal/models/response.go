package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// MethodResponse describes one forecasting method
type MethodResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Stochastic bool   `json:"stochastic"`
}

// MethodsResponse lists the available methods and configuration bounds
type MethodsResponse struct {
	Methods          []MethodResponse `json:"methods"`
	Grains           []GrainResponse  `json:"grains"`
	ConfidenceLevels []int            `json:"confidence_levels"`
}

// GrainResponse describes horizon bounds for a grain
type GrainResponse struct {
	Name           string `json:"name"`
	MinHorizon     int    `json:"min_horizon"`
	MaxHorizon     int    `json:"max_horizon"`
	DefaultHorizon int    `json:"default_horizon"`
	MinPeriods     int    `json:"min_periods"`
}

// GroupsResponse lists distinct group keys
type GroupsResponse struct {
	Column string   `json:"column"`
	Groups []string `json:"groups"`
	Count  int      `json:"count"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
