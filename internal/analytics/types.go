// Package analytics provides common types and utilities for demand time-series
// analytics: the aggregated point type, period grains and calendar stepping.
package analytics

import "time"

// TimeSeriesPoint represents a single aggregated period with its start time and demand.
// This is the common type used across the aggregation and forecast packages.
type TimeSeriesPoint struct {
	Time  time.Time `json:"date"`
	Value float64   `json:"demand"`
}

// TimeSeriesData represents a collection of time-series data points
type TimeSeriesData []TimeSeriesPoint

// Values extracts just the values from the time series
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, len(ts))
	for i, p := range ts {
		values[i] = p.Value
	}
	return values
}
