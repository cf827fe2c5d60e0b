package forecast

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/demandcast/demandcast/internal/analytics"
)

// Common test data and helpers for all forecast tests

var testBaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// dailySeries dates vals on consecutive days from testBaseTime
func dailySeries(vals ...float64) []DataPoint {
	data := make([]DataPoint, len(vals))
	for i, v := range vals {
		data[i] = DataPoint{Time: testBaseTime.AddDate(0, 0, i), Value: v}
	}
	return data
}

// generateLinearData creates test data with linear pattern: y = slope * x + intercept
func generateLinearData(n int, slope, intercept float64) []DataPoint {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = slope*float64(i) + intercept
	}
	return dailySeries(vals...)
}

// generateSeasonalTestData creates test data with a weekly-like seasonal pattern
func generateSeasonalTestData(n int, period int) []DataPoint {
	vals := make([]float64, n)
	for i := range vals {
		trend := float64(i) * 0.1
		seasonal := 10 * math.Sin(2*math.Pi*float64(i%period)/float64(period))
		vals[i] = 50 + trend + seasonal
	}
	return dailySeries(vals...)
}

func testConfig(horizon int) ForecastConfig {
	config := DefaultForecastConfig()
	config.Horizon = horizon
	config.Rand = rand.New(rand.NewPCG(42, 7))
	return config
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// assertDatedAfter checks that predictions continue the daily sequence
func assertDatedAfter(t *testing.T, data []DataPoint, result *ForecastResult) {
	t.Helper()
	last := data[len(data)-1].Time
	for i, p := range result.Predictions {
		want := analytics.GrainDaily.Advance(last, i+1)
		if !p.Time.Equal(want) {
			t.Errorf("prediction %d dated %v, want %v", i, p.Time, want)
		}
	}
}

func assertNonNegative(t *testing.T, result *ForecastResult) {
	t.Helper()
	for i, p := range result.Predictions {
		if p.Value < 0 {
			t.Errorf("prediction %d is negative: %f", i, p.Value)
		}
	}
}
