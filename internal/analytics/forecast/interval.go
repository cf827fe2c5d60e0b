package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultConfidenceLevel is used when no level is requested
const DefaultConfidenceLevel = 95

// SupportedConfidenceLevels lists the levels with a fixed z-score
var SupportedConfidenceLevels = []int{80, 85, 90, 95, 99}

var zScores = map[int]float64{
	80: 1.28,
	85: 1.44,
	90: 1.64,
	95: 1.96,
	99: 2.58,
}

// ZScore returns the two-sided normal multiplier for a confidence level.
// Unknown levels map to the 95% multiplier.
func ZScore(level int) float64 {
	if z, ok := zScores[level]; ok {
		return z
	}
	return zScores[DefaultConfidenceLevel]
}

// ValidConfidenceLevel reports whether level has a fixed z-score
func ValidConfidenceLevel(level int) bool {
	_, ok := zScores[level]
	return ok
}

// ApplyConfidenceInterval sets symmetric bounds on every prediction from the
// spread of the predictions themselves. The lower bound is floored at zero.
// Flat forecasts have no spread and get 0.1*mean; historical residuals are
// not consulted, so bounds understate uncertainty for flat methods.
func ApplyConfidenceInterval(predictions []ForecastPoint, level int) error {
	if len(predictions) == 0 {
		return nil
	}

	vals := make([]float64, len(predictions))
	for i, p := range predictions {
		vals[i] = p.Value
	}

	spread := 0.0
	if len(vals) > 1 {
		spread = stat.StdDev(vals, nil)
	}
	if spread == 0 || math.IsNaN(spread) {
		spread = 0.1 * stat.Mean(vals, nil)
	}
	margin := ZScore(level) * spread
	if math.IsNaN(margin) || math.IsInf(margin, 0) {
		return fmt.Errorf("confidence margin is not finite")
	}

	for i := range predictions {
		predictions[i].LowerBound = floorZero(predictions[i].Value - margin)
		predictions[i].UpperBound = predictions[i].Value + margin
	}
	return nil
}
