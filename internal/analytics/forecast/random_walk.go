package forecast

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RandomWalkNoiseScale scales the step standard deviation applied as noise
const RandomWalkNoiseScale = 0.1

// RandomWalkForecaster extends the last value by the mean step plus gaussian noise
type RandomWalkForecaster struct{}

// NewRandomWalkForecaster creates a new Random Walk forecaster
func NewRandomWalkForecaster() *RandomWalkForecaster {
	return &RandomWalkForecaster{}
}

func init() {
	RegisterForecaster(NewRandomWalkForecaster())
}

// Method returns the algorithm identifier
func (f *RandomWalkForecaster) Method() Method {
	return MethodRandomWalk
}

// Forecast walks forward from the last observation. The walk itself is not
// floored; only emitted values are.
func (f *RandomWalkForecaster) Forecast(data []DataPoint, config ForecastConfig) (*ForecastResult, error) {
	if err := checkData(data, config); err != nil {
		return nil, err
	}

	rng := config.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	y := values(data)
	drift, stepStd := randomWalkParams(y)
	noiseStd := RandomWalkNoiseScale * stepStd

	walk := make([]float64, config.Horizon)
	current := y[len(y)-1]
	for i := range walk {
		current += drift + rng.NormFloat64()*noiseStd
		walk[i] = current
	}

	return &ForecastResult{
		Predictions: newPredictions(data, config, func(i int) float64 {
			return floorZero(walk[i])
		}),
		ModelInfo: ModelInfo{
			Algorithm: MethodRandomWalk,
			Requested: MethodRandomWalk,
			Parameters: map[string]interface{}{
				"drift":     drift,
				"noise_std": noiseStd,
			},
			DataPoints: len(data),
		},
	}, nil
}

// randomWalkParams returns the mean and population standard deviation of the
// first differences. A single point has no drift and uses its own spread.
func randomWalkParams(y []float64) (drift, std float64) {
	if len(y) <= 1 {
		if len(y) == 0 {
			return 0, 1
		}
		_, std = stat.PopMeanStdDev(y, nil)
		return 0, std
	}

	diffs := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		diffs[i-1] = y[i] - y[i-1]
	}
	return stat.PopMeanStdDev(diffs, nil)
}
