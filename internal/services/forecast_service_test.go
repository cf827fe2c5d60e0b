package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/internal/analytics"
	"github.com/demandcast/demandcast/internal/analytics/forecast"
	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/metrics"
	"github.com/demandcast/demandcast/internal/models"
)

func createTestForecastService() *ForecastService {
	return NewForecastService(logging.Nop(), config.DefaultConfig().Forecast, nil)
}

// dailyTable builds one row per day starting 2024-01-01 with the given quantities
func dailyTable(quantities ...interface{}) models.Table {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	table := models.Table{Columns: []string{"date", "quantity", "product_id"}}
	for i, q := range quantities {
		table.Records = append(table.Records, models.Record{
			"date":       start.AddDate(0, 0, i).Format("2006-01-02"),
			"quantity":   q,
			"product_id": "P1",
		})
	}
	return table
}

func repeat(v interface{}, n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNewForecastService(t *testing.T) {
	svc := createTestForecastService()
	require.NotNil(t, svc)
	assert.Equal(t, config.DefaultConfig().Forecast.MaxWorkers, svc.pool.Size())
	assert.Equal(t, "moving_average", svc.Defaults().DefaultMethod)
}

func TestForecastService_Resolve_Defaults(t *testing.T) {
	svc := createTestForecastService()

	settings, err := svc.Resolve(models.ForecastConfig{})
	require.NoError(t, err)
	assert.Equal(t, forecast.MethodMovingAverage, settings.Method)
	assert.Equal(t, analytics.GrainDaily, settings.Grain)
	assert.Equal(t, 30, settings.Horizon)
	assert.Equal(t, 95, settings.ConfidenceLevel)
	assert.Equal(t, 12, settings.Seasonality)
	assert.Equal(t, 0.3, settings.Alpha)

	settings, err = svc.Resolve(models.ForecastConfig{Method: "Holt-Winters (Triple Smoothing)", Grain: "monthly"})
	require.NoError(t, err)
	assert.Equal(t, forecast.MethodHoltWinters, settings.Method)
	assert.Equal(t, analytics.GrainMonthly, settings.Grain)
	assert.Equal(t, 6, settings.Horizon)
}

func TestForecastService_Resolve_Invalid(t *testing.T) {
	svc := createTestForecastService()

	tests := []struct {
		name string
		cfg  models.ForecastConfig
	}{
		{"unknown method", models.ForecastConfig{Method: "prophet"}},
		{"unknown grain", models.ForecastConfig{Grain: "hourly"}},
		{"daily horizon too short", models.ForecastConfig{Horizon: 3}},
		{"daily horizon too long", models.ForecastConfig{Horizon: 91}},
		{"yearly horizon too long", models.ForecastConfig{Grain: "Yearly", Horizon: 6}},
		{"negative horizon", models.ForecastConfig{Horizon: -1}},
		{"unsupported confidence", models.ForecastConfig{ConfidenceLevel: 75}},
		{"seasonality too small", models.ForecastConfig{SeasonalityPeriods: 1}},
		{"alpha too large", models.ForecastConfig{Alpha: 1}},
		{"alpha negative", models.ForecastConfig{Alpha: -0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Resolve(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Equal(t, CodeInvalidConfig, AsServiceError(err).Code)
		})
	}
}

func TestForecastService_Run_MovingAverage(t *testing.T) {
	svc := createTestForecastService()

	result, err := svc.Run(context.Background(), models.ForecastRequest{
		Table:  dailyTable(10, 12, 9, 11, 13, 10, 14),
		Config: models.ForecastConfig{Method: "moving_average", Horizon: 7},
	})
	require.NoError(t, err)

	require.Len(t, result.Historical, 7)
	require.Len(t, result.Forecast, 7)
	assert.Equal(t, "Moving Average", result.Method)
	assert.Equal(t, forecast.MethodMovingAverage, result.EffectiveMethod)
	assert.Equal(t, "quantity", result.Coercion.DemandColumn)

	last := result.Historical[len(result.Historical)-1].Time
	for i, p := range result.Forecast {
		assert.InDelta(t, 37.0/3.0, p.Value, 1e-9)
		assert.Equal(t, last.AddDate(0, 0, i+1), p.Time)
		assert.LessOrEqual(t, p.LowerBound, p.Value)
		assert.GreaterOrEqual(t, p.UpperBound, p.Value)
	}

	// flat forecast: interval falls back to 10% of the mean
	margin := 1.96 * 0.1 * 37.0 / 3.0
	assert.InDelta(t, 37.0/3.0+margin, result.Forecast[0].UpperBound, 1e-9)

	assert.InDelta(t, 37.0/3.0, result.Summary.Average, 0.01)
	assert.InDelta(t, 7*37.0/3.0, result.Summary.Total, 0.01)
	assert.Greater(t, result.Accuracy.MAE, 0.0)
}

func TestForecastService_Run_EmptyData(t *testing.T) {
	svc := createTestForecastService()

	tests := []struct {
		name  string
		table models.Table
		group string
	}{
		{"all non-positive", dailyTable(0, -5, 0, -1, 0, 0, 0), ""},
		{"all unparseable demand", dailyTable(repeat("n/a", 7)...), ""},
		{"unknown group", dailyTable(repeat(5, 7)...), "P404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), models.ForecastRequest{
				Table:  tt.table,
				Config: models.ForecastConfig{Horizon: 7, Group: tt.group},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEmptyData))
			assert.Equal(t, CodeEmptyData, AsServiceError(err).Code)
		})
	}
}

func TestForecastService_Run_MissingColumn(t *testing.T) {
	svc := createTestForecastService()

	table := models.Table{
		Columns: []string{"date", "price"},
		Records: []models.Record{{"date": "2024-01-01", "price": 3}},
	}
	_, err := svc.Run(context.Background(), models.ForecastRequest{Table: table, Config: models.ForecastConfig{Horizon: 7}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Equal(t, CodeMissingColumn, AsServiceError(err).Code)
}

func TestForecastService_Run_MinimumPeriods(t *testing.T) {
	svc := createTestForecastService()

	_, err := svc.Run(context.Background(), models.ForecastRequest{
		Table:  dailyTable(repeat(5, 7)...),
		Config: models.ForecastConfig{Horizon: 7},
	})
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), models.ForecastRequest{
		Table:  dailyTable(repeat(5, 6)...),
		Config: models.ForecastConfig{Horizon: 7},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	se := AsServiceError(err)
	assert.Equal(t, CodeInsufficientData, se.Code)
	assert.Equal(t, 7, se.Details["required"])
	assert.Equal(t, 6, se.Details["actual"])
}

func TestForecastService_Run_HoltWintersFallback(t *testing.T) {
	svc := createTestForecastService()

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	table := models.Table{Columns: []string{"date", "quantity"}}
	for i := 0; i < 10; i++ {
		table.Records = append(table.Records, models.Record{
			"date":     start.AddDate(0, i, 0).Format(time.RFC3339),
			"quantity": 100 + i*5,
		})
	}

	result, err := svc.Run(context.Background(), models.ForecastRequest{
		Table: table,
		Config: models.ForecastConfig{
			Method:             "holt_winters",
			Grain:              "Monthly",
			Horizon:            6,
			SeasonalityPeriods: 12,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, forecast.MethodHoltWinters, result.MethodID)
	assert.Equal(t, forecast.MethodExponentialSmoothing, result.EffectiveMethod)
	assert.NotEmpty(t, result.Warnings)
	assert.Len(t, result.Forecast, 6)
}

func TestForecastService_Run_ARConstantHistory(t *testing.T) {
	svc := createTestForecastService()

	result, err := svc.Run(context.Background(), models.ForecastRequest{
		Table:  dailyTable(repeat(20, 10)...),
		Config: models.ForecastConfig{Method: "arima", Horizon: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, forecast.MethodMovingAverage, result.EffectiveMethod)
	for _, p := range result.Forecast {
		assert.InDelta(t, 20.0, p.Value, 1e-9)
	}
}

func TestForecastService_Run_Idempotent(t *testing.T) {
	svc := createTestForecastService()
	table := dailyTable(10, 12, 9, 11, 13, 10, 14, 15, 9, 12, 18, 11, 10, 16)
	seed := uint64(2024)

	for _, method := range forecast.Methods {
		t.Run(string(method), func(t *testing.T) {
			req := models.ForecastRequest{
				Table:  table,
				Config: models.ForecastConfig{Method: string(method), Horizon: 14, SeasonalityPeriods: 7, Seed: &seed},
			}
			first, err := svc.Run(context.Background(), req)
			require.NoError(t, err)
			second, err := svc.Run(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			for _, p := range first.Forecast {
				assert.GreaterOrEqual(t, p.Value, 0.0)
				assert.GreaterOrEqual(t, p.LowerBound, 0.0)
			}
		})
	}
}

func TestForecastService_Run_CoercionReport(t *testing.T) {
	svc := createTestForecastService()

	table := dailyTable(10, "bad", -3, 11, 13, 10, 14, 12)
	table.Records = append(table.Records, models.Record{"date": "not a date", "quantity": 5, "product_id": "P1"})

	result, err := svc.Run(context.Background(), models.ForecastRequest{Table: table, Config: models.ForecastConfig{Horizon: 7}})
	require.NoError(t, err)
	assert.Equal(t, 9, result.Coercion.TotalRows)
	assert.Equal(t, 1, result.Coercion.DroppedTimestamps)
	assert.Equal(t, 1, result.Coercion.CoercedDemand)
	assert.Equal(t, 1, result.Coercion.ClippedNegative)
	for _, p := range result.Historical {
		assert.GreaterOrEqual(t, p.Value, 0.0)
	}
}

func TestForecastService_Run_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	svc := NewForecastService(logging.Nop(), config.DefaultConfig().Forecast, m)

	_, err := svc.Run(context.Background(), models.ForecastRequest{
		Table:  dailyTable(repeat(20, 10)...),
		Config: models.ForecastConfig{Method: "arima", Horizon: 7},
	})
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["demandcast_forecast_fallbacks_total"])
	assert.True(t, names["demandcast_forecasts_total"])
}

func TestForecastService_RunByGroup(t *testing.T) {
	svc := createTestForecastService()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	table := models.Table{Columns: []string{"date", "quantity", "product_id"}}
	for i := 0; i < 10; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		table.Records = append(table.Records,
			models.Record{"date": day, "quantity": 10 + i, "product_id": "A"},
			models.Record{"date": day, "quantity": 100, "product_id": "B"},
		)
	}
	// C has too little history
	for i := 0; i < 3; i++ {
		table.Records = append(table.Records, models.Record{
			"date": start.AddDate(0, 0, i).Format("2006-01-02"), "quantity": 1, "product_id": "C",
		})
	}

	results, err := svc.RunByGroup(context.Background(), models.ForecastRequest{
		Table:  table,
		Config: models.ForecastConfig{Method: "linear_trend", Horizon: 7},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "A", results[0].Group)
	require.Nil(t, results[0].Error)
	assert.Equal(t, "A", results[0].Result.Group)
	assert.InDelta(t, 20.0, results[0].Result.Forecast[0].Value, 1e-9)
	assert.Equal(t, 10, results[0].Result.Coercion.FilteredByGroup)

	require.Nil(t, results[1].Error)
	assert.InDelta(t, 100.0, results[1].Result.Forecast[0].Value, 1e-9)

	require.NotNil(t, results[2].Error)
	assert.Equal(t, CodeInsufficientData, results[2].Error.Code)
	assert.Nil(t, results[2].Result)
}

func TestForecastService_RunByGroup_RequiresGroupColumn(t *testing.T) {
	svc := createTestForecastService()

	table := models.Table{
		Columns: []string{"date", "quantity"},
		Records: []models.Record{{"date": "2024-01-01", "quantity": 1}},
	}
	_, err := svc.RunByGroup(context.Background(), models.ForecastRequest{Table: table, Config: models.ForecastConfig{Horizon: 7}})
	require.Error(t, err)
	assert.Equal(t, CodeMissingColumn, AsServiceError(err).Code)
}

func TestForecastService_RunByGroup_Cancelled(t *testing.T) {
	svc := NewForecastService(logging.Nop(), config.ForecastConfig{
		DefaultMethod: "moving_average", DefaultGrain: "Daily", DefaultConfidence: 95,
		DefaultAlpha: 0.3, DefaultSeasonality: 12, MaxWorkers: 1,
	}, nil)

	table := models.Table{Columns: []string{"date", "quantity", "product_id"}}
	for g := 0; g < 5; g++ {
		for i := 0; i < 7; i++ {
			table.Records = append(table.Records, models.Record{
				"date": fmt.Sprintf("2024-01-%02d", i+1), "quantity": 1, "product_id": fmt.Sprintf("G%d", g),
			})
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunByGroup(ctx, models.ForecastRequest{Table: table, Config: models.ForecastConfig{Horizon: 7}})
	require.Error(t, err)
	assert.Equal(t, CodeCancelled, AsServiceError(err).Code)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

// explodingID panics when cast renders it as a group key
type explodingID struct{}

func (explodingID) String() string { panic("group key exploded") }

func TestForecastService_PanicDuringCleaning(t *testing.T) {
	svc := createTestForecastService()

	table := dailyTable(1, 2, 3, 4, 5, 6, 7, 8)
	table.Records[3]["product_id"] = explodingID{}
	req := models.ForecastRequest{Table: table, Config: models.ForecastConfig{Horizon: 3}}

	t.Run("Run", func(t *testing.T) {
		var (
			result *ForecastResult
			err    error
		)
		require.NotPanics(t, func() { result, err = svc.Run(context.Background(), req) })
		require.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, CodeComputation, AsServiceError(err).Code)
		assert.ErrorIs(t, err, ErrComputation)
	})

	t.Run("RunByGroup", func(t *testing.T) {
		var err error
		require.NotPanics(t, func() { _, err = svc.RunByGroup(context.Background(), req) })
		require.Error(t, err)
		assert.Equal(t, CodeComputation, AsServiceError(err).Code)
	})
}
