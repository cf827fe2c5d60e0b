package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/demandcast/demandcast/internal/aggregation"
	"github.com/demandcast/demandcast/internal/analytics"
	"github.com/demandcast/demandcast/internal/analytics/forecast"
	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/metrics"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/utils"
)

// Seasonality bounds accepted for Holt-Winters
const (
	MinSeasonality = 2
	MaxSeasonality = 52
)

// ForecastService runs the forecast pipeline: clean, aggregate, dispatch,
// interval, accuracy
type ForecastService struct {
	logger     *logging.Logger
	aggregator *aggregation.Aggregator
	defaults   config.ForecastConfig
	metrics    *metrics.Metrics
	pool       *WorkerPool
}

// NewForecastService creates a new ForecastService. m may be nil.
func NewForecastService(logger *logging.Logger, cfg config.ForecastConfig, m *metrics.Metrics) *ForecastService {
	if logger == nil {
		logger = logging.Global()
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = utils.DefaultWorkerCount
	}
	return &ForecastService{
		logger:     logger,
		aggregator: aggregation.NewAggregator(cfg.Location()),
		defaults:   cfg,
		metrics:    m,
		pool:       NewWorkerPool(workers),
	}
}

// Settings is a validated per-call configuration
type Settings struct {
	Method          forecast.Method
	Grain           analytics.Grain
	Horizon         int
	ConfidenceLevel int
	Seasonality     int
	Alpha           float64
	Group           string
	Seed            *uint64
}

// Summary aggregates the point forecast
type Summary struct {
	Average float64 `json:"average"`
	Total   float64 `json:"total"`
}

// ForecastResult is the assembled outcome of one forecast call
type ForecastResult struct {
	Historical      analytics.TimeSeriesData    `json:"historical"`
	Forecast        []forecast.ForecastPoint    `json:"forecast"`
	Method          string                      `json:"method"` // display name of the requested method
	MethodID        forecast.Method             `json:"method_id"`
	EffectiveMethod forecast.Method             `json:"effective_method"`
	Horizon         int                         `json:"horizon"`
	Grain           analytics.Grain             `json:"grain"`
	ConfidenceLevel int                         `json:"confidence_level"`
	Group           string                      `json:"group,omitempty"`
	Accuracy        forecast.Accuracy           `json:"accuracy"`
	Summary         Summary                     `json:"summary"`
	Coercion        aggregation.CoercionReport  `json:"coercion"`
	Warnings        []string                    `json:"warnings,omitempty"`
	ModelInfo       forecast.ModelInfo          `json:"model_info"`
}

// GroupResult is one entry of a batch run
type GroupResult struct {
	Group  string          `json:"group"`
	Result *ForecastResult `json:"result,omitempty"`
	Error  *ServiceError   `json:"error,omitempty"`
}

// PoolStats reports the batch worker pool
func (s *ForecastService) PoolStats() map[string]interface{} {
	return s.pool.Stats()
}

// Defaults returns the configured request defaults
func (s *ForecastService) Defaults() config.ForecastConfig {
	return s.defaults
}

// Resolve applies defaults to a request config and validates every setting
func (s *ForecastService) Resolve(cfg models.ForecastConfig) (Settings, error) {
	methodName := cfg.Method
	if methodName == "" {
		methodName = s.defaults.DefaultMethod
	}
	method, err := forecast.ParseMethod(methodName)
	if err != nil {
		return Settings{}, invalidConfig("%v", err)
	}

	grainName := cfg.Grain
	if grainName == "" {
		grainName = s.defaults.DefaultGrain
	}
	grain, err := analytics.ParseGrain(grainName)
	if err != nil {
		return Settings{}, invalidConfig("%v", err)
	}

	horizon := cfg.Horizon
	if horizon == 0 {
		horizon = grain.DefaultHorizon()
	}
	if lo, hi := grain.HorizonBounds(); horizon < lo || horizon > hi {
		return Settings{}, invalidConfig("horizon for %s grain must be between %d and %d, got %d", grain, lo, hi, horizon)
	}

	confidence := cfg.ConfidenceLevel
	if confidence == 0 {
		confidence = s.defaults.DefaultConfidence
	}
	if !forecast.ValidConfidenceLevel(confidence) {
		return Settings{}, invalidConfig("confidence_level must be one of %v, got %d", forecast.SupportedConfidenceLevels, confidence)
	}

	seasonality := cfg.SeasonalityPeriods
	if seasonality == 0 {
		seasonality = s.defaults.DefaultSeasonality
	}
	if seasonality < MinSeasonality || seasonality > MaxSeasonality {
		return Settings{}, invalidConfig("seasonality_periods must be between %d and %d, got %d", MinSeasonality, MaxSeasonality, seasonality)
	}

	alpha := cfg.Alpha
	if alpha == 0 {
		alpha = s.defaults.DefaultAlpha
	}
	if alpha <= 0 || alpha >= 1 {
		return Settings{}, invalidConfig("alpha must be between 0 and 1 exclusive, got %g", alpha)
	}

	return Settings{
		Method:          method,
		Grain:           grain,
		Horizon:         horizon,
		ConfidenceLevel: confidence,
		Seasonality:     seasonality,
		Alpha:           alpha,
		Group:           cfg.Group,
		Seed:            cfg.Seed,
	}, nil
}

// Run executes one forecast. Every failure is returned as a *ServiceError.
func (s *ForecastService) Run(ctx context.Context, req models.ForecastRequest) (result *ForecastResult, err error) {
	defer s.recoverPanic(ctx, "Run", &err)

	settings, err := s.Resolve(req.Config)
	if err != nil {
		s.observe(req.Config.Method, req.Config.Grain, err, 0)
		return nil, err
	}

	start := time.Now()
	obs, report, err := s.aggregator.Clean(req.Table)
	s.recordCoercion(report)
	if err != nil {
		se := FromAggregationError(err)
		s.observe(string(settings.Method), string(settings.Grain), se, time.Since(start))
		return nil, se
	}

	result, err = s.forecastObservations(ctx, settings, obs, report)
	s.observe(string(settings.Method), string(settings.Grain), err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunByGroup cleans the table once and forecasts every distinct group through
// the worker pool. Per-group failures are reported on the entry; the returned
// error covers request-level failures only.
func (s *ForecastService) RunByGroup(ctx context.Context, req models.ForecastRequest) (results []GroupResult, err error) {
	defer s.recoverPanic(ctx, "RunByGroup", &err)

	settings, err := s.Resolve(req.Config)
	if err != nil {
		return nil, err
	}

	groups, err := aggregation.Groups(req.Table)
	if err != nil {
		return nil, FromAggregationError(err)
	}
	if len(groups) > utils.MaxGroupsPerRequest {
		return nil, invalidConfig("table has %d groups, at most %d are forecast per request", len(groups), utils.MaxGroupsPerRequest)
	}

	obs, report, err := s.aggregator.Clean(req.Table)
	s.recordCoercion(report)
	if err != nil {
		return nil, FromAggregationError(err)
	}

	results = make([]GroupResult, len(groups))
	runErr := s.pool.Run(ctx, len(groups), func(ctx context.Context, i int) {
		start := time.Now()
		groupSettings := settings
		groupSettings.Group = groups[i]

		result, err := s.forecastObservations(ctx, groupSettings, obs, report)
		s.observe(string(settings.Method), string(settings.Grain), err, time.Since(start))

		results[i] = GroupResult{Group: groups[i], Result: result}
		if err != nil {
			results[i].Error = AsServiceError(err)
		}
	})
	if runErr != nil {
		return nil, cancelled(runErr)
	}

	s.logger.WithContext(ctx).Info("Batch forecast completed",
		"groups", len(groups),
		"method", settings.Method,
		"grain", settings.Grain)

	return results, nil
}

// recoverPanic turns a panic escaping name into a computation error on *err
func (s *ForecastService) recoverPanic(ctx context.Context, name string, err *error) {
	if r := recover(); r != nil {
		s.logger.WithContext(ctx).Error("Forecast request panicked", "operation", name, "panic", fmt.Sprint(r))
		*err = computationError(fmt.Errorf("panic: %v", r))
	}
}

// forecastObservations runs the pipeline after cleaning. Panics and non-finite
// output are reported as computation errors.
func (s *ForecastService) forecastObservations(
	ctx context.Context,
	settings Settings,
	obs []aggregation.Observation,
	report aggregation.CoercionReport,
) (result *ForecastResult, err error) {
	logger := s.logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Forecast panicked", "method", settings.Method, "panic", fmt.Sprint(r))
			result, err = nil, computationError(fmt.Errorf("panic: %v", r))
		}
	}()

	obs, err = aggregation.FilterGroup(obs, settings.Group, &report)
	if err != nil {
		return nil, FromAggregationError(err)
	}

	series := s.aggregator.Aggregate(obs, settings.Grain)
	s.metrics.ObserveHistory(string(settings.Grain), len(series))
	if required := settings.Grain.MinPeriods(); len(series) < required {
		return nil, insufficientData(required, len(series))
	}

	forecaster, err := forecast.GetForecaster(settings.Method)
	if err != nil {
		return nil, invalidConfig("%v", err)
	}

	cfg := forecast.ForecastConfig{
		Horizon:        settings.Horizon,
		Grain:          settings.Grain,
		Alpha:          settings.Alpha,
		SeasonalPeriod: settings.Seasonality,
	}
	if settings.Seed != nil {
		cfg.Rand = rand.New(rand.NewPCG(*settings.Seed, *settings.Seed))
	}

	fc, err := forecaster.Forecast(series, cfg)
	if err != nil {
		return nil, computationError(err)
	}

	if fc.ModelInfo.Fallback() {
		logger.Warn("Forecast method fell back",
			"requested", fc.ModelInfo.Requested,
			"effective", fc.ModelInfo.Algorithm,
			"periods", len(series),
			"group", settings.Group)
		s.metrics.ObserveFallback(string(fc.ModelInfo.Requested), string(fc.ModelInfo.Algorithm))
	}

	if err := forecast.ApplyConfidenceInterval(fc.Predictions, settings.ConfidenceLevel); err != nil {
		return nil, computationError(err)
	}
	for _, p := range fc.Predictions {
		if !utils.AllFinite(p.Value, p.LowerBound, p.UpperBound) {
			return nil, computationError(fmt.Errorf("%s produced a non-finite forecast", fc.ModelInfo.Algorithm))
		}
	}

	values := fc.Values()
	total := 0.0
	for _, v := range values {
		total += v
	}

	result = &ForecastResult{
		Historical:      series,
		Forecast:        fc.Predictions,
		Method:          settings.Method.DisplayName(),
		MethodID:        settings.Method,
		EffectiveMethod: fc.ModelInfo.Algorithm,
		Horizon:         settings.Horizon,
		Grain:           settings.Grain,
		ConfidenceLevel: settings.ConfidenceLevel,
		Group:           settings.Group,
		Accuracy:        forecast.EvaluateNaive(series.Values()),
		Summary: Summary{
			Average: utils.Round(total/float64(len(values)), utils.AccuracyDecimals),
			Total:   utils.Round(total, utils.AccuracyDecimals),
		},
		Coercion:  report,
		Warnings:  fc.ModelInfo.Warnings,
		ModelInfo: fc.ModelInfo,
	}

	logger.Debug("Forecast completed",
		"method", settings.Method,
		"effective", fc.ModelInfo.Algorithm,
		"grain", settings.Grain,
		"horizon", settings.Horizon,
		"periods", len(series),
		"group", settings.Group)

	return result, nil
}

func (s *ForecastService) observe(method, grain string, err error, elapsed time.Duration) {
	code := "OK"
	if err != nil {
		code = AsServiceError(err).Code
	}
	s.metrics.ObserveForecast(method, grain, code, elapsed)
}

func (s *ForecastService) recordCoercion(report aggregation.CoercionReport) {
	s.metrics.AddCoerced("dropped_timestamps", report.DroppedTimestamps)
	s.metrics.AddCoerced("coerced_demand", report.CoercedDemand)
	s.metrics.AddCoerced("clipped_negative", report.ClippedNegative)
}
