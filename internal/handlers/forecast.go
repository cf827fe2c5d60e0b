package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/aggregation"
	"github.com/demandcast/demandcast/internal/analytics"
	"github.com/demandcast/demandcast/internal/analytics/forecast"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/report"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/utils"
)

// BatchResponse is the result of a per-group forecast
type BatchResponse struct {
	Results   []services.GroupResult `json:"results"`
	Count     int                    `json:"count"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
}

// Forecast handles JSON forecast requests
// POST /v1/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	var req models.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_JSON", "Failed to parse JSON body", err)
	}

	result, err := h.forecastService.Run(c.UserContext(), req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(result)
}

// ForecastCSV forecasts a CSV body with the configuration taken from the query
// string and answers with the forecast series as CSV
// POST /v1/forecast/csv?method=holt_winters&grain=Weekly&horizon=12
func (h *Handler) ForecastCSV(c *fiber.Ctx) error {
	cfg, err := parseQueryConfig(c)
	if err != nil {
		return badRequest(c, services.CodeInvalidConfig, "Invalid query parameters", err)
	}

	table, err := report.ReadTable(bytes.NewReader(c.Body()))
	if err != nil {
		return badRequest(c, "INVALID_CSV", "Failed to parse CSV body", err)
	}

	result, err := h.forecastService.Run(c.UserContext(), models.ForecastRequest{Table: table, Config: cfg})
	if err != nil {
		return h.serviceError(c, err)
	}

	var buf bytes.Buffer
	if err := report.WriteForecastCSV(&buf, result.Forecast); err != nil {
		return h.serviceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="forecast_%s.csv"`, result.MethodID))
	c.Set("X-Forecast-Method", string(result.EffectiveMethod))
	return c.Send(buf.Bytes())
}

// ForecastChart renders the forecast of a JSON request as an HTML chart
// POST /v1/forecast/chart
func (h *Handler) ForecastChart(c *fiber.Ctx) error {
	var req models.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_JSON", "Failed to parse JSON body", err)
	}

	result, err := h.forecastService.Run(c.UserContext(), req)
	if err != nil {
		return h.serviceError(c, err)
	}

	var buf bytes.Buffer
	if err := report.RenderForecast(&buf, result); err != nil {
		return h.serviceError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// ForecastBatch forecasts every product_id of the table independently
// POST /v1/forecast/batch
func (h *Handler) ForecastBatch(c *fiber.Ctx) error {
	var req models.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_JSON", "Failed to parse JSON body", err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), utils.BatchForecastTimeout)
	defer cancel()

	results, err := h.forecastService.RunByGroup(ctx, req)
	if err != nil {
		return h.serviceError(c, err)
	}

	resp := BatchResponse{Results: results, Count: len(results)}
	for _, r := range results {
		if r.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return c.JSON(resp)
}

// Groups lists the distinct product_id values of a table
// POST /v1/forecast/groups
func (h *Handler) Groups(c *fiber.Ctx) error {
	var req models.GroupsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_JSON", "Failed to parse JSON body", err)
	}

	groups, err := aggregation.Groups(req.Table)
	if err != nil {
		return h.serviceError(c, services.FromAggregationError(err))
	}

	return c.JSON(models.GroupsResponse{
		Column: aggregation.ColumnGroup,
		Groups: groups,
		Count:  len(groups),
	})
}

// Methods lists the forecasting methods and the accepted configuration ranges
// GET /v1/methods
func (h *Handler) Methods(c *fiber.Ctx) error {
	resp := models.MethodsResponse{
		Methods:          make([]models.MethodResponse, 0, len(forecast.Methods)),
		Grains:           make([]models.GrainResponse, 0, len(analytics.Grains)),
		ConfidenceLevels: forecast.SupportedConfidenceLevels,
	}

	for _, m := range forecast.Methods {
		resp.Methods = append(resp.Methods, models.MethodResponse{
			ID:         string(m),
			Name:       m.DisplayName(),
			Stochastic: m.Stochastic(),
		})
	}
	for _, g := range analytics.Grains {
		lo, hi := g.HorizonBounds()
		resp.Grains = append(resp.Grains, models.GrainResponse{
			Name:           string(g),
			MinHorizon:     lo,
			MaxHorizon:     hi,
			DefaultHorizon: g.DefaultHorizon(),
			MinPeriods:     g.MinPeriods(),
		})
	}

	return c.JSON(resp)
}

// parseQueryConfig reads the forecast configuration from the query string
func parseQueryConfig(c *fiber.Ctx) (models.ForecastConfig, error) {
	var cfg models.ForecastConfig
	if err := c.QueryParser(&cfg); err != nil {
		return cfg, err
	}

	if raw := c.Query("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("seed must be an unsigned integer: %w", err)
		}
		cfg.Seed = &seed
	}
	return cfg, nil
}
