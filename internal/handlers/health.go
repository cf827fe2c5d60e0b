package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/analytics/forecast"
	"github.com/demandcast/demandcast/internal/models"
)

// Health handles health check requests
func (h *Handler) Health(c *fiber.Ctx) error {
	status := "healthy"
	checks := map[string]string{
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}

	if len(forecast.ListForecasters()) == len(forecast.Methods) {
		checks["forecasters"] = "ok"
	} else {
		checks["forecasters"] = "missing"
		status = "degraded"
	}
	if h.forecastService == nil {
		checks["forecast_service"] = "unavailable"
		status = "degraded"
	} else {
		checks["forecast_service"] = "ok"
		stats := h.forecastService.PoolStats()
		checks["workers"] = fmt.Sprintf("%d/%d active", stats["active_workers"], stats["max_active_workers"])
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
		Checks:    checks,
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
