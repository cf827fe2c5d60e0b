package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/middleware"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/services"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger          *logging.Logger
	forecastService *services.ForecastService
	startedAt       time.Time
}

// New creates a new handler instance
func New(logger *logging.Logger, forecastService *services.ForecastService) *Handler {
	return &Handler{
		logger:          logger,
		forecastService: forecastService,
		startedAt:       time.Now(),
	}
}

// serviceError writes err as an ErrorResponse with the mapped status
func (h *Handler) serviceError(c *fiber.Ctx, err error) error {
	svcErr := services.AsServiceError(err)
	status := middleware.StatusForCode(svcErr.Code)

	if status >= fiber.StatusInternalServerError {
		h.logger.WithContext(c.UserContext()).Error("Forecast failed",
			"path", c.Path(), "code", svcErr.Code, "error", err)
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    svcErr.Code,
			Message: svcErr.Message,
			Path:    c.Path(),
			Details: svcErr.Details,
		},
	})
}

// badRequest writes a 400 with the given code
func badRequest(c *fiber.Ctx, code, message string, err error) error {
	detail := models.ErrorDetail{
		Code:    code,
		Message: message,
		Path:    c.Path(),
	}
	if err != nil {
		detail.Details = map[string]interface{}{"error": err.Error()}
	}
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: detail})
}
