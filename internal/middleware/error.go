package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/services"
)

// StatusForCode maps service error codes onto HTTP statuses
func StatusForCode(code string) int {
	switch code {
	case services.CodeInvalidConfig, services.CodeMissingColumn:
		return fiber.StatusBadRequest
	case services.CodeEmptyData, services.CodeInsufficientData:
		return fiber.StatusUnprocessableEntity
	case services.CodeCancelled:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler returns a custom error handler middleware.
// Service errors keep their code; everything else is reported as ERROR.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) {
			status := StatusForCode(svcErr.Code)
			logger.Warn("Request rejected",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"code", svcErr.Code,
				"error", err,
			)
			return c.Status(status).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    svcErr.Code,
					Message: svcErr.Message,
					Path:    c.Path(),
					Details: svcErr.Details,
				},
			})
		}

		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}

		logger.Error("Request error",
			"path", c.Path(),
			"method", c.Method(),
			"status", code,
			"error", err,
		)

		return c.Status(code).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "ERROR",
				Message: message,
			},
		})
	}
}
