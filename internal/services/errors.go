// Package services provides the business logic layer between the transports
// (HTTP handlers, queue worker, CLI) and the forecasting engine.
package services

import (
	"errors"
	"fmt"

	"github.com/demandcast/demandcast/internal/aggregation"
)

// Error codes reported by the forecast service
const (
	CodeMissingColumn    = "MISSING_COLUMN"
	CodeEmptyData        = "EMPTY_DATA"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeComputation      = "COMPUTATION_ERROR"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeCancelled        = "CANCELLED"
)

var (
	// ErrInsufficientData is returned when the aggregated series is shorter than the grain minimum
	ErrInsufficientData = errors.New("insufficient history")
	// ErrComputation is returned when a strategy fails or produces non-finite output
	ErrComputation = errors.New("forecast computation failed")
	// ErrInvalidConfig is returned when a request setting is out of range
	ErrInvalidConfig = errors.New("invalid forecast configuration")
	// ErrCancelled is returned when the caller's context ends before a batch finishes
	ErrCancelled = errors.New("forecast cancelled")

	// ErrMissingColumn and ErrEmptyData come from the aggregation layer
	ErrMissingColumn = aggregation.ErrMissingColumn
	ErrEmptyData     = aggregation.ErrEmptyData
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	cause error
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the sentinel or lower-layer error behind this one
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func invalidConfig(format string, args ...interface{}) *ServiceError {
	return &ServiceError{
		Code:    CodeInvalidConfig,
		Message: fmt.Sprintf(format, args...),
		cause:   ErrInvalidConfig,
	}
}

func insufficientData(required, actual int) *ServiceError {
	return &ServiceError{
		Code:    CodeInsufficientData,
		Message: fmt.Sprintf("need at least %d periods of history, have %d", required, actual),
		Details: map[string]interface{}{
			"required": required,
			"actual":   actual,
		},
		cause: ErrInsufficientData,
	}
}

func cancelled(err error) *ServiceError {
	return &ServiceError{
		Code:    CodeCancelled,
		Message: fmt.Sprintf("batch forecast cancelled: %v", err),
		cause:   fmt.Errorf("%w: %w", ErrCancelled, err),
	}
}

func computationError(err error) *ServiceError {
	return &ServiceError{
		Code:    CodeComputation,
		Message: err.Error(),
		cause:   fmt.Errorf("%w: %w", ErrComputation, err),
	}
}

// FromAggregationError maps cleaning failures onto service errors
func FromAggregationError(err error) *ServiceError {
	switch {
	case errors.Is(err, aggregation.ErrMissingColumn):
		return &ServiceError{Code: CodeMissingColumn, Message: err.Error(), cause: err}
	case errors.Is(err, aggregation.ErrEmptyData):
		return &ServiceError{Code: CodeEmptyData, Message: err.Error(), cause: err}
	default:
		return computationError(err)
	}
}

// AsServiceError converts any error into a ServiceError, keeping existing ones
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return computationError(err)
}
