// Package jobs runs forecasts submitted through the message queue and
// publishes their results back to it.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/services"
)

// Result statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRejected  = "rejected" // payload could not be decoded
)

// Job is the envelope published on the request subject
type Job struct {
	ID          string                 `json:"id"`
	ByGroup     bool                   `json:"by_group,omitempty"`
	Request     models.ForecastRequest `json:"request"`
	SubmittedAt time.Time              `json:"submitted_at"`
}

// Result is published on the result subject. By-group jobs publish one
// Result per group.
type Result struct {
	JobID       string                   `json:"job_id"`
	Group       string                   `json:"group,omitempty"`
	Status      string                   `json:"status"`
	Result      *services.ForecastResult `json:"result,omitempty"`
	Error       *models.ErrorDetail      `json:"error,omitempty"`
	CompletedAt time.Time                `json:"completed_at"`
}

// NewJob wraps a request in an envelope with a fresh ID
func NewJob(req models.ForecastRequest, byGroup bool) Job {
	return Job{
		ID:          uuid.NewString(),
		ByGroup:     byGroup,
		Request:     req,
		SubmittedAt: time.Now().UTC(),
	}
}

// Submit encodes job and publishes it on subject
func Submit(ctx context.Context, pub queue.Publisher, codec *Codec, subject string, job Job) error {
	data, err := codec.Encode(job)
	if err != nil {
		return err
	}
	if err := pub.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to submit job %s: %w", job.ID, err)
	}
	return nil
}

func failed(jobID, group string, err error) Result {
	se := services.AsServiceError(err)
	return Result{
		JobID:  jobID,
		Group:  group,
		Status: StatusFailed,
		Error: &models.ErrorDetail{
			Code:    se.Code,
			Message: se.Message,
			Details: se.Details,
		},
		CompletedAt: time.Now().UTC(),
	}
}
