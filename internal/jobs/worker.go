package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/metrics"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/services"
	"github.com/demandcast/demandcast/internal/utils"
)

// Worker consumes jobs from the request subject, runs them through the
// forecast service and publishes results to the result subject.
type Worker struct {
	logger  *logging.Logger
	queue   queue.Queue
	service *services.ForecastService
	codec   *Codec
	metrics *metrics.Metrics

	requestSubject string
	resultSubject  string
	timeout        time.Duration

	mu      sync.Mutex
	started bool
}

// NewWorker creates a worker from queue configuration. m may be nil.
func NewWorker(logger *logging.Logger, q queue.Queue, svc *services.ForecastService, cfg config.QueueConfig, m *metrics.Metrics) (*Worker, error) {
	if q == nil || svc == nil {
		return nil, fmt.Errorf("queue and forecast service are required")
	}
	if logger == nil {
		logger = logging.Global()
	}

	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		logger:         logger,
		queue:          q,
		service:        svc,
		codec:          codec,
		metrics:        m,
		requestSubject: cfg.RequestSubject,
		resultSubject:  cfg.ResultSubject,
		timeout:        utils.BatchForecastTimeout,
	}
	if w.requestSubject == "" {
		w.requestSubject = utils.SubjectForecastRequests
	}
	if w.resultSubject == "" {
		w.resultSubject = utils.SubjectForecastResults
	}
	return w, nil
}

// Codec returns the payload codec used by the worker
func (w *Worker) Codec() *Codec {
	return w.codec
}

// Start subscribes to the request subject
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}
	if err := w.queue.Subscribe(w.requestSubject, w.handle); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.requestSubject, err)
	}
	w.started = true
	w.logger.Info("Forecast job worker started",
		"request_subject", w.requestSubject,
		"result_subject", w.resultSubject)
	return nil
}

// Stop unsubscribes from the request subject. The queue itself stays open.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}
	w.started = false
	if err := w.queue.Unsubscribe(w.requestSubject); err != nil {
		return err
	}
	w.logger.Info("Forecast job worker stopped")
	return nil
}

// handle processes one job. Only publish failures are returned, so the
// backend redelivers the job; forecast failures are reported as results.
func (w *Worker) handle(ctx context.Context, data []byte) error {
	var job Job
	if err := w.codec.Decode(data, &job); err != nil {
		w.logger.Error("Dropping undecodable job", "error", err, "bytes", len(data))
		w.metrics.ObserveJob(StatusRejected)
		return nil
	}

	ctx = logging.WithJobID(ctx, job.ID)
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	log := w.logger.WithContext(ctx)

	results := w.run(ctx, job)

	messages := make([]queue.Message, 0, len(results))
	for _, r := range results {
		payload, err := w.codec.Encode(r)
		if err != nil {
			log.Error("Failed to encode job result", "error", err, "group", r.Group)
			continue
		}
		messages = append(messages, queue.Message{Subject: w.resultSubject, Data: payload})
	}

	if err := w.publish(ctx, messages); err != nil {
		log.Error("Failed to publish job results", "error", err)
		return err
	}

	for _, r := range results {
		w.metrics.ObserveJob(r.Status)
	}
	log.Info("Forecast job completed",
		"by_group", job.ByGroup,
		"results", len(results),
		"wait", time.Since(job.SubmittedAt).String())
	return nil
}

func (w *Worker) run(ctx context.Context, job Job) []Result {
	if !job.ByGroup {
		result, err := w.service.Run(ctx, job.Request)
		if err != nil {
			return []Result{failed(job.ID, job.Request.Config.Group, err)}
		}
		return []Result{{
			JobID:       job.ID,
			Group:       job.Request.Config.Group,
			Status:      StatusSucceeded,
			Result:      result,
			CompletedAt: time.Now().UTC(),
		}}
	}

	groups, err := w.service.RunByGroup(ctx, job.Request)
	if err != nil {
		return []Result{failed(job.ID, "", err)}
	}
	results := make([]Result, len(groups))
	for i, g := range groups {
		if g.Error != nil {
			results[i] = failed(job.ID, g.Group, g.Error)
			continue
		}
		results[i] = Result{
			JobID:       job.ID,
			Group:       g.Group,
			Status:      StatusSucceeded,
			Result:      g.Result,
			CompletedAt: time.Now().UTC(),
		}
	}
	return results
}

func (w *Worker) publish(ctx context.Context, messages []queue.Message) error {
	switch len(messages) {
	case 0:
		return nil
	case 1:
		return w.queue.Publish(ctx, messages[0].Subject, messages[0].Data)
	}

	n, err := w.queue.PublishBatch(ctx, messages)
	if err != nil {
		return fmt.Errorf("published %d of %d results: %w", n, len(messages), err)
	}
	return nil
}
