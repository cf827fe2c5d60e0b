package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/logging"
	"github.com/demandcast/demandcast/internal/metrics"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/queue"
	"github.com/demandcast/demandcast/internal/services"
)

func testTable(product string, quantity interface{}, days int) models.Table {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	table := models.Table{Columns: []string{"date", "quantity", "product_id"}}
	for i := 0; i < days; i++ {
		table.Records = append(table.Records, models.Record{
			"date":       start.AddDate(0, 0, i).Format("2006-01-02"),
			"quantity":   quantity,
			"product_id": product,
		})
	}
	return table
}

type workerFixture struct {
	queue   queue.Queue
	worker  *Worker
	metrics *metrics.Metrics
	results chan Result
}

func setupWorker(t *testing.T) *workerFixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Queue.Type = "memory"

	q, err := queue.NewQueue(cfg.Queue)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	m := metrics.New()
	svc := services.NewForecastService(logging.Nop(), cfg.Forecast, m)
	w, err := NewWorker(logging.Nop(), q, svc, cfg.Queue, m)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	f := &workerFixture{queue: q, worker: w, metrics: m, results: make(chan Result, 16)}
	require.NoError(t, q.Subscribe(cfg.Queue.ResultSubject, func(ctx context.Context, data []byte) error {
		var r Result
		if err := w.Codec().Decode(data, &r); err != nil {
			return err
		}
		f.results <- r
		return nil
	}))
	return f
}

func (f *workerFixture) next(t *testing.T) Result {
	t.Helper()
	select {
	case r := <-f.results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job result")
		return Result{}
	}
}

func (f *workerFixture) jobCount(t *testing.T, status string) float64 {
	t.Helper()
	families, err := f.metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "demandcast_jobs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == status {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNewWorker_Validation(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewWorker(logging.Nop(), nil, nil, cfg.Queue, nil)
	assert.Error(t, err)

	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	svc := services.NewForecastService(logging.Nop(), cfg.Forecast, nil)
	cfg.Queue.Compression = "lz4"
	_, err = NewWorker(logging.Nop(), q, svc, cfg.Queue, nil)
	assert.Error(t, err)
}

func TestWorker_SingleJob(t *testing.T) {
	f := setupWorker(t)

	job := NewJob(models.ForecastRequest{
		Table:  testTable("P1", 20, 14),
		Config: models.ForecastConfig{Horizon: 7},
	}, false)
	require.NoError(t, Submit(context.Background(), f.queue, f.worker.Codec(), "forecast.requests", job))

	r := f.next(t)
	assert.Equal(t, job.ID, r.JobID)
	assert.Equal(t, StatusSucceeded, r.Status)
	require.NotNil(t, r.Result)
	assert.Len(t, r.Result.Forecast, 7)
	assert.InDelta(t, 20.0, r.Result.Forecast[0].Value, 1e-9)
	assert.Nil(t, r.Error)

	assert.Eventually(t, func() bool { return f.jobCount(t, StatusSucceeded) == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestWorker_FailedJob(t *testing.T) {
	f := setupWorker(t)

	job := NewJob(models.ForecastRequest{
		Table:  testTable("P1", 20, 3),
		Config: models.ForecastConfig{Horizon: 7},
	}, false)
	require.NoError(t, Submit(context.Background(), f.queue, f.worker.Codec(), "forecast.requests", job))

	r := f.next(t)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Nil(t, r.Result)
	require.NotNil(t, r.Error)
	assert.Equal(t, services.CodeInsufficientData, r.Error.Code)
	assert.EqualValues(t, 7, r.Error.Details["required"])
	assert.EqualValues(t, 3, r.Error.Details["actual"])
}

func TestWorker_ByGroupJob(t *testing.T) {
	f := setupWorker(t)

	table := testTable("A", 20, 14)
	table.Records = append(table.Records, testTable("B", 5, 2).Records...)

	job := NewJob(models.ForecastRequest{Table: table, Config: models.ForecastConfig{Horizon: 7}}, true)
	require.NoError(t, Submit(context.Background(), f.queue, f.worker.Codec(), "forecast.requests", job))

	byGroup := map[string]Result{}
	for i := 0; i < 2; i++ {
		r := f.next(t)
		assert.Equal(t, job.ID, r.JobID)
		byGroup[r.Group] = r
	}

	require.Contains(t, byGroup, "A")
	assert.Equal(t, StatusSucceeded, byGroup["A"].Status)
	assert.InDelta(t, 20.0, byGroup["A"].Result.Summary.Average, 1e-9)

	require.Contains(t, byGroup, "B")
	assert.Equal(t, StatusFailed, byGroup["B"].Status)
	assert.Equal(t, services.CodeInsufficientData, byGroup["B"].Error.Code)
}

func TestWorker_InvalidConfigJob(t *testing.T) {
	f := setupWorker(t)

	job := NewJob(models.ForecastRequest{
		Table:  testTable("P1", 20, 14),
		Config: models.ForecastConfig{Method: "prophet"},
	}, true)
	require.NoError(t, Submit(context.Background(), f.queue, f.worker.Codec(), "forecast.requests", job))

	r := f.next(t)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Empty(t, r.Group)
	assert.Equal(t, services.CodeInvalidConfig, r.Error.Code)
}

func TestWorker_RejectsUndecodablePayload(t *testing.T) {
	f := setupWorker(t)

	require.NoError(t, f.queue.Publish(context.Background(), "forecast.requests", []byte("not a job")))

	assert.Eventually(t, func() bool { return f.jobCount(t, StatusRejected) == 1 },
		2*time.Second, 10*time.Millisecond)
	select {
	case r := <-f.results:
		t.Fatalf("unexpected result for rejected payload: %+v", r)
	default:
	}
}

func TestWorker_StartStop(t *testing.T) {
	f := setupWorker(t)

	// Start is idempotent
	require.NoError(t, f.worker.Start())

	require.NoError(t, f.worker.Stop())
	require.NoError(t, f.worker.Stop())

	// the subject is free again once stopped
	require.NoError(t, f.queue.Subscribe("forecast.requests", func(ctx context.Context, data []byte) error { return nil }))
}
