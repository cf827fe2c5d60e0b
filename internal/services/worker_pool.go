package services

import (
	"context"
	"sync"
	"sync/atomic"
)

// WorkerPool bounds how many independent tasks run at once.
// Tasks share nothing, so the pool only limits concurrency and tracks stats.
type WorkerPool struct {
	semaphore chan struct{}

	totalProcessed atomic.Int64
	totalSkipped   atomic.Int64
}

// NewWorkerPool creates a pool running at most size tasks concurrently
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{semaphore: make(chan struct{}, size)}
}

// Size returns the concurrency limit
func (p *WorkerPool) Size() int {
	return cap(p.semaphore)
}

// Run calls task(ctx, i) for every i in [0, n) and waits for all started tasks.
// Once ctx is done no further tasks start and ctx.Err() is returned.
func (p *WorkerPool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case p.semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			p.totalSkipped.Add(int64(n - i))
			return ctx.Err()
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-p.semaphore }()
			task(ctx, i)
			p.totalProcessed.Add(1)
		}(i)
	}

	wg.Wait()
	return ctx.Err()
}

// Stats returns pool statistics
func (p *WorkerPool) Stats() map[string]interface{} {
	return map[string]interface{}{
		"max_active_workers": cap(p.semaphore),
		"active_workers":     len(p.semaphore),
		"total_processed":    p.totalProcessed.Load(),
		"total_skipped":      p.totalSkipped.Load(),
	}
}
