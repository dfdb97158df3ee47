package service

import (
	"context"
	"sync"

	"github.com/bnema/videofactory/internal/infrastructure/logger"
)

// Processor is the part of Pipeline the worker pool needs.
type Processor interface {
	ProcessByID(ctx context.Context, id string, observer ProgressFunc) error
}

// WorkerPool processes several jobs concurrently, one pipeline run per job.
// Stages of a single job still run sequentially.
type WorkerPool struct {
	pipeline Processor
	events   *EventBus
	workers  int
}

func NewWorkerPool(pipeline Processor, events *EventBus, workers int) *WorkerPool {
	return &WorkerPool{
		pipeline: pipeline,
		events:   events,
		workers:  max(workers, 1),
	}
}

// Run processes ids and returns the error of each job that failed.
func (wp *WorkerPool) Run(ctx context.Context, ids []string) map[string]error {
	queue := make(chan string)
	var (
		mu     sync.Mutex
		failed = make(map[string]error)
		wg     sync.WaitGroup
	)

	for i, n := 0, min(wp.workers, len(ids)); i < n; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for id := range queue {
				logger.Info.Printf("worker %d: processing job %s", worker, id)
				var observer ProgressFunc
				if wp.events != nil {
					observer = wp.events.Observer(id)
				}
				if err := wp.pipeline.ProcessByID(ctx, id, observer); err != nil {
					mu.Lock()
					failed[id] = err
					mu.Unlock()
				}
			}
		}(i)
	}

	for _, id := range ids {
		queue <- id
	}
	close(queue)
	wg.Wait()

	logger.Info.Printf("processed %d jobs, %d failed", len(ids), len(failed))
	return failed
}
