package downloader

import (
	"context"
	"fmt"
	"sync"

	"notefetch/pkg/logger"
	"notefetch/pkg/notestore"
)

// MaxWorkers is the upper bound on concurrent persist workers
const MaxWorkers = 10

// WorkerPool runs Persister jobs for one session. With a single worker,
// outcomes arrive in submission order.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Outcome
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	persister   *Persister
	session     notestore.Session
	logger      logger.Logger
	stopOnce    sync.Once
}

// NewWorkerPool creates a pool bound to ctx; cancelling ctx makes workers
// drop queued jobs that have not started yet
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	persister *Persister,
	session notestore.Session,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > MaxWorkers {
		numWorkers = MaxWorkers
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Outcome, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		persister:   persister,
		session:     session,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart(wp.logger, "worker_pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for the workers and closes Results.
// Results must be drained concurrently or Stop will block.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
		logger.LogComponentStop(wp.logger, "worker_pool", "job queue drained")
	})
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"resource_guid": job.Resource.GUID,
			"notebook":      job.NotebookName,
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the channel of outcomes; it is closed by Stop
func (wp *WorkerPool) Results() <-chan Outcome {
	return wp.resultQueue
}

// NumWorkers returns the number of workers
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			wp.logger.DebugWithFields("Dropping job - context cancelled", map[string]interface{}{
				"worker_id":     id,
				"resource_guid": job.Resource.GUID,
			})
			continue
		}

		wp.resultQueue <- wp.persister.Persist(wp.ctx, wp.session, job)
	}
}
