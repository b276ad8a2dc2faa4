package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned by Submit when the job queue is at capacity.
var ErrQueueFull = errors.New("job queue is full, try again later")

const cleanupInterval = 5 * time.Minute

// Orchestrator owns the job queue, the worker pool and job state.
type Orchestrator struct {
	worker *Worker
	store  *JobStore
	queue  chan *Job
	log    *slog.Logger

	workerCount int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(worker *Worker, workerCount, queueSize int, jobTTL time.Duration, log *slog.Logger) *Orchestrator {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Orchestrator{
		worker:      worker,
		store:       NewJobStore(jobTTL),
		queue:       make(chan *Job, queueSize),
		log:         log,
		workerCount: workerCount,
	}
}

// Start launches the worker pool and the job store cleanup loop.
func (o *Orchestrator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	for i := 0; i < o.workerCount; i++ {
		o.wg.Add(1)
		go o.workerLoop(ctx, i)
	}

	o.wg.Add(1)
	go o.cleanupLoop(ctx)

	o.log.Info("pipeline started", "workers", o.workerCount, "queue_size", cap(o.queue))
}

func (o *Orchestrator) workerLoop(ctx context.Context, id int) {
	defer o.wg.Done()
	log := o.log.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-o.queue:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error("worker panic", "job_id", job.ID, "panic", r)
						job.AddError("internal error while processing job")
						job.SetStatus(StatusFailed, "failed")
					}
				}()
				o.worker.Process(ctx, job)
			}()
		}
	}
}

func (o *Orchestrator) cleanupLoop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.store.Cleanup()
		}
	}
}

// Submit enqueues a new job and returns it, or ErrQueueFull.
func (o *Orchestrator) Submit(req Request) (*Job, error) {
	job := NewJob(req)

	select {
	case o.queue <- job:
		o.store.Put(job)
		return job, nil
	default:
		return nil, ErrQueueFull
	}
}

// GetJob returns the job with the given ID, or nil.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.store.Get(id)
}

// Stop cancels workers and waits for in-flight jobs to wind down.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.log.Info("pipeline stopped")
}
