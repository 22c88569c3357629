// Package worker runs queued partition jobs in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/groupify/groupify/internal/adapters/mq/queue"
	"github.com/groupify/groupify/internal/domain/grouping"
	"github.com/groupify/groupify/pkg/logger"
	"github.com/groupify/groupify/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Job is what workers read off the queue.
type Job = queue.Job

// Partitioner builds and stores the groups for a job, returning their ids.
type Partitioner interface {
	Partition(ctx context.Context, job Job) ([]string, error)
}

// Reporter receives job state transitions.
type Reporter interface {
	Running(ctx context.Context, jobID string)
	Complete(ctx context.Context, jobID string, groupIDs []string, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, the queue closes or
	// Shutdown is called.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on a channel-backed queue.
type InMemoryWorker struct {
	queue       Queue
	partitioner Partitioner
	reporter    Reporter
	name        string
	active      *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, partitioner Partitioner, reporter Reporter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		partitioner: partitioner,
		reporter:    reporter,
		name:        "worker",
		active:      new(atomic.Int64),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	w.reporter.Running(ctx, job.ID)
	groupIDs, err := w.run(ctx, job)
	switch {
	case err == nil:
	case rejectedInput(err):
		metrics.RecordErrorByComponent("worker", "rejected_input")
		w.logger.Warn(ctx, "partition job rejected",
			logger.String("jobID", job.ID),
			logger.String("roomID", job.RoomID),
			logger.Error(err),
		)
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "partition_error")
		w.logger.Error(ctx, "partition job failed",
			logger.String("jobID", job.ID),
			logger.String("roomID", job.RoomID),
			logger.Error(err),
		)
	}
	w.reporter.Complete(ctx, job.ID, groupIDs, err)
}

// rejectedInput reports whether err comes from the caller's roster or group
// size rather than from the worker or the store.
func rejectedInput(err error) bool {
	return errors.Is(err, grouping.ErrInvalidGroupSize) ||
		errors.Is(err, grouping.ErrInsufficientMembers) ||
		errors.Is(err, grouping.ErrMissingProfile) ||
		errors.Is(err, grouping.ErrAlreadyPartitioned)
}

// run calls the partitioner, turning a panic into an error so the job is
// still reported.
func (w *InMemoryWorker) run(ctx context.Context, job Job) (ids []string, err error) { //nolint:gocritic // hugeParam
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("partition panicked: %v", r)
		}
	}()
	return w.partitioner.Partition(ctx, job)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount uses one
// worker per CPU. opts apply to every worker; each keeps its own name.
func NewPool(workerCount int, queue Queue, partitioner Partitioner, reporter Reporter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	active := new(atomic.Int64)
	for i := range workerCount {
		workerOpts := append(opts[:len(opts):len(opts)], WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(queue, partitioner, reporter, workerOpts...)
		w.active = active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker to stop after its current job and waits for them.
// Jobs still queued are not run.
func (p *Pool) Stop(ctx context.Context) {
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker stop timed out", logger.Int("worker_id", i))
		}
	}
}

// Shutdown closes the queue and lets the workers drain it before returning.
// Workers still busy when ctx (or the pool timeout) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
		}
		if timedOut {
			break
		}
	}
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	metrics.UpdateWorkerCount(0)

	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
