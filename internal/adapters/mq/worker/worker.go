// Package worker runs release windows through a processor with a fixed
// number of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/revstat/internal/adapters/mq/queue"
	"github.com/okian/revstat/pkg/logger"
	"github.com/okian/revstat/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor handles one window end to end. Implementations must be safe for
// concurrent use across windows.
type Processor interface {
	ProcessWindow(ctx context.Context, j queue.Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, j queue.Job) error

// ProcessWindow calls f.
func (f ProcessorFunc) ProcessWindow(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: Job passed by value
	return f(ctx, j)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// InMemoryWorker processes windows from a queue one at a time.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run consumes jobs until the queue drains, ctx is canceled or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "window failed",
					logger.String("source", j.Source),
					logger.String("producer", j.Window.Producer),
					logger.String("release", j.Window.Release),
					logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current window. It may be called
// more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: Job passed by value
	start := time.Now()
	err := w.processor.ProcessWindow(ctx, j)
	metrics.RecordWindowLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordWindowProcessed("error")
		return fmt.Errorf("window %s/%s: %w", j.Window.Producer, j.Window.Release, err)
	}
	metrics.RecordWindowProcessed("ok")
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, p Processor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, p, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait closes the queue and blocks until every pending window is processed
// or ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	p.closeQueue(ctx)
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for workers: %w", ctx.Err())
		}
	}
	return nil
}

// Shutdown stops all workers after their current window and waits for
// them. Pending windows are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeQueue(ctx)
	for _, w := range p.workers {
		w.stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("worker %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) closeQueue(ctx context.Context) {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
}
