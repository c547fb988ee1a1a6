package threadpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of workers fed by one dispatch queue.
type Pool struct {
	logger       *slog.Logger
	name         string
	panicPolicy  PanicPolicy
	shutdownMode ShutdownMode
	metrics      *Metrics

	queue   *dispatchQueue
	workers []*worker
	live    atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// New starts a pool of size workers. It returns once every worker is
// running and waiting for work. A size below 1 fails with
// ErrInvalidPoolSize and starts nothing.
func New(size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPoolSize, size)
	}

	c := defaultConfig()
	for _, o := range opts {
		o(&c)
	}

	p := &Pool{
		logger:       c.logger.With(slog.String("pool", c.name)),
		name:         c.name,
		panicPolicy:  c.panicPolicy,
		shutdownMode: c.shutdownMode,
		metrics:      c.metrics,
		queue:        newDispatchQueue(),
		workers:      make([]*worker, size),
	}

	ready := sync.WaitGroup{}
	ready.Add(size)
	for i := range size {
		p.workers[i] = newWorker(i, p)
		p.workers[i].start(&ready)
	}
	ready.Wait()

	p.logger.Info("worker pool started",
		slog.Int("workers_count", size),
		slog.String("panic_policy", p.panicPolicy.String()),
		slog.String("shutdown_mode", p.shutdownMode.String()),
	)

	return p, nil
}

// MustNew is like New but panics on an invalid size.
func MustNew(size int, opts ...Option) *Pool {
	p, err := New(size, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Submit queues job for execution and returns immediately. Nothing about
// the job's outcome is reported back. Jobs submitted once Close has begun
// are dropped.
func (p *Pool) Submit(job Job) {
	if err := p.TrySubmit(job); err != nil {
		p.logger.Debug("job dropped", slog.Any("error", err))
	}
}

// TrySubmit is Submit that reports why a job was not accepted.
func (p *Pool) TrySubmit(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	p.metrics.enqueuing()
	if err := p.queue.send(jobMessage(job)); err != nil {
		p.metrics.rejected()
		return err
	}
	p.metrics.accepted()

	return nil
}

// Close shuts the pool down: one shutdown signal per worker, then a join of
// every worker in id order. It blocks until all workers have exited and is
// safe to call more than once; later calls wait for and return the result
// of the first.
//
// The returned error joins the exit errors of workers that did not stop on
// a shutdown signal, such as a *JobPanicError under PanicPolicyExit.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() { p.closeErr = p.teardown() })
	return p.closeErr
}

func (p *Pool) teardown() error {
	p.logger.Info("worker pool shutting down", slog.Int("pending", p.queue.len()))

	p.queue.seal(len(p.workers), p.shutdownMode == ShutdownModeImmediate)

	var errs []error
	for _, w := range p.workers {
		err := w.join()
		if err != nil {
			errs = append(errs, err)
		}
		p.logger.Debug("worker joined", slog.Int("worker_id", w.id), slog.Any("error", err))
	}

	if abandoned := p.queue.discard(); abandoned > 0 {
		p.metrics.abandoned(abandoned)
		p.logger.Info("queued jobs abandoned", slog.Int("count", abandoned))
	}

	err := errors.Join(errs...)
	p.logger.Info("worker pool shutdown completed", slog.Any("error", err))

	return err
}

// Size is the number of workers the pool was created with.
func (p *Pool) Size() int { return len(p.workers) }

// Live is the number of worker goroutines currently running.
func (p *Pool) Live() int { return int(p.live.Load()) }

// Pending is the number of queued messages not yet taken by a worker.
func (p *Pool) Pending() int { return p.queue.len() }
