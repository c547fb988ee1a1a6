package threadpool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"
)

type worker struct {
	id   int
	pool *Pool

	// done is the worker handle: closed when its last goroutine exits and
	// taken out by the first join.
	handleMu sync.Mutex
	done     chan struct{}

	// exitErr is written by the goroutine before done is closed.
	exitErr error
}

func newWorker(id int, p *Pool) *worker {
	return &worker{
		id:   id,
		pool: p,
		done: make(chan struct{}),
	}
}

// start launches the goroutine and signals ready once it is running.
func (w *worker) start(ready *sync.WaitGroup) {
	w.pool.live.Add(1)
	w.pool.metrics.workerUp()
	go w.run(w.done, ready.Done)
}

// run is the body of one worker goroutine. If a job ends the goroutine with
// runtime.Goexit, the deferred func either hands the worker over to a fresh
// goroutine (PanicPolicyContinue) or lets it exit with the recorded fault.
func (w *worker) run(done chan struct{}, ready func()) {
	returned := false
	defer func() {
		if !returned && w.pool.panicPolicy == PanicPolicyContinue {
			w.exitErr = nil
			w.pool.logger.Debug("worker respawned", slog.Int("worker_id", w.id))
			go w.run(done, nil)
			return
		}
		w.pool.live.Add(-1)
		w.pool.metrics.workerDown()
		close(done)
	}()

	labels := pprof.Labels("pool", w.pool.name, "worker", strconv.Itoa(w.id))
	pprof.Do(context.Background(), labels, func(context.Context) {
		if ready != nil {
			w.pool.logger.Debug("worker spawned", slog.Int("worker_id", w.id))
			ready()
		}
		w.exitErr = w.loop()
	})
	returned = true
}

func (w *worker) loop() error {
	for {
		msg, err := w.pool.queue.receive()
		if err != nil {
			w.pool.logger.Error("worker lost its dispatch queue", slog.Int("worker_id", w.id), slog.Any("error", err))
			return fmt.Errorf("worker %d: %w", w.id, err)
		}

		switch msg.kind {
		case messageShutdown:
			w.pool.logger.Debug("worker received shutdown", slog.Int("worker_id", w.id))
			return nil
		case messageJob:
			w.pool.logger.Debug("worker received job", slog.Int("worker_id", w.id))
			w.pool.metrics.dequeued()
			if perr := w.execute(msg.job); perr != nil && w.pool.panicPolicy == PanicPolicyExit {
				return perr
			}
		}
	}
}

// execute runs job to completion, turning a panic into a *JobPanicError.
// A job that calls runtime.Goexit cannot be stopped from unwinding the
// goroutine; it is reported the same way and stored as the exit error.
func (w *worker) execute(job Job) (perr *JobPanicError) {
	start := time.Now()
	returned := false

	defer func() {
		r := recover()
		switch {
		case r != nil:
			perr = &JobPanicError{WorkerID: w.id, Value: r, Stack: debug.Stack()}
			w.pool.logger.Error("job panicked",
				slog.Int("worker_id", w.id),
				slog.Any("panic", r),
				slog.String("policy", w.pool.panicPolicy.String()),
				slog.String("stack", string(perr.Stack)),
			)
		case !returned:
			perr = &JobPanicError{WorkerID: w.id, Goexit: true, Stack: debug.Stack()}
			w.exitErr = perr
			w.pool.logger.Error("job exited its goroutine",
				slog.Int("worker_id", w.id),
				slog.String("policy", w.pool.panicPolicy.String()),
				slog.String("stack", string(perr.Stack)),
			)
		}
		w.pool.metrics.finished(time.Since(start), perr != nil)
	}()

	job()
	returned = true

	return nil
}

// join blocks until the goroutine has exited and returns its exit error.
// The handle is consumed, so a second join reports ErrWorkerJoined.
func (w *worker) join() error {
	w.handleMu.Lock()
	done := w.done
	w.done = nil
	w.handleMu.Unlock()

	if done == nil {
		return fmt.Errorf("worker %d: %w", w.id, ErrWorkerJoined)
	}

	<-done

	return w.exitErr
}
