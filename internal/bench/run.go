package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ifnotnil/threadpool"
)

// Result summarises a finished workload.
type Result struct {
	Submitted int64
	Rejected  int64
	Executed  int64
	Panicked  int64
	Elapsed   time.Duration
}

func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("submitted", r.Submitted),
		slog.Int64("rejected", r.Rejected),
		slog.Int64("executed", r.Executed),
		slog.Int64("panicked", r.Panicked),
		slog.Duration("elapsed", r.Elapsed),
	)
}

// Run pushes cfg.Jobs jobs through a fresh pool from cfg.Senders goroutines
// and closes the pool. Cancelling ctx stops further submissions; jobs
// already accepted still run according to the shutdown mode. The returned
// error is the pool's teardown error.
func Run(ctx context.Context, cfg Config, logger *slog.Logger, metrics *threadpool.Metrics) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	opts := cfg.PoolOptions(logger)
	if metrics != nil {
		opts = append(opts, threadpool.WithMetrics(metrics))
	}

	pool, err := threadpool.New(cfg.Workers, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("failed to start pool: %w", err)
	}

	var (
		res      Result
		seq      atomic.Int64
		executed atomic.Int64
		panicked atomic.Int64
		rejected atomic.Int64
	)

	job := func(n int64) threadpool.Job {
		return func() {
			if cfg.JobDuration > 0 {
				time.Sleep(cfg.JobDuration)
			}
			if cfg.PanicEvery > 0 && n%int64(cfg.PanicEvery) == 0 {
				panicked.Add(1)
				panic(fmt.Sprintf("synthetic failure in job %d", n))
			}
			executed.Add(1)
		}
	}

	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(cfg.Senders)
	for range cfg.Senders {
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				n := seq.Add(1)
				if n > int64(cfg.Jobs) {
					return
				}
				if err := pool.TrySubmit(job(n)); err != nil {
					rejected.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	closeErr := pool.Close()

	res.Submitted = min(seq.Load(), int64(cfg.Jobs)) - rejected.Load()
	res.Rejected = rejected.Load()
	res.Executed = executed.Load()
	res.Panicked = panicked.Load()
	res.Elapsed = time.Since(start)

	if closeErr != nil {
		return res, fmt.Errorf("pool teardown: %w", closeErr)
	}
	return res, nil
}
