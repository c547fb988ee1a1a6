package threadpool

import (
	"log/slog"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(q *dispatchQueue, policy PanicPolicy) *Pool {
	return &Pool{
		logger:      slog.New(discardHandler{}),
		name:        "test",
		panicPolicy: policy,
		queue:       q,
	}
}

func startWorker(w *worker) {
	ready := sync.WaitGroup{}
	ready.Add(1)
	w.start(&ready)
	ready.Wait()
}

func TestWorker(t *testing.T) {
	t.Run("exits on shutdown", func(t *testing.T) {
		q := newDispatchQueue()
		p := testPool(q, PanicPolicyContinue)
		w := newWorker(0, p)
		startWorker(w)
		require.Equal(t, 1, p.Live())

		ran := 0
		require.NoError(t, q.send(jobMessage(func() { ran++ })))
		require.NoError(t, q.send(shutdownMessage()))

		require.NoError(t, w.join())
		assert.Equal(t, 1, ran)
		assert.Zero(t, p.Live())
	})

	t.Run("second join is rejected", func(t *testing.T) {
		q := newDispatchQueue()
		w := newWorker(3, testPool(q, PanicPolicyContinue))
		startWorker(w)
		require.NoError(t, q.send(shutdownMessage()))

		require.NoError(t, w.join())
		err := w.join()
		ErrorIs(ErrWorkerJoined)(t, err)
		ErrorStringContains("worker 3")(t, err)
	})

	t.Run("sealed queue without shutdown signal", func(t *testing.T) {
		q := newDispatchQueue()
		w := newWorker(0, testPool(q, PanicPolicyContinue))
		startWorker(w)
		q.seal(0, false)

		ErrorIs(ErrChannelClosed)(t, w.join())
	})

	t.Run("panic with continue policy", func(t *testing.T) {
		q := newDispatchQueue()
		w := newWorker(0, testPool(q, PanicPolicyContinue))
		startWorker(w)

		ran := false
		require.NoError(t, q.send(jobMessage(func() { panic("boom") })))
		require.NoError(t, q.send(jobMessage(func() { ran = true })))
		require.NoError(t, q.send(shutdownMessage()))

		require.NoError(t, w.join())
		assert.True(t, ran)
	})

	t.Run("goexit with continue policy", func(t *testing.T) {
		q := newDispatchQueue()
		p := testPool(q, PanicPolicyContinue)
		w := newWorker(0, p)
		startWorker(w)

		ran := false
		require.NoError(t, q.send(jobMessage(func() { runtime.Goexit() })))
		require.NoError(t, q.send(jobMessage(func() { ran = true })))
		require.NoError(t, q.send(shutdownMessage()))

		require.NoError(t, w.join())
		assert.True(t, ran)
		assert.Zero(t, p.Live())
	})

	t.Run("goexit with exit policy", func(t *testing.T) {
		q := newDispatchQueue()
		p := testPool(q, PanicPolicyExit)
		w := newWorker(1, p)
		startWorker(w)

		require.NoError(t, q.send(jobMessage(func() { runtime.Goexit() })))

		ErrorOfType(func(t require.TestingT, e *JobPanicError) {
			assert.Equal(t, 1, e.WorkerID)
			assert.True(t, e.Goexit)
		})(t, w.join())
		assert.Zero(t, p.Live())
	})

	t.Run("panic with exit policy", func(t *testing.T) {
		q := newDispatchQueue()
		w := newWorker(2, testPool(q, PanicPolicyExit))
		startWorker(w)

		require.NoError(t, q.send(jobMessage(func() { panic("boom") })))

		err := w.join()
		ErrorOfType(func(t require.TestingT, e *JobPanicError) {
			assert.Equal(t, 2, e.WorkerID)
			assert.Equal(t, "boom", e.Value)
			assert.NotEmpty(t, e.Stack)
		})(t, err)

		// nothing consumed the rest of the queue.
		require.NoError(t, q.send(shutdownMessage()))
		assert.Equal(t, 1, q.len())
	})
}
