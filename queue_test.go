package threadpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchQueue(t *testing.T) {
	t.Run("fifo", func(t *testing.T) {
		q := newDispatchQueue()
		got := make([]int, 0, 5)
		for i := range 5 {
			require.NoError(t, q.send(jobMessage(func() { got = append(got, i) })))
		}
		for range 5 {
			msg, err := q.receive()
			require.NoError(t, err)
			require.Equal(t, messageJob, msg.kind)
			msg.job()
		}
		assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	})

	t.Run("receive blocks until send", func(t *testing.T) {
		q := newDispatchQueue()
		received := make(chan message)
		go func() {
			msg, err := q.receive()
			assert.NoError(t, err)
			received <- msg
		}()

		select {
		case <-received:
			t.Fatal("receive returned on an empty queue")
		case <-time.After(50 * time.Millisecond):
		}

		require.NoError(t, q.send(shutdownMessage()))
		msg := <-received
		assert.Equal(t, messageShutdown, msg.kind)
	})

	t.Run("seal at tail", func(t *testing.T) {
		q := newDispatchQueue()
		require.NoError(t, q.send(jobMessage(func() {})))
		q.seal(2, false)

		kinds := drainKinds(t, q, 3)
		assert.Equal(t, []messageKind{messageJob, messageShutdown, messageShutdown}, kinds)
	})

	t.Run("seal at head", func(t *testing.T) {
		q := newDispatchQueue()
		require.NoError(t, q.send(jobMessage(func() {})))
		q.seal(2, true)

		kinds := drainKinds(t, q, 3)
		assert.Equal(t, []messageKind{messageShutdown, messageShutdown, messageJob}, kinds)
	})

	t.Run("send after seal", func(t *testing.T) {
		q := newDispatchQueue()
		q.seal(0, false)
		err := q.send(jobMessage(func() {}))
		ErrorIs(ErrPoolClosed)(t, err)
	})

	t.Run("receive on sealed empty queue", func(t *testing.T) {
		q := newDispatchQueue()
		q.seal(0, false)
		_, err := q.receive()
		ErrorIs(ErrChannelClosed)(t, err)
	})

	t.Run("seal wakes blocked receivers", func(t *testing.T) {
		q := newDispatchQueue()
		errs := make(chan error, 1)
		go func() {
			_, err := q.receive()
			errs <- err
		}()
		time.Sleep(20 * time.Millisecond)
		q.seal(0, false)
		ErrorIs(ErrChannelClosed)(t, <-errs)
	})

	t.Run("discard counts jobs only", func(t *testing.T) {
		q := newDispatchQueue()
		for range 3 {
			require.NoError(t, q.send(jobMessage(func() {})))
		}
		q.seal(2, true)
		require.Equal(t, 5, q.len())
		assert.Equal(t, 3, q.discard())
		assert.Zero(t, q.len())
	})
}

func TestMessageKindString(t *testing.T) {
	assert.Equal(t, "job", messageJob.String())
	assert.Equal(t, "shutdown", messageShutdown.String())
	assert.Equal(t, "unknown", messageKind(9).String())
}

func drainKinds(t *testing.T, q *dispatchQueue, n int) []messageKind {
	t.Helper()
	kinds := make([]messageKind, 0, n)
	for range n {
		msg, err := q.receive()
		require.NoError(t, err)
		kinds = append(kinds, msg.kind)
	}
	return kinds
}
