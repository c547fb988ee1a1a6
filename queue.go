package threadpool

import (
	"sync"
)

// dispatchQueue is an unbounded FIFO shared by every worker of a pool.
// Sends never block. A receiver holds the mutex only while taking a single
// message, so idle workers compete for the next one while others execute.
type dispatchQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []message
	sealed bool
}

func newDispatchQueue() *dispatchQueue {
	q := &dispatchQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *dispatchQueue) send(msg message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return ErrPoolClosed
	}

	q.items = append(q.items, msg)
	q.cond.Signal()

	return nil
}

func (q *dispatchQueue) receive() (message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.sealed {
			return message{}, ErrChannelClosed
		}
		q.cond.Wait()
	}

	msg := q.items[0]
	q.items[0] = message{} // release the job closure.
	q.items = q.items[1:]

	return msg, nil
}

// seal stops accepting sends and enqueues n shutdown signals in the same
// critical section, so no job can land behind them. With front set the
// signals are placed ahead of every queued job.
func (q *dispatchQueue) seal(n int, front bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sealed = true

	signals := make([]message, n)
	for i := range signals {
		signals[i] = shutdownMessage()
	}

	if front {
		q.items = append(signals, q.items...)
	} else {
		q.items = append(q.items, signals...)
	}

	q.cond.Broadcast()
}

// discard drops whatever is left and reports how many jobs were abandoned.
func (q *dispatchQueue) discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := 0
	for _, m := range q.items {
		if m.kind == messageJob {
			jobs++
		}
	}
	q.items = nil

	return jobs
}

func (q *dispatchQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
