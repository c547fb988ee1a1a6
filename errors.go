package threadpool

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPoolSize = errors.New("worker pool size must be at least 1")
	ErrPoolClosed      = errors.New("worker pool is closed")
	ErrChannelClosed   = errors.New("dispatch queue closed before shutdown signal was received")
	ErrWorkerJoined    = errors.New("worker already joined")
	ErrNilJob          = errors.New("nil job")
)

// JobPanicError is reported by Close for a worker that exited because a job
// panicked, or called runtime.Goexit, under PanicPolicyExit.
type JobPanicError struct {
	WorkerID int
	Value    any
	// Goexit is set when the job ended its goroutine with runtime.Goexit
	// instead of panicking. Value is nil then.
	Goexit bool
	Stack  []byte
}

func (e *JobPanicError) Error() string {
	if e.Goexit {
		return fmt.Sprintf("worker %d: job called runtime.Goexit", e.WorkerID)
	}
	return fmt.Sprintf("worker %d: job panicked: %v", e.WorkerID, e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *JobPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
