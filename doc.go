// Package threadpool implements a fixed-size pool of worker goroutines.
//
// A Pool owns N workers and one unbounded dispatch queue. Jobs are
// submitted fire-and-forget; each job is executed exactly once by whichever
// idle worker dequeues it. Close sends one shutdown signal per worker and
// blocks until every worker goroutine has exited.
package threadpool
