// Package bench drives synthetic workloads through a threadpool.Pool. It
// backs the threadpool-bench command.
package bench
