package threadpool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PanicPolicy decides what a worker does when a job panics.
type PanicPolicy uint8

const (
	// PanicPolicyContinue recovers the panic, logs it and keeps the worker
	// serving jobs.
	PanicPolicyContinue PanicPolicy = iota
	// PanicPolicyExit recovers the panic, logs it and terminates the worker.
	// The pool runs with one fewer worker from then on and Close reports
	// the fault.
	PanicPolicyExit
)

func (p PanicPolicy) String() string {
	switch p {
	case PanicPolicyContinue:
		return "continue"
	case PanicPolicyExit:
		return "exit"
	default:
		return fmt.Sprintf("PanicPolicy(%d)", uint8(p))
	}
}

// ParsePanicPolicy is the inverse of PanicPolicy.String.
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch strings.ToLower(s) {
	case "continue", "":
		return PanicPolicyContinue, nil
	case "exit":
		return PanicPolicyExit, nil
	default:
		return 0, fmt.Errorf("unknown panic policy %q", s)
	}
}

// ShutdownMode decides what happens to jobs still queued when Close is called.
type ShutdownMode uint8

const (
	// ShutdownModeDrain queues the shutdown signals behind every accepted
	// job, so each job accepted before Close runs.
	ShutdownModeDrain ShutdownMode = iota
	// ShutdownModeImmediate puts the shutdown signals ahead of queued jobs.
	// Workers finish their current job and exit; queued jobs are dropped.
	ShutdownModeImmediate
)

func (m ShutdownMode) String() string {
	switch m {
	case ShutdownModeDrain:
		return "drain"
	case ShutdownModeImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("ShutdownMode(%d)", uint8(m))
	}
}

// ParseShutdownMode is the inverse of ShutdownMode.String.
func ParseShutdownMode(s string) (ShutdownMode, error) {
	switch strings.ToLower(s) {
	case "drain", "":
		return ShutdownModeDrain, nil
	case "immediate":
		return ShutdownModeImmediate, nil
	default:
		return 0, fmt.Errorf("unknown shutdown mode %q", s)
	}
}

type config struct {
	logger       *slog.Logger
	name         string
	panicPolicy  PanicPolicy
	shutdownMode ShutdownMode
	metrics      *Metrics
}

func defaultConfig() config {
	return config{
		logger:       slog.New(discardHandler{}),
		name:         "threadpool",
		panicPolicy:  PanicPolicyContinue,
		shutdownMode: ShutdownModeDrain,
	}
}

type Option func(*config)

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithName sets the pool name used in log attributes and goroutine labels.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

func WithPanicPolicy(p PanicPolicy) Option {
	return func(c *config) { c.panicPolicy = p }
}

func WithShutdownMode(m ShutdownMode) Option {
	return func(c *config) { c.shutdownMode = m }
}

func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
