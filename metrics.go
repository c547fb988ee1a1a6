package threadpool

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors a pool reports to. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsDropped   prometheus.Counter
	LiveWorkers   prometheus.Gauge
	QueueDepth    prometheus.Gauge
	JobDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered. A collector that is already registered is
// reused, so pools sharing a namespace and subsystem share series.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs accepted by the pool",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that returned normally",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that panicked or exited their goroutine",
		}),
		JobsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_dropped_total",
			Help:      "Total number of jobs rejected or abandoned during shutdown",
		}),
		LiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers_live",
			Help:      "Current number of running workers",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Current number of queued messages",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg == nil {
		return m, nil
	}

	m.JobsSubmitted = register(reg, m.JobsSubmitted)
	m.JobsCompleted = register(reg, m.JobsCompleted)
	m.JobsFailed = register(reg, m.JobsFailed)
	m.JobsDropped = register(reg, m.JobsDropped)
	m.LiveWorkers = register(reg, m.LiveWorkers)
	m.QueueDepth = register(reg, m.QueueDepth)
	m.JobDuration = register(reg, m.JobDuration)

	for _, c := range []prometheus.Collector{
		m.JobsSubmitted, m.JobsCompleted, m.JobsFailed, m.JobsDropped,
		m.LiveWorkers, m.QueueDepth, m.JobDuration,
	} {
		if c == nil {
			return nil, fmt.Errorf("registering pool metrics %s_%s: %w", namespace, subsystem, errMetricsConflict)
		}
	}

	return m, nil
}

var errMetricsConflict = errors.New("collector registered with a different type")

// register returns the collector that ends up registered, or the zero value
// if reg holds an incompatible collector under the same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}

	var zero C
	return zero
}

// enqueuing is recorded before the send so the gauge never goes negative.
// rejected undoes it when the send fails.
func (m *Metrics) enqueuing() {
	if m != nil {
		m.QueueDepth.Inc()
	}
}

func (m *Metrics) accepted() {
	if m != nil {
		m.JobsSubmitted.Inc()
	}
}

func (m *Metrics) rejected() {
	if m != nil {
		m.QueueDepth.Dec()
		m.JobsDropped.Inc()
	}
}

func (m *Metrics) dequeued() {
	if m != nil {
		m.QueueDepth.Dec()
	}
}

func (m *Metrics) finished(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.JobDuration.Observe(d.Seconds())
	if failed {
		m.JobsFailed.Inc()
	} else {
		m.JobsCompleted.Inc()
	}
}

// abandoned removes jobs left in one pool's queue at teardown. The gauge
// may be shared with other pools, so only this pool's share is subtracted.
func (m *Metrics) abandoned(n int) {
	if m != nil && n > 0 {
		m.JobsDropped.Add(float64(n))
		m.QueueDepth.Sub(float64(n))
	}
}

func (m *Metrics) workerUp() {
	if m != nil {
		m.LiveWorkers.Inc()
	}
}

func (m *Metrics) workerDown() {
	if m != nil {
		m.LiveWorkers.Dec()
	}
}
