package Metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the workflow collectors and the registry they are served from
type Metrics struct {
	Registry *prometheus.Registry

	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the workflow collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskmanager",
			Name:      "task_status_transitions_total",
			Help:      "Task status writes by resulting status",
		}, []string{"status"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskmanager",
			Name:      "workflow_rejections_total",
			Help:      "Workflow operations rejected, by operation and error kind",
		}, []string{"op", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskmanager",
			Name:      "workflow_operation_duration_seconds",
			Help:      "Workflow operation latency including the transaction",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"op"}),
	}
}

// Transition counts a status write. Safe on a nil receiver.
func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// Rejected counts an operation that returned an error of the given kind
func (m *Metrics) Rejected(op, kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op, kind).Inc()
}

// Observe records how long op took
func (m *Metrics) Observe(op string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
