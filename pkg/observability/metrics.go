package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/openportal/pkg/domain"
)

const (
	namespace = "openportal"
	subsystem = "action"

	statusCancelled = "cancelled"
)

// Metrics holds the Prometheus collectors for action execution.
type Metrics struct {
	nodes         *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "nodes_total",
			Help:      "Executed action nodes by kind and terminal status.",
		}, []string{"kind", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failures_total",
			Help:      "Failed action nodes by kind and error kind. Cancellations are not failures.",
		}, []string{"kind", "error_kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Time spent executing action nodes, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"kind"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retries_total",
			Help:      "Retry attempts scheduled by kind.",
		}, []string{"kind"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cancellations_total",
			Help:      "Nodes stopped by cancellation, by kind.",
		}, []string{"kind"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "loading_nodes",
			Help:      "Nodes flagged as loading that are currently executing.",
		}),
	}

	for _, c := range []prometheus.Collector{m.nodes, m.failures, m.duration, m.retries, m.cancellations, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeStart:  m.nodeStart,
		OnNodeFinish: m.nodeFinish,
		OnRetry:      m.retry,
		OnCancelled:  m.cancelled,
	}
}

func (m *Metrics) nodeStart(_ context.Context, ev *domain.NodeEvent) {
	if ev.Loading {
		m.inFlight.Inc()
	}
}

func (m *Metrics) nodeFinish(_ context.Context, ev *domain.NodeEvent) {
	started := ev.Attempt > 0
	if ev.Loading && started {
		m.inFlight.Dec()
	}

	status := string(ev.Status)
	if ev.ErrorKind == domain.ErrorKindCancelled {
		status = statusCancelled
	}
	m.nodes.WithLabelValues(ev.Kind, status).Inc()

	if ev.Status == domain.StatusError && ev.ErrorKind != domain.ErrorKindCancelled {
		m.failures.WithLabelValues(ev.Kind, string(ev.ErrorKind)).Inc()
	}
	if started {
		m.duration.WithLabelValues(ev.Kind).Observe(ev.Duration.Seconds())
	}
}

func (m *Metrics) retry(_ context.Context, ev *domain.NodeEvent) {
	m.retries.WithLabelValues(ev.Kind).Inc()
}

func (m *Metrics) cancelled(_ context.Context, ev *domain.NodeEvent) {
	m.cancellations.WithLabelValues(ev.Kind).Inc()
}
