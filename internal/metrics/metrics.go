// Package metrics holds the Prometheus collectors of the plugin process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "canopy_plugin"

// Request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeUnsupported = "unsupported"
)

// Metrics owns a registry and the collectors the plugin handle reports to.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	calls        *prometheus.CounterVec
	state        *prometheus.GaugeVec
	dialAttempts prometheus.Counter
	dialFailures prometheus.Counter
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fsm",
				Name:      "requests_total",
				Help:      "Total number of FSM requests handled, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "fsm",
				Name:      "request_duration_seconds",
				Help:      "Duration of FSM request handling.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"kind"},
		),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fsm",
				Name:      "host_calls_total",
				Help:      "Total number of calls issued by the plugin to the FSM host.",
			},
			[]string{"kind", "outcome"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "Current lifecycle state of the plugin handle (1 for the active state).",
			},
			[]string{"state"},
		),
		dialAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "dial_attempts_total",
			Help:      "Total number of attempts to dial the FSM socket.",
		}),
		dialFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "dial_failures_total",
			Help:      "Total number of failed attempts to dial the FSM socket.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.calls,
		m.state,
		m.dialAttempts,
		m.dialFailures,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveRequest records one handled FSM request.
func (m *Metrics) ObserveRequest(kind, outcome string, d time.Duration) {
	m.requests.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveCall records one plugin-initiated call.
func (m *Metrics) ObserveCall(kind, outcome string) {
	m.calls.WithLabelValues(kind, outcome).Inc()
}

// ObserveDial records one dial attempt.
func (m *Metrics) ObserveDial(err error) {
	m.dialAttempts.Inc()
	if err != nil {
		m.dialFailures.Inc()
	}
}

// SetState marks current as the active state and clears the previous one.
func (m *Metrics) SetState(previous, current string) {
	if previous != "" {
		m.state.WithLabelValues(previous).Set(0)
	}
	m.state.WithLabelValues(current).Set(1)
}

// Gatherer exposes the registry for scraping.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
