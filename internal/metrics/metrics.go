// Package metrics exposes Prometheus instrumentation for the monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "scadawatch_"

const (
	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

// Metrics holds the collectors of one process. All methods are safe on a nil
// receiver so that components can run uninstrumented in tests.
type Metrics struct {
	registry *prometheus.Registry

	polls          *prometheus.CounterVec
	evaluations    *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	droppedRecords prometheus.Counter
	activeAlerts   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polls_total",
				Help: "Poll attempts by query and result",
			},
			[]string{"query", "result"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluations_total",
				Help: "Reading classifications by outcome",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transitions_total",
				Help: "Classification edges by direction",
			},
			[]string{"direction"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Backend notification submissions by result",
			},
			[]string{"result"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "local_fallbacks_total",
				Help: "Local fallback notifications by result",
			},
			[]string{"result"},
		),
		droppedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "dropped_records_total",
			Help: "Feed records dropped by validation",
		}),
		activeAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "active_alerts",
			Help: "Alarms currently firing",
		}),
	}
	m.registry.MustRegister(
		m.polls,
		m.evaluations,
		m.transitions,
		m.notifications,
		m.fallbacks,
		m.droppedRecords,
		m.activeAlerts,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePoll records a poll outcome.
func (m *Metrics) ObservePoll(query string, err error) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(query, result(err)).Inc()
}

// ObservePollSkipped records a tick skipped because a fetch was in flight.
func (m *Metrics) ObservePollSkipped(query string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(query, resultSkipped).Inc()
}

// ObserveEvaluation records a classification outcome.
func (m *Metrics) ObserveEvaluation(outOfRange bool, err error) {
	if m == nil {
		return
	}
	outcome := "in_range"
	switch {
	case err != nil:
		outcome = "invalid"
	case outOfRange:
		outcome = "out_of_range"
	}
	m.evaluations.WithLabelValues(outcome).Inc()
}

// ObserveTransition records a classification edge.
func (m *Metrics) ObserveTransition(direction string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(direction).Inc()
}

// ObserveNotification records a backend notification submission.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result(err)).Inc()
}

// ObserveSuppressed records a notification withheld by flap suppression.
func (m *Metrics) ObserveSuppressed() {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("suppressed").Inc()
}

// ObserveFallback records a local fallback notification.
func (m *Metrics) ObserveFallback(err error) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(result(err)).Inc()
}

// AddDropped counts records rejected by validation.
func (m *Metrics) AddDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedRecords.Add(float64(n))
}

// SetActiveAlerts updates the firing alert gauge.
func (m *Metrics) SetActiveAlerts(n int) {
	if m == nil {
		return
	}
	m.activeAlerts.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
