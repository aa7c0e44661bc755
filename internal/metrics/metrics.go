package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the recitation service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal         *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
	GenerationFailures prometheus.Counter
	DegradedTurns      *prometheus.CounterVec
	SynthesisDuration  prometheus.Histogram

	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsEvicted prometheus.Counter

	LiveConnections prometheus.Gauge
}

// New creates a Metrics instance backed by a private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tilawa"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of completed turns by intent and source",
			},
			[]string{"intent", "source"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "End-to-end turn duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"intent"},
		),
		GenerationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Turns aborted because text generation failed",
		}),
		DegradedTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degraded_turns_total",
				Help:      "Replies delivered without audio",
			},
			[]string{"reason"},
		),
		SynthesisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Speech synthesis duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions held in memory",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Total number of idle sessions evicted",
		}),
		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Open websocket connections",
		}),
	}

	registry.MustRegister(
		m.TurnsTotal,
		m.TurnDuration,
		m.GenerationFailures,
		m.DegradedTurns,
		m.SynthesisDuration,
		m.SessionsActive,
		m.SessionsCreated,
		m.SessionsEvicted,
		m.LiveConnections,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTurn records a delivered turn.
func (m *Metrics) ObserveTurn(intent, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(intent, source).Inc()
	m.TurnDuration.WithLabelValues(intent).Observe(d.Seconds())
}

// GenerationFailed records a turn aborted by the generator.
func (m *Metrics) GenerationFailed() {
	if m == nil {
		return
	}
	m.GenerationFailures.Inc()
}

// Degraded records a reply sent without audio.
func (m *Metrics) Degraded(reason string) {
	if m == nil {
		return
	}
	m.DegradedTurns.WithLabelValues(reason).Inc()
}

// ObserveSynthesis records how long a synthesis call took.
func (m *Metrics) ObserveSynthesis(d time.Duration) {
	if m == nil {
		return
	}
	m.SynthesisDuration.Observe(d.Seconds())
}

// SessionCreated bumps the creation counter.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// SetActiveSessions publishes the current registry size.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// Evicted records sessions removed by the sweeper.
func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsEvicted.Add(float64(n))
}

// ConnectionOpened increments the live connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.LiveConnections.Inc()
}

// ConnectionClosed decrements the live connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.LiveConnections.Dec()
}
