// Package metrics exposes Prometheus instruments for the conversation engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder groups the instruments. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	messages        *prometheus.CounterVec
	interpretations *prometheus.CounterVec
	renders         *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	sessions        prometheus.Gauge
}

// New registers the instruments on a fresh registry, together with the Go runtime collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garden",
			Name:      "messages_total",
			Help:      "Inbound user messages by conversation state.",
		}, []string{"state"}),
		interpretations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garden",
			Name:      "interpretations_total",
			Help:      "Intent interpretations by outcome (ok, degraded, error).",
		}, []string{"outcome"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garden",
			Name:      "renders_total",
			Help:      "Render calls by kind (initial, refine) and outcome.",
		}, []string{"kind", "outcome"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "garden",
			Name:      "render_duration_seconds",
			Help:      "Latency of render calls.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"kind"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "garden",
			Name:      "sessions_active",
			Help:      "Conversations currently held in memory.",
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.messages, r.interpretations, r.renders, r.renderDuration, r.sessions,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Message counts one inbound message handled in state.
func (r *Recorder) Message(state string) {
	if r == nil {
		return
	}
	r.messages.WithLabelValues(state).Inc()
}

// Interpretation counts one interpreter outcome.
func (r *Recorder) Interpretation(outcome string) {
	if r == nil {
		return
	}
	r.interpretations.WithLabelValues(outcome).Inc()
}

// Render counts one render call and observes its latency.
func (r *Recorder) Render(kind string, started time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.renders.WithLabelValues(kind, outcome).Inc()
	r.renderDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// Sessions sets the live session gauge.
func (r *Recorder) Sessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}
