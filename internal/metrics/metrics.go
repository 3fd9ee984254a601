// Package metrics exposes analysis counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jward/thicket/internal/binding"
	"github.com/jward/thicket/internal/lint"
)

const namespace = "thicket"

// Metrics holds the collectors. A nil *Metrics records nothing, so callers
// never need to check whether metrics are enabled.
type Metrics struct {
	Documents     *prometheus.CounterVec
	Declarations  *prometheus.CounterVec
	References    *prometheus.CounterVec
	Unresolved    *prometheus.CounterVec
	Diagnostics   *prometheus.CounterVec
	BuildDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_analyzed_total",
			Help:      "Documents parsed and bound.",
		}, []string{"language"}),
		Declarations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "declarations_total",
			Help:      "Declarations recorded, duplicates included.",
		}, []string{"language"}),
		References: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "references_total",
			Help:      "References recorded.",
		}, []string{"language"}),
		Unresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_references_total",
			Help:      "References with no declaration in their scope.",
		}, []string{"language"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported.",
		}, []string{"rule", "severity"}),
		BuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_build_seconds",
			Help:      "Time to parse a document and build its binding model.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"language"}),
	}
	if reg != nil {
		reg.MustRegister(m.Documents, m.Declarations, m.References, m.Unresolved, m.Diagnostics, m.BuildDuration)
	}
	return m
}

// ObserveDocument records one analysed document.
func (m *Metrics) ObserveDocument(language string, stats binding.Stats, took time.Duration) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(language).Inc()
	m.Declarations.WithLabelValues(language).Add(float64(stats.Declarations))
	m.References.WithLabelValues(language).Add(float64(stats.References))
	m.Unresolved.WithLabelValues(language).Add(float64(stats.Unresolved))
	m.BuildDuration.WithLabelValues(language).Observe(took.Seconds())
}

// ObserveDiagnostics records lint results.
func (m *Metrics) ObserveDiagnostics(diags []lint.Diagnostic) {
	if m == nil {
		return
	}
	for _, d := range diags {
		m.Diagnostics.WithLabelValues(d.Rule, d.Severity.String()).Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
