// Package metrics defines the Prometheus collectors for statement imports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statement_import"

// ImportMetrics groups the import counters. A nil *ImportMetrics is valid and
// records nothing.
type ImportMetrics struct {
	registry         *prometheus.Registry
	previews         *prometheus.CounterVec
	parsed           *prometheus.CounterVec
	duplicates       *prometheus.CounterVec
	malformedSkipped *prometheus.CounterVec
	imported         prometheus.Counter
	skipped          prometheus.Counter
	previewDuration  *prometheus.HistogramVec
}

// New registers the import collectors on a fresh registry together with the
// Go runtime and process collectors.
func New() *ImportMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ImportMetrics{
		registry: reg,
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "previews_total",
			Help:      "Statement previews built, by detected bank profile.",
		}, []string{"bank"}),
		parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_parsed_total",
			Help:      "Transactions found in previewed statements.",
		}, []string{"bank"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_detected_total",
			Help:      "Previewed transactions already present in the budget space.",
		}, []string{"bank"}),
		malformedSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_lines_skipped_total",
			Help:      "Pattern matches dropped because the date or amount did not parse.",
		}, []string{"bank"}),
		imported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_imported_total",
			Help:      "Transactions persisted by confirmed imports.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_skipped_total",
			Help:      "Duplicate transactions skipped by confirmed imports.",
		}),
		previewDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "preview_duration_seconds",
			Help:      "Time spent building a preview, extraction included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"bank"}),
	}

	reg.MustRegister(m.previews, m.parsed, m.duplicates, m.malformedSkipped, m.imported, m.skipped, m.previewDuration)
	return m
}

// ObservePreview records one finished preview.
func (m *ImportMetrics) ObservePreview(bank string, parsed, duplicates, malformed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.previews.WithLabelValues(bank).Inc()
	m.parsed.WithLabelValues(bank).Add(float64(parsed))
	m.duplicates.WithLabelValues(bank).Add(float64(duplicates))
	m.malformedSkipped.WithLabelValues(bank).Add(float64(malformed))
	m.previewDuration.WithLabelValues(bank).Observe(elapsed.Seconds())
}

// ObserveConfirm records the outcome of one confirm call.
func (m *ImportMetrics) ObserveConfirm(imported, skipped int) {
	if m == nil {
		return
	}
	m.imported.Add(float64(imported))
	m.skipped.Add(float64(skipped))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ImportMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
