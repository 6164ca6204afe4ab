package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InterpretationMetrics tracks calls made by the interpretation client.
//
// Metrics:
//   - khawab_interpretations_total: calls by language, mode and outcome
//   - khawab_interpretation_duration_seconds: call duration histogram
//   - khawab_interpretation_chunks: chunks delivered per successful call
type InterpretationMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	chunks   *prometheus.HistogramVec
}

// NewInterpretationMetrics creates and registers interpretation metrics.
func NewInterpretationMetrics(namespace string, registry *prometheus.Registry) *InterpretationMetrics {
	m := &InterpretationMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interpretations_total",
				Help:      "Total number of dream interpretation calls",
			},
			[]string{"language", "mode", "outcome"},
		),

		// Model generation takes seconds to minutes.
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "interpretation_duration_seconds",
				Help:      "Duration of dream interpretation calls in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"language", "mode"},
		),

		chunks: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "interpretation_chunks",
				Help:      "Number of streamed chunks per successful interpretation",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
			},
			[]string{"language"},
		),
	}

	registry.MustRegister(m.total, m.duration, m.chunks)
	return m
}

// Record records one finished call.
func (m *InterpretationMetrics) Record(language, mode, outcome string, duration time.Duration, chunks int) {
	m.total.WithLabelValues(language, mode, outcome).Inc()
	m.duration.WithLabelValues(language, mode).Observe(duration.Seconds())
	if outcome == "success" && chunks > 0 {
		m.chunks.WithLabelValues(language).Observe(float64(chunks))
	}
}
