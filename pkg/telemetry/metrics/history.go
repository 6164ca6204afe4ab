package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistoryMetrics tracks the local interpretation history.
type HistoryMetrics struct {
	entries prometheus.Gauge
	pruned  prometheus.Counter
}

// NewHistoryMetrics creates and registers history metrics.
func NewHistoryMetrics(namespace string, registry *prometheus.Registry) *HistoryMetrics {
	m := &HistoryMetrics{
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "entries",
			Help:      "Number of stored history entries",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "pruned_total",
			Help:      "Total number of history entries removed by retention",
		}),
	}

	registry.MustRegister(m.entries, m.pruned)
	return m
}

// SetEntries sets the current entry count.
func (m *HistoryMetrics) SetEntries(count int) {
	m.entries.Set(float64(count))
}

// RecordPruned adds removed entries to the pruned counter.
func (m *HistoryMetrics) RecordPruned(removed int) {
	if removed > 0 {
		m.pruned.Add(float64(removed))
	}
}
