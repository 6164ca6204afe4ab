package metrics

import (
	"strconv"
	"time"

	"imaginationai/khawab/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric exported by khawab and implements
// the observer interfaces of the interpret, proxy and history packages.
//
// When metrics are disabled all Observe methods are no-ops, so the collector
// can be wired unconditionally.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	interpretation *InterpretationMetrics
	proxy          *ProxyMetrics
	history        *HistoryMetrics
}

// NewCollector creates a collector registering its metrics in registry. If
// registry is nil a fresh registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	client, _ := interpret.NewClient(icfg, interpret.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		enabled:        cfg.Enabled,
		registry:       registry,
		interpretation: NewInterpretationMetrics(namespace, registry),
		proxy:          NewProxyMetrics(namespace, registry),
		history:        NewHistoryMetrics(namespace, registry),
	}
}

// Enabled reports whether observations are recorded.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// ObserveInterpretation records one finished interpretation call.
//
// Parameters:
//   - language: "en" or "ur"
//   - mode: "stream" or "sync"
//   - outcome: "success" or a lowercased error kind such as "timeout"
//   - duration: time from call start to completion
//   - chunks: number of text chunks delivered
func (c *Collector) ObserveInterpretation(language, mode, outcome string, duration time.Duration, chunks int) {
	if !c.enabled {
		return
	}
	c.interpretation.Record(language, mode, outcome, duration, chunks)
}

// ObserveProxyRequest records one request handled by the edge proxy.
func (c *Collector) ObserveProxyRequest(method string, status int, duration time.Duration, bytes int64) {
	if !c.enabled {
		return
	}
	c.proxy.Record(method, strconv.Itoa(status), duration, bytes)
}

// ObserveHistoryEntries sets the number of stored history entries.
func (c *Collector) ObserveHistoryEntries(count int) {
	if !c.enabled {
		return
	}
	c.history.SetEntries(count)
}

// ObserveHistoryPruned records entries removed by a retention run.
func (c *Collector) ObserveHistoryPruned(removed int) {
	if !c.enabled {
		return
	}
	c.history.RecordPruned(removed)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
