package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics tracks requests relayed by the edge proxy.
//
// Metrics:
//   - khawab_proxy_requests_total: requests by method and status code
//   - khawab_proxy_request_duration_seconds: time until the relay finished
//   - khawab_proxy_response_bytes_total: bytes relayed to clients
type ProxyMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

// NewProxyMetrics creates and registers proxy metrics.
func NewProxyMetrics(namespace string, registry *prometheus.Registry) *ProxyMetrics {
	m := &ProxyMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of requests handled by the proxy",
			},
			[]string{"method", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests including the streamed body",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"method"},
		),

		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "response_bytes_total",
				Help:      "Total number of response body bytes relayed to clients",
			},
			[]string{"method"},
		),
	}

	registry.MustRegister(m.requests, m.duration, m.bytes)
	return m
}

// Record records one handled request.
func (m *ProxyMetrics) Record(method, status string, duration time.Duration, bytes int64) {
	m.requests.WithLabelValues(method, status).Inc()
	m.duration.WithLabelValues(method).Observe(duration.Seconds())
	if bytes > 0 {
		m.bytes.WithLabelValues(method).Add(float64(bytes))
	}
}
