// Package metrics provides Prometheus metrics for khawab.
//
// # Metrics Categories
//
//   - Interpretation: call count by language, mode and outcome, duration, chunks
//   - Proxy: request count by method and status, duration, relayed bytes
//   - History: stored entries and entries pruned by retention
//
// # Usage
//
// Collector implements interpret.Observer, proxy.Observer and
// history.Observer, so one instance is passed to every component:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	forwarder, _ := proxy.NewForwarder(opts) // opts.Observer = collector
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A status of 499 means the client disconnected before the upstream answered.
package metrics
