// Package telemetry groups the observability packages used by Khawab.
//
// # Components
//
//   - logging: slog setup with secret and dream text redaction
//   - metrics: Prometheus collectors for interpretations, proxy traffic and history
//   - tracing: OpenTelemetry tracer, OTLP export and traceparent propagation
//   - health: readiness checks and the version endpoint
//
// # Usage
//
//	logger, err := logging.Setup(logging.ConfigFromSettings(cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(ctx)
//
// Dream and interpretation text never reaches a log record verbatim; the
// redactor replaces it with its length in characters.
package telemetry
