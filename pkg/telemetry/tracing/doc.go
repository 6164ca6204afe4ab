// Package tracing configures OpenTelemetry tracing.
//
// When enabled, spans are exported over OTLP gRPC through a batching span
// processor, and W3C Trace Context is used to propagate trace IDs. The
// interpretation client and the edge proxy inject traceparent into upstream
// requests, so a dream interpretation shows up as one trace across the
// CLI, the proxy and the inference server.
//
// When disabled, New returns a noop tracer and the otel globals stay noop.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//	handler = tracer.HTTPMiddleware(handler)
package tracing
