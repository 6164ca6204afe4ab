// Package server hosts the edge proxy and its operational endpoints.
//
// # Routes
//
//   - {mount}, {mount}/*: relayed to the upstream by proxy.Forwarder
//   - GET /health: liveness
//   - GET /ready: readiness checks (upstream model listing, history store)
//   - GET /version: build information
//   - GET {metrics path}: Prometheus metrics, when enabled
//
// Anything else answers 404 with a JSON error body.
//
// # Middleware
//
// Applied outermost first: panic recovery, request ID, request logging,
// tracing. There is no write timeout because proxied interpretations stream
// for as long as the model generates.
//
// # Lifecycle
//
//	srv, err := server.New(&cfg.Proxy, server.Options{Forwarder: fwd, Checker: checker})
//	if err != nil {
//		return err
//	}
//	return srv.Start(ctx) // returns after ctx is cancelled and in-flight requests drain
//
// Reload pushes a re-read configuration into the running forwarder.
package server
