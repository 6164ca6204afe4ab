// Package middleware provides HTTP middleware for cross-cutting concerns of
// the proxy server: request IDs, structured request logging, CORS and panic
// recovery.
//
// # Middleware Chain
//
// The server chains them outermost first:
//
//	handler = Recovery(RequestID(Logging(handler)))
//
// CORS is applied per route: the forwarder calls CORSConfig.Apply itself
// after copying upstream headers, the status endpoints are wrapped in
// CORSMiddleware.
//
// # Streaming
//
// The logging wrapper implements http.Flusher and Unwrap so streamed
// upstream bodies pass through without buffering.
//
// There is no timeout middleware; interpretation streams may run for the
// whole client deadline.
package middleware
