// Package handlers provides the non-proxied HTTP endpoints of the server.
//
//   - GET /health: liveness, always 200 while the process serves requests
//   - GET /ready: readiness, 200 when every registered check passes (the
//     upstream lists its models through the configured client path, the
//     history store answers), 503 otherwise
package handlers
