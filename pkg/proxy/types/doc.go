// Package types defines the JSON bodies the proxy server originates itself.
//
// The forwarder relays upstream responses verbatim, so the only bodies the
// server writes on its own are errors (upstream unreachable, panics, unknown
// routes) and the health and readiness reports.
package types
