// Package proxy implements the edge proxy that sits between interpretation
// clients and the upstream inference server.
//
// A Forwarder is mounted under a path prefix. Every request below the mount
// is relayed to a single fixed upstream host:
//
//	GET /ollama/api/tags?x=1  ->  GET https://upstream/api/tags?x=1
//
// The method, headers (minus hop-by-hop headers) and body are forwarded as
// received. The upstream status, headers and body are relayed back with CORS
// headers added; bodies are flushed chunk by chunk so streamed generation
// output reaches the client as it is produced.
//
// # Preflight
//
// OPTIONS requests are answered with 204 and the CORS headers without
// contacting the upstream.
//
// # Default Path
//
// A request for the bare mount is forwarded to Options.DefaultPath
// (normally "api/tags") instead of the upstream root.
//
// # Credentials
//
// Access gateway credentials (CF-Access-Client-Id and
// CF-Access-Client-Secret) are attached by the proxy from its own
// configuration. Values supplied by the client are always discarded.
//
// # Errors
//
// The proxy does not classify upstream failures; any upstream status and
// body are relayed verbatim. The only response it originates apart from
// preflight is a 502 JSON error when the upstream cannot be reached.
package proxy
