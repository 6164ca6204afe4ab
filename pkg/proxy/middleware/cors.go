package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORS header names.
const (
	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
	headerAllowMethods     = "Access-Control-Allow-Methods"
	headerAllowHeaders     = "Access-Control-Allow-Headers"
	headerMaxAge           = "Access-Control-Max-Age"
	headerRequestHeaders   = "Access-Control-Request-Headers"
)

// CORSConfig contains configuration for CORS handling.
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins.
	// Use ["*"] (or leave empty) to allow all origins.
	AllowedOrigins []string

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string

	// AllowedHeaders is a list of allowed request headers. ["*"] echoes the
	// preflight's Access-Control-Request-Headers when present.
	AllowedHeaders []string

	// MaxAge is the maximum age (in seconds) for preflight cache. 0 omits the header.
	MaxAge int

	// AllowCredentials controls whether credentials are allowed.
	AllowCredentials bool
}

// DefaultCORSConfig returns the permissive configuration browser-hosted
// clients of the proxy expect.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}

// Apply sets the CORS response headers for r on h, overwriting any values
// already present. It sets nothing when the request origin is not allowed.
//
// Allow-Origin echoes the request's Origin, or "*" when the request has none.
func (c *CORSConfig) Apply(h http.Header, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && !isOriginAllowed(origin, c.AllowedOrigins) {
		return
	}

	if origin == "" {
		origin = "*"
	}
	h.Set(headerAllowOrigin, origin)
	if c.AllowCredentials {
		h.Set(headerAllowCredentials, "true")
	}
	if len(c.AllowedMethods) > 0 {
		h.Set(headerAllowMethods, strings.Join(c.AllowedMethods, ","))
	}
	if len(c.AllowedHeaders) > 0 {
		h.Set(headerAllowHeaders, strings.Join(c.AllowedHeaders, ","))
	}
	h.Set("Vary", "Origin")
}

// ApplyPreflight sets the headers for an OPTIONS preflight response.
func (c *CORSConfig) ApplyPreflight(h http.Header, r *http.Request) {
	c.Apply(h, r)
	if h.Get(headerAllowOrigin) == "" {
		return
	}

	if requested := r.Header.Get(headerRequestHeaders); requested != "" && contains(c.AllowedHeaders, "*") {
		h.Set(headerAllowHeaders, requested)
	}
	if c.MaxAge > 0 {
		h.Set(headerMaxAge, strconv.Itoa(c.MaxAge))
	}
}

// CORSMiddleware adds CORS headers to responses and answers OPTIONS
// preflight requests with 204 No Content without calling next.
//
// Handlers that copy headers from elsewhere (such as the forwarder) must
// call Apply again after copying, since they may overwrite these values.
//
// Example usage:
//
//	handler = CORSMiddleware(DefaultCORSConfig())(handler)
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				config.ApplyPreflight(w.Header(), r)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			config.Apply(w.Header(), r)
			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed checks if an origin is in the allowed list.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
