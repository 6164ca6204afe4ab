package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"imaginationai/khawab/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// JSON error. The panic is logged with its stack trace; no internal details
// reach the client.
//
// http.ErrAbortHandler is re-panicked so the server aborts the connection
// as it normally would.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			requestID := GetRequestID(r.Context())
			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			types.NewServerError("An internal error occurred. Please try again later.").
				WithRequestID(requestID).
				Write(w)
		}()

		next.ServeHTTP(w, r)
	})
}
