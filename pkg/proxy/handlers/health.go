package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"imaginationai/khawab/pkg/interpret"
	"imaginationai/khawab/pkg/telemetry/health"
)

// ModelLister reports the models the upstream serves. *interpret.Client
// satisfies it.
type ModelLister interface {
	Models(ctx context.Context) ([]interpret.ModelInfo, error)
}

// UpstreamCheck returns a readiness check that lists the upstream models
// through the same path and credentials as interpretation calls.
func UpstreamCheck(upstream ModelLister) health.CheckFunc {
	return func(ctx context.Context) error {
		models, err := upstream.Models(ctx)
		if err != nil {
			if status := interpret.StatusOf(err); status != 0 {
				return fmt.Errorf("%s: upstream status %d", interpret.KindOf(err), status)
			}
			return fmt.Errorf("%s: %w", interpret.KindOf(err), err)
		}
		if len(models) == 0 {
			return fmt.Errorf("upstream serves no models")
		}
		return nil
	}
}

// HealthHandler handles health check requests for liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ReadyHandler handles readiness check requests by running the registered
// component checks.
type ReadyHandler struct {
	Checker *health.Checker
}

// NewReadyHandler creates a new readiness check handler.
func NewReadyHandler(checker *health.Checker) *ReadyHandler {
	return &ReadyHandler{Checker: checker}
}

// ServeHTTP implements http.Handler for readiness checks. It answers 200
// when every check passed and 503 otherwise.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := h.Checker.CheckReadiness(r.Context())

	statusCode := http.StatusOK
	if !report.Ready() {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
