package handler

import (
	"context"
	"net/http"
	"time"
)

// Check verifies one dependency.
type Check func(ctx context.Context) error

// HealthHandler reports service liveness and dependency health.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler creates a HealthHandler over the given named checks.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck runs every dependency check with a short deadline.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]any{
		"status": "ok",
		"checks": results,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
