package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports database reachability. The memory repository mode passes a
// nil Pinger and reports "memory".
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness plus provider and storage readiness.
type HealthHandler struct {
	provider string
	enabled  bool
	db       Pinger
}

func NewHealthHandler(provider string, enabled bool, db Pinger) *HealthHandler {
	return &HealthHandler{provider: provider, enabled: enabled, db: db}
}

// Check responds to GET /api/health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	storage := "memory"
	if h.db != nil {
		storage = "ok"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			storage = "unreachable"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"provider":        h.provider,
		"providerEnabled": h.enabled,
		"storage":         storage,
	})
}
