package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionStats reports live connection counts.
type ConnectionStats interface {
	Stats() (users, conns int)
}

// HealthHandler serves readiness.
type HealthHandler struct {
	*Handler
	db    Pinger
	conns ConnectionStats
}

// NewHealthHandler creates a HealthHandler. conns may be nil.
func NewHealthHandler(base *Handler, db Pinger, conns ConnectionStats) *HealthHandler {
	return &HealthHandler{Handler: base, db: db, conns: conns}
}

// RegisterHealth registers /ready. Liveness on /health is served by chi's Heartbeat.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/ready", h.Ready)
}

// Ready reports whether the database answers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	body := map[string]interface{}{"status": "ready"}
	if h.conns != nil {
		users, conns := h.conns.Stats()
		body["online_users"] = users
		body["connections"] = conns
	}
	JSON(w, http.StatusOK, body)
}
