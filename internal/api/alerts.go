package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/youssefsn2/PFE/internal/domain"
)

// AlertStore reads alert history and preferences.
type AlertStore interface {
	AlertsForUser(ctx context.Context, userID string, limit int) ([]*domain.AlertRecord, error)
	EnsurePreferences(ctx context.Context, userID string) (*domain.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs *domain.Preferences) error
}

// ReadingProcessor evaluates a reading for one user and delivers the resulting alerts.
type ReadingProcessor interface {
	Process(ctx context.Context, owner string, r domain.Reading) ([]*domain.AlertRecord, error)
}

// LatestReading exposes the most recent sensor reading, nil before the first one.
type LatestReading interface {
	Latest() *domain.Reading
}

// AlertHandler serves notifications, preferences and readings.
type AlertHandler struct {
	*Handler
	store     AlertStore
	processor ReadingProcessor
	latest    LatestReading
}

// NewAlertHandler creates an AlertHandler. latest may be nil when ingestion is disabled.
func NewAlertHandler(base *Handler, store AlertStore, processor ReadingProcessor, latest LatestReading) *AlertHandler {
	return &AlertHandler{Handler: base, store: store, processor: processor, latest: latest}
}

// RegisterRoutes registers alert routes on an authenticated router.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.Notifications)
	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)
	r.Post("/readings", h.SubmitReading)
	r.Get("/readings/latest", h.LatestReading)
}

// Notifications returns the caller's alerts, newest first.
func (h *AlertHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.AlertsForUser(r.Context(), caller(r).UserID, queryLimit(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(alerts))
}

// GetPreferences returns the caller's thresholds, creating defaults on first access.
func (h *AlertHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.store.EnsurePreferences(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, prefs)
}

// UpdatePreferences merges the body into the caller's thresholds.
// Fields absent from the body keep their stored value.
func (h *AlertHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := caller(r).UserID
	prefs, err := h.store.EnsurePreferences(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.decode(w, r, prefs); err != nil {
		h.fail(w, r, err)
		return
	}
	prefs.UserID = userID

	if err := h.store.UpsertPreferences(r.Context(), prefs); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("Preferences updated", "user_id", userID, "alerts_enabled", prefs.AlertsEnabled)
	JSON(w, http.StatusOK, prefs)
}

// SubmitReading evaluates a reading against the caller's thresholds.
// A client supplied "at" is ignored; the reading is taken as of receipt.
func (h *AlertHandler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	var reading domain.Reading
	if err := h.decode(w, r, &reading); err != nil {
		h.fail(w, r, err)
		return
	}
	reading.At = time.Time{}
	records, err := h.processor.Process(r.Context(), caller(r).UserID, reading)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"alerts": nonNil(records)})
}

// LatestReading returns the last reading received from the sensor bus.
func (h *AlertHandler) LatestReading(w http.ResponseWriter, r *http.Request) {
	var reading *domain.Reading
	if h.latest != nil {
		reading = h.latest.Latest()
	}
	if reading == nil {
		Error(w, http.StatusNotFound, "no sensor reading yet")
		return
	}
	JSON(w, http.StatusOK, reading)
}
