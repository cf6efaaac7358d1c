// Package api provides HTTP handlers for the envmon REST surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/identity"
	"github.com/youssefsn2/PFE/internal/shared"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ChatService routes messages and manages groups on behalf of an identity.
type ChatService interface {
	Send(ctx context.Context, sender domain.Identity, req domain.SendRequest) (*domain.Message, error)
	History(ctx context.Context, owner domain.Identity, counterpart string) ([]*domain.Message, error)
	GroupHistory(ctx context.Context, owner domain.Identity, groupID string) ([]*domain.Message, error)
	MarkRead(ctx context.Context, owner domain.Identity, counterpart string) (int64, error)
	MarkGroupRead(ctx context.Context, owner domain.Identity, groupID string) error
	CountUnread(ctx context.Context, owner domain.Identity, counterpart string) (int64, error)
	CountGroupUnread(ctx context.Context, owner domain.Identity, groupID string) (int64, error)
	UnreadMessages(ctx context.Context, owner domain.Identity) ([]*domain.Message, error)

	CreateGroup(ctx context.Context, creator domain.Identity, req domain.CreateGroupRequest) (*domain.Group, error)
	AddMember(ctx context.Context, actor domain.Identity, groupID, userID string) (*domain.Group, error)
	Group(ctx context.Context, groupID string) (*domain.Group, error)
	GroupsFor(ctx context.Context, owner domain.Identity) ([]*domain.Group, error)
	SearchUsers(ctx context.Context, q string, limit int) ([]*domain.User, error)
	SearchGroups(ctx context.Context, q string, limit int) ([]*domain.Group, error)
	RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (*domain.User, error)
}

// Handler provides common handler utilities.
type Handler struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{validate: shared.NewValidator(), logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Internal errors are logged and their detail hidden.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	evt := domain.ErrorEvent(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()))
	}
	body := map[string]string{"error": evt.Error}
	if evt.Detail != "" {
		body["detail"] = evt.Detail
	}
	JSON(w, status, body)
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err)
	}
	return shared.Validate(h.validate, dst)
}

// caller returns the identity bound by identity.Middleware.
func caller(r *http.Request) domain.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

// queryLimit parses ?limit=, returning 0 when absent or invalid.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
