package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/identity"
)

// UserLookup loads directory entries.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// UserHandler serves the caller's profile and admin registration.
type UserHandler struct {
	*Handler
	chat       ChatService
	users      UserLookup
	issuer     TokenIssuer
	adminToken string
}

// NewUserHandler creates a UserHandler. An empty adminToken disables registration.
func NewUserHandler(base *Handler, chat ChatService, users UserLookup, issuer TokenIssuer, adminToken string) *UserHandler {
	return &UserHandler{Handler: base, chat: chat, users: users, issuer: issuer, adminToken: adminToken}
}

// RegisterRoutes registers the authenticated profile route.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.GetMe)
}

// RegisterAdminRoutes registers routes gated by the admin token.
func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/users", h.Register)
}

// GetMe returns the current user's information.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	user, err := h.users.GetUser(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}
	JSON(w, http.StatusOK, user)
}

// Register adds a user to the directory and returns a token for it.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		Error(w, http.StatusForbidden, "forbidden")
		return
	}

	var req domain.RegisterUserRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.chat.RegisterUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.issuer.Issue(user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]interface{}{"user": user, "token": token})
}

func (h *UserHandler) isAdmin(r *http.Request) bool {
	if h.adminToken == "" {
		return false
	}
	got := identity.BearerFromHeader(r)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) == 1
}
