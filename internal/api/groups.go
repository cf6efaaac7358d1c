package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youssefsn2/PFE/internal/domain"
)

// GroupHandler serves group management and directory search.
type GroupHandler struct {
	*Handler
	chat ChatService
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(base *Handler, chat ChatService) *GroupHandler {
	return &GroupHandler{Handler: base, chat: chat}
}

// RegisterRoutes registers group and search routes on an authenticated router.
func (h *GroupHandler) RegisterRoutes(r chi.Router) {
	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{groupID}", h.Get)
		r.Post("/{groupID}/members", h.AddMember)
	})
	r.Get("/search/users", h.SearchUsers)
	r.Get("/search/groups", h.SearchGroups)
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// Create creates a group with the caller as first member.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGroupRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	group, err := h.chat.CreateGroup(r.Context(), caller(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, group)
}

// AddMember adds a user to {groupID}. Adding an existing member succeeds.
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	group, err := h.chat.AddMember(r.Context(), caller(r), chi.URLParam(r, "groupID"), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, group)
}

// Get returns a group with its members.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.chat.Group(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, group)
}

// List returns the caller's groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.chat.GroupsFor(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(groups))
}

// SearchUsers finds users by ?q=.
func (h *GroupHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.chat.SearchUsers(r.Context(), r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(users))
}

// SearchGroups finds groups by ?q=.
func (h *GroupHandler) SearchGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.chat.SearchGroups(r.Context(), r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(groups))
}
