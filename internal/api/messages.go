package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youssefsn2/PFE/internal/domain"
)

// MessageHandler serves message history, sending and read state.
type MessageHandler struct {
	*Handler
	chat ChatService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(base *Handler, chat ChatService) *MessageHandler {
	return &MessageHandler{Handler: base, chat: chat}
}

// RegisterRoutes registers message routes on an authenticated router.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/messages", func(r chi.Router) {
		r.Post("/", h.Send)
		r.Get("/unread", h.Unread)

		r.Get("/private/{userID}", h.PrivateHistory)
		r.Post("/private/{userID}/read", h.MarkPrivateRead)
		r.Get("/private/{userID}/unread", h.CountPrivateUnread)

		r.Get("/group/{groupID}", h.GroupHistory)
		r.Post("/group/{groupID}/read", h.MarkGroupRead)
		r.Get("/group/{groupID}/unread", h.CountGroupUnread)
	})
}

// Send routes a message. It takes the same path as a WebSocket "message" frame.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	msg, err := h.chat.Send(r.Context(), caller(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, msg)
}

// PrivateHistory returns the conversation with {userID}, oldest first.
func (h *MessageHandler) PrivateHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.History(r.Context(), caller(r), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(msgs))
}

// GroupHistory returns the messages of {groupID}, oldest first.
func (h *MessageHandler) GroupHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.GroupHistory(r.Context(), caller(r), chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(msgs))
}

// MarkPrivateRead marks every message from {userID} to the caller as read.
func (h *MessageHandler) MarkPrivateRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.chat.MarkRead(r.Context(), caller(r), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"marked": n})
}

// MarkGroupRead marks {groupID} as read for the caller.
func (h *MessageHandler) MarkGroupRead(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.MarkGroupRead(r.Context(), caller(r), chi.URLParam(r, "groupID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CountPrivateUnread counts unread messages from {userID} to the caller.
func (h *MessageHandler) CountPrivateUnread(w http.ResponseWriter, r *http.Request) {
	n, err := h.chat.CountUnread(r.Context(), caller(r), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"unread": n})
}

// CountGroupUnread counts group messages the caller has not read.
func (h *MessageHandler) CountGroupUnread(w http.ResponseWriter, r *http.Request) {
	n, err := h.chat.CountGroupUnread(r.Context(), caller(r), chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"unread": n})
}

// Unread lists every unread private message addressed to the caller.
func (h *MessageHandler) Unread(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.UnreadMessages(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(msgs))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
