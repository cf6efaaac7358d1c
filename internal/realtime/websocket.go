package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/identity"
)

const writeTimeout = 10 * time.Second

// Sender routes a message intent on behalf of an authenticated identity.
type Sender interface {
	Send(ctx context.Context, sender domain.Identity, req domain.SendRequest) (*domain.Message, error)
}

// WebSocketHandler accepts live connections on /ws.
type WebSocketHandler struct {
	auth           *Authenticator
	registry       *Registry
	sender         Sender
	originPatterns []string
	readLimit      int64
}

// HandlerOptions configures a WebSocketHandler.
type HandlerOptions struct {
	// OriginPatterns is passed to websocket.Accept. Empty allows any origin.
	OriginPatterns []string
	ReadLimit      int64
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(auth *Authenticator, registry *Registry, sender Sender, opts HandlerOptions) *WebSocketHandler {
	patterns := opts.OriginPatterns
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	limit := opts.ReadLimit
	if limit <= 0 {
		limit = 32768
	}
	return &WebSocketHandler{
		auth:           auth,
		registry:       registry,
		sender:         sender,
		originPatterns: patterns,
		readLimit:      limit,
	}
}

// wsMessage is an inbound intent.
type wsMessage struct {
	Type string `json:"type"`
	domain.SendRequest
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, authenticated := h.auth.Authenticate(r)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{identity.Subprotocol},
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", id.UserID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "connection ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", id.UserID)
		}
	}()
	ws.SetReadLimit(h.readLimit)

	conn := h.registry.NewConn(id.UserID)
	if authenticated {
		h.registry.Register(conn)
		defer h.registry.Unregister(conn)
	} else {
		defer conn.close()
		slog.Info("Unauthenticated WebSocket connection", "conn_id", conn.ID, "ip", r.RemoteAddr)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		h.writeLoop(ctx, ws, conn)
	}()

	h.readLoop(ctx, ws, conn, id, authenticated)
	cancel()
	<-writerDone
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, conn *Conn, id domain.Identity, authenticated bool) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			switch {
			case websocket.CloseStatus(err) != -1:
				slog.Debug("WebSocket closed by client", "user_id", id.UserID, "conn_id", conn.ID)
			case errors.Is(err, context.Canceled):
			default:
				slog.Warn("WebSocket read error", "error", err, "user_id", id.UserID, "conn_id", conn.ID)
			}
			return
		}

		if !authenticated {
			h.reply(conn, domain.ErrorEvent(domain.ErrUnauthenticated))
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(conn, domain.ErrorEvent(fmt.Errorf("malformed frame: %w", domain.ErrValidation)))
			continue
		}

		switch msg.Type {
		case "message":
			if _, err := h.sender.Send(ctx, id, msg.SendRequest); err != nil {
				if domain.ErrorCode(err) == domain.CodeInternal {
					slog.Error("Failed to route message", "error", err, "user_id", id.UserID, "target", msg.Target.String())
				}
				h.reply(conn, domain.ErrorEvent(err))
			}
		case "ping":
			h.reply(conn, domain.Event{Type: domain.EventPong})
		default:
			h.reply(conn, domain.ErrorEvent(fmt.Errorf("unknown frame type %q: %w", msg.Type, domain.ErrValidation)))
		}
	}
}

func (h *WebSocketHandler) reply(conn *Conn, evt domain.Event) {
	if !conn.enqueue(evt) {
		slog.Warn("Dropping reply for slow connection", "user_id", conn.UserID, "conn_id", conn.ID, "event_type", evt.Type)
	}
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.done:
			return
		case evt := <-conn.send:
			if err := h.writeJSON(ctx, ws, evt); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "user_id", conn.UserID, "conn_id", conn.ID)
				}
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
