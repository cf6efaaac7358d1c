package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/identity"
)

type tokenTable map[string]domain.Identity

func (t tokenTable) Resolve(_ context.Context, token string) (domain.Identity, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return domain.Identity{}, domain.ErrUnauthenticated
}

type recordingSender struct {
	mu   sync.Mutex
	sent []domain.SendRequest
	err  error
}

func (s *recordingSender) Send(_ context.Context, _ domain.Identity, req domain.SendRequest) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, req)
	return &domain.Message{ID: int64(len(s.sent))}, nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

var aliceID = domain.Identity{UserID: "u-alice", Handle: "alice"}

func newTestServer(t *testing.T, sender Sender) (*httptest.Server, *Registry) {
	t.Helper()
	reg := NewRegistry(8, nil)
	auth := NewAuthenticator(tokenTable{"good": aliceID})
	h := NewWebSocketHandler(auth, reg, sender, HandlerOptions{})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server, header http.Header, protocols ...string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header, Subprotocols: protocols})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt domain.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestWebSocket_UnauthenticatedIsRejectedPerIntent(t *testing.T) {
	req := require.New(t)
	sender := &recordingSender{}
	srv, reg := newTestServer(t, sender)

	conn := dial(t, srv, http.Header{"Authorization": []string{"Bearer bad"}})
	writeFrame(t, conn, map[string]string{"type": "message", "recipient_id": "u-bob", "content": "hi"})

	evt := readEvent(t, conn)
	req.Equal(domain.EventError, evt.Type)
	req.Equal(domain.CodeUnauthenticated, evt.Error)
	req.Zero(sender.count())

	users, _ := reg.Stats()
	req.Zero(users)
}

func TestWebSocket_SubprotocolTokenAndDispatch(t *testing.T) {
	req := require.New(t)
	sender := &recordingSender{}
	srv, reg := newTestServer(t, sender)

	conn := dial(t, srv, nil, identity.Subprotocol, identity.TokenSubprotocolPrefix+"good")
	req.Equal(identity.Subprotocol, conn.Subprotocol())
	req.Eventually(func() bool { return reg.ConnectionCount(aliceID.UserID) == 1 }, 2*time.Second, 10*time.Millisecond)

	writeFrame(t, conn, map[string]string{"type": "ping"})
	req.Equal(domain.EventPong, readEvent(t, conn).Type)

	writeFrame(t, conn, map[string]string{"type": "message", "group_id": "g1", "content": "hello"})
	req.Eventually(func() bool { return sender.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	n := reg.Publish(aliceID.UserID, domain.Event{Type: domain.EventAlert, Alert: &domain.AlertRecord{ID: 7, Type: domain.AlertPM25}})
	req.Equal(1, n)
	evt := readEvent(t, conn)
	req.Equal(domain.EventAlert, evt.Type)
	req.EqualValues(7, evt.Alert.ID)
}

func TestWebSocket_SendErrorsBecomeFrames(t *testing.T) {
	req := require.New(t)
	sender := &recordingSender{err: domain.ErrNotFound}
	srv, _ := newTestServer(t, sender)

	conn := dial(t, srv, http.Header{"Authorization": []string{"Bearer good"}})
	writeFrame(t, conn, map[string]string{"type": "message", "recipient_id": "u-ghost", "content": "hi"})
	evt := readEvent(t, conn)
	req.Equal(domain.CodeNotFound, evt.Error)

	writeFrame(t, conn, map[string]string{"type": "resize"})
	evt = readEvent(t, conn)
	req.Equal(domain.CodeValidation, evt.Error)
}

func TestWebSocket_UnregistersOnClose(t *testing.T) {
	srv, reg := newTestServer(t, &recordingSender{})

	conn := dial(t, srv, http.Header{"Authorization": []string{"Bearer good"}})
	require.Eventually(t, func() bool { return reg.ConnectionCount(aliceID.UserID) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return reg.ConnectionCount(aliceID.UserID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
