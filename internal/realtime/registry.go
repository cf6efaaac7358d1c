// Package realtime manages live WebSocket connections and event fan-out.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/youssefsn2/PFE/internal/domain"
)

// Conn is one live connection. Events queued on it are written by a single writer goroutine.
type Conn struct {
	ID     string
	UserID string

	send chan domain.Event
	done chan struct{}
	once sync.Once
}

func newConn(userID string, queue int) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan domain.Event, queue),
		done:   make(chan struct{}),
	}
}

// enqueue offers evt without blocking. It reports false when the queue is full or the connection closed.
func (c *Conn) enqueue(evt domain.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- evt:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

// Registry maps user IDs to their live connections.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[string]*Conn
	queue  int
	logger *slog.Logger
}

// NewRegistry creates a registry whose connections buffer up to queue outbound events.
func NewRegistry(queue int, logger *slog.Logger) *Registry {
	if queue <= 0 {
		queue = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		active: make(map[string]map[string]*Conn),
		queue:  queue,
		logger: logger,
	}
}

// NewConn creates a connection that is not yet visible to Publish.
func (r *Registry) NewConn(userID string) *Conn {
	return newConn(userID, r.queue)
}

// Register makes c visible to Publish for its user.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[c.UserID]; !exists {
		r.active[c.UserID] = make(map[string]*Conn)
	}
	r.active[c.UserID][c.ID] = c
	r.logger.Info("Connection registered", "user_id", c.UserID, "conn_id", c.ID, "user_conns", len(r.active[c.UserID]))
}

// Unregister removes c and stops further deliveries to it.
func (r *Registry) Unregister(c *Conn) {
	c.close()

	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.active[c.UserID]; ok {
		if current, exists := conns[c.ID]; exists && current == c {
			delete(conns, c.ID)
			if len(conns) == 0 {
				delete(r.active, c.UserID)
			}
			r.logger.Info("Connection unregistered", "user_id", c.UserID, "conn_id", c.ID)
		}
	}
}

// Publish queues evt on every live connection of userID and returns how many accepted it.
// A connection whose queue is full misses the event.
func (r *Registry) Publish(userID string, evt domain.Event) int {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.active[userID]))
	for _, c := range r.active[userID] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if c.enqueue(evt) {
			delivered++
			continue
		}
		r.logger.Warn("Dropping event for slow connection",
			"user_id", userID, "conn_id", c.ID, "event_type", evt.Type)
	}
	return delivered
}

// ConnectionCount returns the number of live connections of userID.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active[userID])
}

// Stats returns the number of connected users and live connections.
func (r *Registry) Stats() (users, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.active {
		conns += len(c)
	}
	return len(r.active), conns
}

var _ domain.Publisher = (*Registry)(nil)
