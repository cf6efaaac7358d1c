// Package search finds users and groups, through Meilisearch when it is
// reachable and through the SQLite store otherwise.
package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/youssefsn2/PFE/internal/domain"
)

const (
	idxUsers  = "envmon_users"
	idxGroups = "envmon_groups"
)

var errUnhealthy = errors.New("meilisearch unhealthy")

type userDoc struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

type groupDoc struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	City       string `json:"city"`
	Site       string `json:"site"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{ID: u.ID, Handle: u.Handle, DisplayName: u.DisplayName}
}

func toGroupDoc(g *domain.Group) groupDoc {
	return groupDoc{ID: g.ID, Name: g.Name, Department: g.Department, City: g.City, Site: g.Site}
}

// Meili indexes and queries users and groups in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}

	mu        sync.Mutex
	onRecover func()
}

// NewMeili creates a Meilisearch client and configures the indexes.
// An unreachable server is not an error: the client starts unhealthy and
// a background loop picks it up once it answers.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("Meilisearch unavailable, using store search", "error", err, "url", url)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop(10 * time.Second)
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{uid: idxUsers, searchable: []string{"handle", "display_name"}},
		{uid: idxGroups, filterable: []string{"department", "city", "site"}, searchable: []string{"name", "department", "city", "site"}},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idx.uid, PrimaryKey: "id"}); err != nil {
			m.logger.Debug("Create index failed, may already exist", "error", err, "index", idx.uid)
		}

		index := m.client.Index(idx.uid)
		if len(idx.filterable) > 0 {
			filterable := make([]interface{}, len(idx.filterable))
			for i, v := range idx.filterable {
				filterable[i] = v
			}
			if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
				m.logger.Warn("Failed to update filterable attributes", "error", err, "index", idx.uid)
			}
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			m.logger.Warn("Failed to update searchable attributes", "error", err, "index", idx.uid)
		}
	}
}

func (m *Meili) healthLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.checkHealth()
		}
	}
}

// checkHealth updates the health flag. On recovery the indexes are
// reconfigured and the recovery hook runs, since writes made while
// Meilisearch was down were skipped.
func (m *Meili) checkHealth() {
	_, err := m.client.Health()
	wasHealthy := m.healthy.Swap(err == nil)
	if err != nil || wasHealthy {
		return
	}

	m.logger.Info("Meilisearch recovered, rebuilding indexes")
	m.configureIndexes()

	m.mu.Lock()
	fn := m.onRecover
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnRecover sets a hook run each time Meilisearch becomes healthy again.
func (m *Meili) OnRecover(fn func()) {
	m.mu.Lock()
	m.onRecover = fn
	m.mu.Unlock()
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// searchIDs returns the IDs of the best matches in index uid.
func (m *Meili) searchIDs(uid, q string, limit int) ([]string, error) {
	if !m.healthy.Load() {
		return nil, errUnhealthy
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{IndexUID: uid, Query: q, Limit: int64(limit)}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search %s: %w", uid, err)
	}

	var ids []string
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			if id := decodeString(hit, "id"); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// SearchUsers returns matching user IDs.
func (m *Meili) SearchUsers(q string, limit int) ([]string, error) {
	return m.searchIDs(idxUsers, q, limit)
}

// SearchGroups returns matching group IDs.
func (m *Meili) SearchGroups(q string, limit int) ([]string, error) {
	return m.searchIDs(idxGroups, q, limit)
}

// IndexUsers adds or updates users.
func (m *Meili) IndexUsers(users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}
	docs := make([]userDoc, len(users))
	for i, u := range users {
		docs[i] = toUserDoc(u)
	}
	_, err := m.client.Index(idxUsers).AddDocuments(docs, nil)
	return err
}

// IndexGroups adds or updates groups.
func (m *Meili) IndexGroups(groups []*domain.Group) error {
	if len(groups) == 0 {
		return nil
	}
	docs := make([]groupDoc, len(groups))
	for i, g := range groups {
		docs[i] = toGroupDoc(g)
	}
	_, err := m.client.Index(idxGroups).AddDocuments(docs, nil)
	return err
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
