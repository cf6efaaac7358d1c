package search

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/youssefsn2/PFE/internal/domain"
)

const defaultLimit = 20

// Fallback is the store-backed search used when Meilisearch is absent or unhealthy.
// It also hydrates Meilisearch hits so results always reflect the store.
type Fallback interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetGroup(ctx context.Context, groupID string) (*domain.Group, error)
	SearchUsers(ctx context.Context, q string, limit int) ([]*domain.User, error)
	SearchGroups(ctx context.Context, q string, limit int) ([]*domain.Group, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ListGroups(ctx context.Context) ([]*domain.Group, error)
}

// Service tries Meilisearch first and falls back to the store.
type Service struct {
	meili  *Meili
	store  Fallback
	logger *slog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
// Every time Meilisearch recovers the index is rebuilt from the store.
func NewService(m *Meili, st Fallback, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{meili: m, store: st, logger: logger}
	if m != nil {
		m.OnRecover(func() { s.ReindexAll(context.Background()) })
	}
	return s
}

func (s *Service) useMeili() bool {
	return s.meili != nil && s.meili.Healthy()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultLimit
	}
	return limit
}

// SearchUsers finds users by handle or display name.
func (s *Service) SearchUsers(ctx context.Context, q string, limit int) ([]*domain.User, error) {
	limit = clampLimit(limit)
	if s.useMeili() {
		ids, err := s.meili.SearchUsers(q, limit)
		if err == nil {
			return hydrate(ctx, ids, s.store.GetUser)
		}
		s.logger.Warn("Meilisearch error, falling back to store search", "error", err)
	}
	return s.store.SearchUsers(ctx, q, limit)
}

// SearchGroups finds groups by name or location.
func (s *Service) SearchGroups(ctx context.Context, q string, limit int) ([]*domain.Group, error) {
	limit = clampLimit(limit)
	if s.useMeili() {
		ids, err := s.meili.SearchGroups(q, limit)
		if err == nil {
			return hydrate(ctx, ids, s.store.GetGroup)
		}
		s.logger.Warn("Meilisearch error, falling back to store search", "error", err)
	}
	return s.store.SearchGroups(ctx, q, limit)
}

// hydrate loads each hit from the store, skipping hits the store no longer has.
func hydrate[T any](ctx context.Context, ids []string, get func(context.Context, string) (*T, error)) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		v, err := get(ctx, id)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// IndexUser indexes a user (fire-and-forget to Meilisearch).
func (s *Service) IndexUser(user *domain.User) {
	if !s.useMeili() {
		return
	}
	go func() {
		if err := s.meili.IndexUsers([]*domain.User{user}); err != nil {
			s.logger.Warn("Failed to index user", "error", err, "user_id", user.ID)
		}
	}()
}

// IndexGroup indexes a group (fire-and-forget to Meilisearch).
func (s *Service) IndexGroup(group *domain.Group) {
	if !s.useMeili() {
		return
	}
	go func() {
		if err := s.meili.IndexGroups([]*domain.Group{group}); err != nil {
			s.logger.Warn("Failed to index group", "error", err, "group_id", group.ID)
		}
	}()
}

// ReindexAll pushes every user and group from the store to Meilisearch.
func (s *Service) ReindexAll(ctx context.Context) {
	if !s.useMeili() {
		return
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("Reindex: failed to load users", "error", err)
		return
	}
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		s.logger.Error("Reindex: failed to load groups", "error", err)
		return
	}
	if err := s.meili.IndexUsers(users); err != nil {
		s.logger.Warn("Reindex: failed to index users", "error", err)
	}
	if err := s.meili.IndexGroups(groups); err != nil {
		s.logger.Warn("Reindex: failed to index groups", "error", err)
	}
	s.logger.Info("Search index rebuilt", "users", len(users), "groups", len(groups))
}
