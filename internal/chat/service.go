// Package chat routes private and group messages and manages groups and read state.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/shared"
	"github.com/youssefsn2/PFE/internal/store"
)

// Store is the persistence the router needs.
type Store interface {
	store.UserStore
	store.ChatStore
	EnsurePreferences(ctx context.Context, userID string) (*domain.Preferences, error)
}

// Directory searches users and groups and keeps the search index current.
type Directory interface {
	SearchUsers(ctx context.Context, q string, limit int) ([]*domain.User, error)
	SearchGroups(ctx context.Context, q string, limit int) ([]*domain.Group, error)
	IndexUser(user *domain.User)
	IndexGroup(group *domain.Group)
}

// Service is the message router.
type Service struct {
	store     Store
	publisher domain.Publisher
	directory Directory
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the message router.
func NewService(st Store, publisher domain.Publisher, directory Directory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		publisher: publisher,
		directory: directory,
		validate:  shared.NewValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

func requireIdentity(id domain.Identity) error {
	if id.IsZero() {
		return fmt.Errorf("no identity bound: %w", domain.ErrUnauthenticated)
	}
	return nil
}

// Send persists a message from sender and fans it out to live connections.
// Fan-out is best effort and never fails the call once the message is stored.
func (s *Service) Send(ctx context.Context, sender domain.Identity, req domain.SendRequest) (*domain.Message, error) {
	if err := requireIdentity(sender); err != nil {
		return nil, err
	}
	if err := shared.Validate(s.validate, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is blank", domain.ErrValidation)
	}

	msg := &domain.Message{
		SenderID:  sender.UserID,
		Content:   req.Content,
		Sent:      true,
		Timestamp: s.now().UTC(),
	}

	if req.IsGroup() {
		group, err := s.store.GetGroup(ctx, req.GroupID)
		if err != nil {
			return nil, fmt.Errorf("load group: %w", err)
		}
		if group == nil {
			return nil, fmt.Errorf("group %s: %w", req.GroupID, domain.ErrNotFound)
		}
		msg.GroupID = lo.ToPtr(group.ID)
	} else {
		recipient, err := s.store.GetUser(ctx, req.RecipientID)
		if err != nil {
			return nil, fmt.Errorf("load recipient: %w", err)
		}
		if recipient == nil {
			return nil, fmt.Errorf("user %s: %w", req.RecipientID, domain.ErrNotFound)
		}
		msg.RecipientID = lo.ToPtr(recipient.ID)
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	s.fanOut(ctx, msg)
	return msg, nil
}

// fanOut pushes msg to the live connections of its audience.
// Group audiences are read after the message is stored.
func (s *Service) fanOut(ctx context.Context, msg *domain.Message) {
	evt := domain.Event{Type: domain.EventMessage, Message: msg}

	var audience []string
	if msg.IsGroup() {
		members, err := s.store.GroupMembers(ctx, *msg.GroupID)
		if err != nil {
			s.logger.Error("Failed to load group audience", "error", err, "group_id", *msg.GroupID, "message_id", msg.ID)
			members = nil
		}
		audience = lo.Uniq(append(members, msg.SenderID))
	} else {
		audience = lo.Uniq([]string{*msg.RecipientID, msg.SenderID})
	}

	delivered := 0
	for _, userID := range audience {
		delivered += s.publisher.Publish(userID, evt)
	}
	s.logger.Debug("Message fanned out", "message_id", msg.ID, "audience", len(audience), "connections", delivered)
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (s *Service) requireGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	return group, nil
}

// History returns the conversation between owner and counterpart, oldest first.
func (s *Service) History(ctx context.Context, owner domain.Identity, counterpart string) ([]*domain.Message, error) {
	if err := requireIdentity(owner); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, counterpart); err != nil {
		return nil, err
	}
	return s.store.PrivateHistory(ctx, owner.UserID, counterpart)
}

// GroupHistory returns the group's messages, oldest first.
func (s *Service) GroupHistory(ctx context.Context, owner domain.Identity, groupID string) ([]*domain.Message, error) {
	if err := requireIdentity(owner); err != nil {
		return nil, err
	}
	if _, err := s.requireGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.GroupHistory(ctx, groupID)
}

// MarkRead flags every unread message from counterpart to owner as read.
// Messages from owner to counterpart are untouched.
func (s *Service) MarkRead(ctx context.Context, owner domain.Identity, counterpart string) (int64, error) {
	if err := requireIdentity(owner); err != nil {
		return 0, err
	}
	if err := s.requireUser(ctx, counterpart); err != nil {
		return 0, err
	}
	return s.store.MarkPrivateRead(ctx, owner.UserID, counterpart)
}

// MarkGroupRead marks the group read for owner only.
func (s *Service) MarkGroupRead(ctx context.Context, owner domain.Identity, groupID string) error {
	if err := requireIdentity(owner); err != nil {
		return err
	}
	if _, err := s.requireGroup(ctx, groupID); err != nil {
		return err
	}
	_, err := s.store.MarkGroupRead(ctx, groupID, owner.UserID)
	return err
}

// CountUnread counts unread messages from counterpart to owner.
func (s *Service) CountUnread(ctx context.Context, owner domain.Identity, counterpart string) (int64, error) {
	if err := requireIdentity(owner); err != nil {
		return 0, err
	}
	if err := s.requireUser(ctx, counterpart); err != nil {
		return 0, err
	}
	return s.store.CountPrivateUnread(ctx, owner.UserID, counterpart)
}

// CountGroupUnread counts group messages from others that owner has not read.
func (s *Service) CountGroupUnread(ctx context.Context, owner domain.Identity, groupID string) (int64, error) {
	if err := requireIdentity(owner); err != nil {
		return 0, err
	}
	if _, err := s.requireGroup(ctx, groupID); err != nil {
		return 0, err
	}
	return s.store.CountGroupUnread(ctx, groupID, owner.UserID)
}

// UnreadMessages returns every unread private message addressed to owner.
func (s *Service) UnreadMessages(ctx context.Context, owner domain.Identity) ([]*domain.Message, error) {
	if err := requireIdentity(owner); err != nil {
		return nil, err
	}
	return s.store.UnreadPrivate(ctx, owner.UserID)
}
