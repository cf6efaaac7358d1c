package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/youssefsn2/PFE/internal/domain"
	"github.com/youssefsn2/PFE/internal/shared"
)

// CreateGroup creates a group whose members are creator plus req.MemberIDs.
// Unknown member IDs reject the whole group.
func (s *Service) CreateGroup(ctx context.Context, creator domain.Identity, req domain.CreateGroupRequest) (*domain.Group, error) {
	if err := requireIdentity(creator); err != nil {
		return nil, err
	}
	if err := shared.Validate(s.validate, req); err != nil {
		return nil, err
	}

	group := &domain.Group{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Department: req.Department,
		City:       req.City,
		Site:       req.Site,
		Members:    lo.Uniq(append([]string{creator.UserID}, req.MemberIDs...)),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	s.logger.Info("Group created", "group_id", group.ID, "user_id", creator.UserID, "members", len(group.Members))
	s.directory.IndexGroup(group)
	return group, nil
}

// AddMember adds userID to the group. Adding an existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, actor domain.Identity, groupID, userID string) (*domain.Group, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	added, err := s.store.AddGroupMember(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	if added {
		s.logger.Info("Group member added", "group_id", groupID, "user_id", userID, "actor_id", actor.UserID)
	}
	return s.requireGroup(ctx, groupID)
}

// Group returns a group with its members.
func (s *Service) Group(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.requireGroup(ctx, groupID)
}

// GroupsFor lists the groups userID belongs to.
func (s *Service) GroupsFor(ctx context.Context, owner domain.Identity) ([]*domain.Group, error) {
	if err := requireIdentity(owner); err != nil {
		return nil, err
	}
	return s.store.GroupsForUser(ctx, owner.UserID)
}

// SearchUsers finds users by handle or display name.
func (s *Service) SearchUsers(ctx context.Context, q string, limit int) ([]*domain.User, error) {
	return s.directory.SearchUsers(ctx, q, limit)
}

// SearchGroups finds groups by name.
func (s *Service) SearchGroups(ctx context.Context, q string, limit int) ([]*domain.Group, error) {
	return s.directory.SearchGroups(ctx, q, limit)
}

// RegisterUser adds a user to the directory with default alert preferences.
func (s *Service) RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (*domain.User, error) {
	if err := shared.Validate(s.validate, req); err != nil {
		return nil, err
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Handle
	}

	user := &domain.User{
		ID:          uuid.NewString(),
		Handle:      req.Handle,
		DisplayName: displayName,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if _, err := s.store.EnsurePreferences(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("create default preferences: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "handle", user.Handle)
	s.directory.IndexUser(user)
	return user, nil
}
