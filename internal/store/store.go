// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/youssefsn2/PFE/internal/domain"
)

// UserStore is the minimal user directory.
type UserStore interface {
	// CreateUser inserts a user. A duplicate handle returns domain.ErrConflict.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID. Returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByHandle retrieves a user by handle. Returns nil, nil when absent.
	GetUserByHandle(ctx context.Context, handle string) (*domain.User, error)

	// SearchUsers matches handle or display name, case-insensitively.
	SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error)

	// ListUsers returns every user ordered by handle.
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// ChatStore persists messages, groups, membership and read state.
// It holds no business rules beyond the record invariants.
type ChatStore interface {
	// CreateMessage inserts a message and assigns its ID.
	CreateMessage(ctx context.Context, msg *domain.Message) error

	// GetMessage retrieves a message by ID. Returns nil, nil when absent.
	GetMessage(ctx context.Context, id int64) (*domain.Message, error)

	// PrivateHistory returns messages exchanged between a and b, oldest first.
	PrivateHistory(ctx context.Context, a, b string) ([]*domain.Message, error)

	// GroupHistory returns messages posted to a group, oldest first.
	GroupHistory(ctx context.Context, groupID string) ([]*domain.Message, error)

	// MarkPrivateRead flags every unread message from counterpart to owner as read
	// in one transaction and returns how many rows changed.
	MarkPrivateRead(ctx context.Context, owner, counterpart string) (int64, error)

	// CountPrivateUnread counts unread messages from counterpart to owner.
	CountPrivateUnread(ctx context.Context, owner, counterpart string) (int64, error)

	// UnreadPrivate returns every unread private message addressed to owner.
	UnreadPrivate(ctx context.Context, owner string) ([]*domain.Message, error)

	// MarkGroupRead advances the owner's read watermark to the latest group message.
	MarkGroupRead(ctx context.Context, groupID, owner string) (int64, error)

	// CountGroupUnread counts group messages from other members past the owner's watermark.
	CountGroupUnread(ctx context.Context, groupID, owner string) (int64, error)

	// CreateGroup inserts a group with its initial members in one transaction.
	CreateGroup(ctx context.Context, group *domain.Group) error

	// GetGroup retrieves a group with its members. Returns nil, nil when absent.
	GetGroup(ctx context.Context, groupID string) (*domain.Group, error)

	// AddGroupMember adds a user to a group in one write transaction.
	// Reports false when the user was already a member.
	AddGroupMember(ctx context.Context, groupID, userID string) (bool, error)

	// GroupMembers returns the current member IDs of a group.
	GroupMembers(ctx context.Context, groupID string) ([]string, error)

	// GroupsForUser lists the groups a user belongs to.
	GroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error)

	// SearchGroups matches group names, case-insensitively.
	SearchGroups(ctx context.Context, query string, limit int) ([]*domain.Group, error)

	// ListGroups returns every group without members.
	ListGroups(ctx context.Context) ([]*domain.Group, error)
}

// PreferencesStore persists per-user alert thresholds.
type PreferencesStore interface {
	// GetPreferences returns the user's preferences. Returns nil, nil when absent.
	GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error)

	// EnsurePreferences creates default preferences when none exist and returns the stored row.
	EnsurePreferences(ctx context.Context, userID string) (*domain.Preferences, error)

	// UpsertPreferences creates or replaces the user's preferences.
	UpsertPreferences(ctx context.Context, prefs *domain.Preferences) error

	// AlertingUsers lists users whose alerting is enabled.
	AlertingUsers(ctx context.Context) ([]string, error)
}

// AlertStore persists alert records.
type AlertStore interface {
	// CreateAlert appends an alert record and assigns its ID.
	CreateAlert(ctx context.Context, rec *domain.AlertRecord) error

	// AlertsForUser returns the user's alerts, newest first.
	AlertsForUser(ctx context.Context, userID string, limit int) ([]*domain.AlertRecord, error)
}

// Repository aggregates every persistence concern of the server.
type Repository interface {
	UserStore
	ChatStore
	PreferencesStore
	AlertStore

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
