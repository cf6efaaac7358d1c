//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=mocks/mock_contract.go -package=mocks
package alert

import (
	"context"

	"github.com/youssefsn2/PFE/internal/domain"
)

// PreferencesReader loads alert thresholds.
type PreferencesReader interface {
	GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error)
}

// Repository persists alert records.
type Repository interface {
	CreateAlert(ctx context.Context, rec *domain.AlertRecord) error
}

// AudienceLister lists users that receive broadcast alerts.
type AudienceLister interface {
	AlertingUsers(ctx context.Context) ([]string, error)
}

// Cooldown decides whether an alert of a given type may fire for a user now.
type Cooldown interface {
	Allow(ctx context.Context, userID string, alertType domain.AlertType) (bool, error)
}
