package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/youssefsn2/PFE/internal/domain"
)

// Notifier persists an alert and then pushes it to the owner's live connections.
type Notifier struct {
	repo      Repository
	publisher domain.Publisher
	now       func() time.Time
}

// NewNotifier creates a Notifier.
func NewNotifier(repo Repository, publisher domain.Publisher) *Notifier {
	return &Notifier{repo: repo, publisher: publisher, now: time.Now}
}

// Deliver stores evt for owner and pushes it. Nothing is pushed when storing fails.
// The record is stamped with server time; evt.At only describes the reading.
func (n *Notifier) Deliver(ctx context.Context, owner string, evt domain.AlertEvent) (*domain.AlertRecord, error) {
	rec := &domain.AlertRecord{
		UserID:    owner,
		Type:      evt.Type,
		Message:   evt.Message,
		Timestamp: n.now().UTC(),
	}
	if err := n.repo.CreateAlert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}
	n.publisher.Publish(owner, domain.Event{Type: domain.EventAlert, Alert: rec})
	return rec, nil
}
