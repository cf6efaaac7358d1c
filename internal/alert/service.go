package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/youssefsn2/PFE/internal/domain"
)

// Service evaluates readings and delivers the resulting alerts.
type Service struct {
	engine   *Engine
	notifier *Notifier
	cooldown Cooldown
	audience AudienceLister
	logger   *slog.Logger
}

// NewService creates an alert Service. A nil cooldown disables suppression.
func NewService(engine *Engine, notifier *Notifier, cooldown Cooldown, audience AudienceLister, logger *slog.Logger) *Service {
	if cooldown == nil {
		cooldown = NoCooldown{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, notifier: notifier, cooldown: cooldown, audience: audience, logger: logger}
}

// Process evaluates r for owner and delivers every resulting alert.
func (s *Service) Process(ctx context.Context, owner string, r domain.Reading) ([]*domain.AlertRecord, error) {
	events, err := s.engine.Evaluate(ctx, owner, r)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, owner, events)
}

func (s *Service) deliver(ctx context.Context, owner string, events []domain.AlertEvent) ([]*domain.AlertRecord, error) {
	records := make([]*domain.AlertRecord, 0, len(events))
	for _, evt := range events {
		allowed, err := s.cooldown.Allow(ctx, owner, evt.Type)
		if err != nil {
			// Fail open.
			s.logger.Warn("Alert cooldown unavailable", "error", err, "user_id", owner, "alert_type", evt.Type)
			allowed = true
		}
		if !allowed {
			s.logger.Debug("Alert suppressed by cooldown", "user_id", owner, "alert_type", evt.Type)
			continue
		}

		rec, err := s.notifier.Deliver(ctx, owner, evt)
		if err != nil {
			return records, fmt.Errorf("deliver %s alert: %w", evt.Type, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Broadcast processes r for every user with alerting enabled.
// A failure for one user does not stop the others.
func (s *Service) Broadcast(ctx context.Context, r domain.Reading) (int, error) {
	users, err := s.audience.AlertingUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alerting users: %w", err)
	}

	total := 0
	for _, userID := range users {
		records, err := s.Process(ctx, userID, r)
		total += len(records)
		if err != nil {
			s.logger.Error("Failed to process reading", "error", err, "user_id", userID)
		}
	}
	return total, nil
}

// SensorOutage raises one sensor alert for every user with alerting enabled.
func (s *Service) SensorOutage(ctx context.Context, sensor string, since time.Duration) (int, error) {
	return s.each(ctx, func(userID string) ([]domain.AlertEvent, error) {
		return s.engine.SensorDisconnected(ctx, userID, sensor, since)
	})
}

// SystemFailure raises one system alert for every user with alerting enabled.
func (s *Service) SystemFailure(ctx context.Context, detail string) (int, error) {
	return s.each(ctx, func(userID string) ([]domain.AlertEvent, error) {
		return s.engine.SystemError(ctx, userID, detail)
	})
}

func (s *Service) each(ctx context.Context, eval func(userID string) ([]domain.AlertEvent, error)) (int, error) {
	users, err := s.audience.AlertingUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alerting users: %w", err)
	}

	total := 0
	for _, userID := range users {
		events, err := eval(userID)
		if err != nil {
			s.logger.Error("Failed to evaluate alert", "error", err, "user_id", userID)
			continue
		}
		records, err := s.deliver(ctx, userID, events)
		total += len(records)
		if err != nil {
			s.logger.Error("Failed to deliver alert", "error", err, "user_id", userID)
		}
	}
	return total, nil
}
