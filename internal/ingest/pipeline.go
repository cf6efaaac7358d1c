package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/youssefsn2/PFE/internal/domain"
)

// Alerter fans readings and outages out to every alerting user.
type Alerter interface {
	Broadcast(ctx context.Context, r domain.Reading) (int, error)
	SensorOutage(ctx context.Context, sensor string, since time.Duration) (int, error)
}

// Pipeline turns raw sensor payloads into broadcast alerts.
type Pipeline struct {
	alerts   Alerter
	watchdog *Watchdog
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	latest *domain.Reading
}

// NewPipeline creates a Pipeline. watchdog may be nil.
func NewPipeline(alerts Alerter, watchdog *Watchdog, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{alerts: alerts, watchdog: watchdog, logger: logger, now: time.Now}
}

// Handle parses payload and broadcasts it. Malformed payloads are logged and dropped.
func (p *Pipeline) Handle(ctx context.Context, topic string, payload []byte) {
	reading, err := ParsePayload(payload)
	if err != nil {
		p.logger.Warn("Dropping malformed sensor payload", "error", err, "topic", topic, "payload", string(payload))
		return
	}
	reading.At = p.now().UTC()

	p.mu.Lock()
	p.latest = &reading
	p.mu.Unlock()

	if p.watchdog != nil {
		p.watchdog.Seen(reading.At)
	}

	n, err := p.alerts.Broadcast(ctx, reading)
	if err != nil {
		p.logger.Error("Failed to broadcast reading", "error", err, "topic", topic)
		return
	}
	p.logger.Debug("Sensor reading processed", "topic", topic, "aqi", reading.AQI, "alerts", n)
}

// Latest returns the most recent valid reading, or nil before the first one.
func (p *Pipeline) Latest() *domain.Reading {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return nil
	}
	r := *p.latest
	return &r
}
