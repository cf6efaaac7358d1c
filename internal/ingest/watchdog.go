package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// OutageNotifier is told when the sensor has gone quiet.
type OutageNotifier interface {
	SensorOutage(ctx context.Context, sensor string, since time.Duration) (int, error)
}

// Watchdog raises one sensor alert per outage when no reading arrives within staleAfter.
type Watchdog struct {
	sensor     string
	staleAfter time.Duration
	notifier   OutageNotifier
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	last  time.Time
	fired bool
}

// NewWatchdog creates a Watchdog. The clock starts at creation so a sensor
// that never reports is also detected.
func NewWatchdog(sensor string, staleAfter time.Duration, notifier OutageNotifier, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		sensor:     sensor,
		staleAfter: staleAfter,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
		last:       time.Now(),
	}
}

// Seen records a reading and re-arms the watchdog.
func (w *Watchdog) Seen(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if at.After(w.last) {
		w.last = at
	}
	if w.fired {
		w.logger.Info("Sensor readings resumed", "sensor", w.sensor)
		w.fired = false
	}
}

// Check raises the outage alert if the sensor is stale and it has not fired yet.
// It reports whether an alert was raised.
func (w *Watchdog) Check(ctx context.Context) bool {
	w.mu.Lock()
	silent := w.now().Sub(w.last)
	if w.fired || silent < w.staleAfter {
		w.mu.Unlock()
		return false
	}
	w.fired = true
	w.mu.Unlock()

	n, err := w.notifier.SensorOutage(ctx, w.sensor, silent)
	if err != nil {
		w.logger.Error("Failed to raise sensor outage alert", "error", err, "sensor", w.sensor)
		// Try again on the next tick.
		w.mu.Lock()
		w.fired = false
		w.mu.Unlock()
		return false
	}
	w.logger.Warn("Sensor outage detected", "sensor", w.sensor, "silent_for", silent, "alerts", n)
	return true
}

// Start runs Check on a ticker until ctx is cancelled.
func (w *Watchdog) Start(ctx context.Context) {
	interval := w.staleAfter / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		w.logger.Info("Sensor watchdog started", "sensor", w.sensor, "stale_after", w.staleAfter, "interval", interval)

		for {
			select {
			case <-ticker.C:
				w.Check(ctx)
			case <-ctx.Done():
				w.logger.Info("Sensor watchdog shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
