package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/youssefsn2/PFE/internal/domain"
)

// NoCooldown lets every alert through.
type NoCooldown struct{}

// Allow always returns true.
func (NoCooldown) Allow(context.Context, string, domain.AlertType) (bool, error) {
	return true, nil
}

// MemoryCooldown suppresses repeats of (user, type) within a window, in process.
type MemoryCooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

// NewMemoryCooldown creates a MemoryCooldown.
func NewMemoryCooldown(window time.Duration) *MemoryCooldown {
	return &MemoryCooldown{window: window, last: make(map[string]time.Time), now: time.Now}
}

// Allow reports whether no alert of this type fired for the user within the window.
func (c *MemoryCooldown) Allow(_ context.Context, userID string, alertType domain.AlertType) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cooldownKey(userID, alertType)
	now := c.now()
	if at, ok := c.last[key]; ok && now.Sub(at) < c.window {
		return false, nil
	}
	c.last[key] = now

	// Keep the map bounded by expired entries.
	if len(c.last) > 4096 {
		for k, at := range c.last {
			if now.Sub(at) >= c.window {
				delete(c.last, k)
			}
		}
	}
	return true, nil
}

// RedisCooldown shares the suppression window across restarts using SET NX PX.
type RedisCooldown struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedisCooldown connects to redisURL and verifies the connection.
func NewRedisCooldown(redisURL string, window time.Duration) (*RedisCooldown, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCooldownWithClient(client, window), nil
}

// NewRedisCooldownWithClient creates a cooldown from an existing client.
func NewRedisCooldownWithClient(client *redis.Client, window time.Duration) *RedisCooldown {
	return &RedisCooldown{client: client, window: window, prefix: "alert:cooldown:"}
}

// Allow claims the (user, type) slot for the window. Only the first caller wins.
func (c *RedisCooldown) Allow(ctx context.Context, userID string, alertType domain.AlertType) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+cooldownKey(userID, alertType), 1, c.window).Result()
	if err != nil {
		return false, fmt.Errorf("claim alert cooldown: %w", err)
	}
	return ok, nil
}

// Ping checks if Redis is reachable.
func (c *RedisCooldown) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCooldown) Close() error {
	return c.client.Close()
}

func cooldownKey(userID string, alertType domain.AlertType) string {
	return userID + ":" + string(alertType)
}
