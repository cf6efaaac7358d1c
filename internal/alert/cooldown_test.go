package alert

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/youssefsn2/PFE/internal/domain"
)

func TestMemoryCooldown(t *testing.T) {
	c := NewMemoryCooldown(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := c.Allow(ctx, "u1", domain.AlertPM25); !ok {
		t.Fatal("first alert should pass")
	}
	if ok, _ := c.Allow(ctx, "u1", domain.AlertPM25); ok {
		t.Fatal("repeat within window should be suppressed")
	}
	if ok, _ := c.Allow(ctx, "u1", domain.AlertCO); !ok {
		t.Fatal("a different type has its own window")
	}
	if ok, _ := c.Allow(ctx, "u2", domain.AlertPM25); !ok {
		t.Fatal("a different user has its own window")
	}

	now = now.Add(time.Minute)
	if ok, _ := c.Allow(ctx, "u1", domain.AlertPM25); !ok {
		t.Fatal("alert should pass again after the window")
	}
}

func TestRedisCooldown(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := NewRedisCooldown("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("NewRedisCooldown failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	ok, err := c.Allow(ctx, "u1", domain.AlertNO2)
	if err != nil || !ok {
		t.Fatalf("first Allow = %v, %v", ok, err)
	}
	ok, err = c.Allow(ctx, "u1", domain.AlertNO2)
	if err != nil || ok {
		t.Fatalf("second Allow = %v, %v, want suppressed", ok, err)
	}
	if !s.Exists("alert:cooldown:u1:no2") {
		t.Error("expected cooldown key in redis")
	}

	s.FastForward(time.Minute + time.Second)
	ok, err = c.Allow(ctx, "u1", domain.AlertNO2)
	if err != nil || !ok {
		t.Fatalf("Allow after window = %v, %v", ok, err)
	}
}

func TestRedisCooldown_BadURL(t *testing.T) {
	if _, err := NewRedisCooldown("not a url", time.Minute); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
