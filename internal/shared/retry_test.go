package shared

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryOnConflict_RetriesBusy(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "insert", func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryOnConflict_DoesNotRetryOtherErrors(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	boom := errors.New("no such table: messages")
	err := p.Do(context.Background(), "insert", func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryOnConflict_GivesUp(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	err := p.Do(context.Background(), "update", func() error {
		return errors.New("SQLITE_BUSY")
	})
	if err == nil || !IsSQLiteBusyError(err) {
		t.Fatalf("expected wrapped busy error, got %v", err)
	}
}

func TestIsSQLiteUniqueError(t *testing.T) {
	if !IsSQLiteUniqueError(errors.New("constraint failed: UNIQUE constraint failed: users.handle (2067)")) {
		t.Error("expected unique violation to be detected")
	}
	if IsSQLiteUniqueError(nil) {
		t.Error("nil must not be a unique violation")
	}
}
