package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLimiterBlocksAfterBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	l, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.RecordFailure(ctx, "eve@example.com", "10.0.0.1"); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}
	if err := l.CheckLogin(ctx, "eve@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("two failures should still be allowed: %v", err)
	}
	if err := l.RecordFailure(ctx, "EVE@example.com ", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected third failure to hit the limit, got %v", err)
	}
	if err := l.CheckLogin(ctx, "eve@example.com", "10.0.0.2"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("email counter should block from another IP, got %v", err)
	}
	if n, _ := l.Attempts(ctx, "eve@example.com"); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestLimiterIPCounterSpansEmails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	l, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "a@example.com", "10.0.0.9")
	_ = l.RecordFailure(ctx, "b@example.com", "10.0.0.9")
	if err := l.CheckLogin(ctx, "c@example.com", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP throttle, got %v", err)
	}
	if err := l.CheckLogin(ctx, "c@example.com", "10.0.0.10"); err != nil {
		t.Fatalf("other IP should pass: %v", err)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.Window = time.Minute
	l, mr := newTestLimiter(t, cfg)
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "eve@example.com", "")
	if err := l.CheckLogin(ctx, "eve@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limit, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "eve@example.com", ""); err != nil {
		t.Fatalf("window should have expired: %v", err)
	}
}

func TestLimiterResetClearsCounters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	l, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "eve@example.com", "10.0.0.1")
	if err := l.Reset(ctx, "eve@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "eve@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("expected counters cleared, got %v", err)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, DefaultConfig())
	mr.SetError("ERR injected failure")
	err := l.RecordFailure(context.Background(), "eve@example.com", "")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	ctx := context.Background()
	if err := l.CheckLogin(ctx, "x", "y"); err != nil {
		t.Fatalf("nil limiter should allow: %v", err)
	}
	if err := l.RecordFailure(ctx, "x", "y"); err != nil {
		t.Fatalf("nil limiter should not count: %v", err)
	}
	if New(nil, DefaultConfig()) != nil {
		t.Fatalf("expected nil limiter without redis")
	}
	cfg := DefaultConfig()
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 0
	if cfg.Validate() == nil {
		t.Fatalf("expected error for zero attempts")
	}
	cfg = DefaultConfig()
	cfg.Window = 0
	if cfg.Validate() == nil {
		t.Fatalf("expected error for zero window")
	}
}
