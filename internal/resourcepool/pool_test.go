package resourcepool

import (
	"context"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})
	if p.HTTPClient() == nil {
		t.Fatal("expected default HTTP client")
	}
	if err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Release()
}

func TestPool_Acquire_BlocksBeyondMaxConcurrent(t *testing.T) {
	p := New(Config{MaxConcurrent: 1})
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Release()

	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if err := p.Acquire(blockedCtx); err == nil {
		t.Fatal("expected second acquire to block until timeout")
	}
}

func TestPool_RateLimiter_AppliesConfiguredRate(t *testing.T) {
	p := New(Config{RequestsPerSecond: 1000, Burst: 1})
	if p.RateLimiter().Limit() <= 0 {
		t.Fatal("expected a positive configured rate limit")
	}
}

func TestPool_Close_IsSafe(t *testing.T) {
	p := New(Config{})
	p.Close()
}
