// Package resourcepool provides the shared resources handed to adapters
// and enrichers: an HTTP client, a token-bucket rate limiter, and a
// global concurrency semaphore. Pool lifetime is tied to the
// orchestrator's open scope.
package resourcepool

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config configures a Pool. Zero values fall back to sensible defaults:
// unlimited rate, a single concurrency slot, and a 30s-timeout client.
type Config struct {
	// RequestsPerSecond throttles HTTP-bound adapters. Zero means
	// unlimited.
	RequestsPerSecond float64

	// Burst is the rate limiter's token bucket size. Defaults to 1 if
	// RequestsPerSecond is set and Burst is zero.
	Burst int

	// MaxConcurrent bounds the number of concurrent acquisitions via
	// Acquire/Release. Zero means 1.
	MaxConcurrent int64

	// HTTPTimeout bounds a single HTTP round trip. Zero means 30s.
	HTTPTimeout time.Duration

	// HTTPClient overrides the default client entirely, ignoring
	// HTTPTimeout.
	HTTPClient *http.Client
}

// Pool is a set of shared resources, safe for concurrent use by
// multiple adapters/enrichers.
type Pool struct {
	client  *http.Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// New builds a Pool from cfg, applying defaults for unset fields.
func New(cfg Config) *Pool {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.HTTPTimeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst == 0 {
			burst = 1
		}
	}
	if burst == 0 {
		burst = 1
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Pool{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		sem:     semaphore.NewWeighted(maxConcurrent),
	}
}

// HTTPClient returns the shared HTTP client.
func (p *Pool) HTTPClient() *http.Client { return p.client }

// RateLimiter returns the shared token-bucket limiter.
func (p *Pool) RateLimiter() *rate.Limiter { return p.limiter }

// Acquire blocks until a concurrency slot is available or ctx is
// cancelled.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release returns a concurrency slot acquired via Acquire.
func (p *Pool) Release() {
	p.sem.Release(1)
}

// Close releases pool-held resources. The HTTP client's idle
// connections are closed; the rate limiter and semaphore need no
// teardown.
func (p *Pool) Close() {
	p.client.CloseIdleConnections()
}
