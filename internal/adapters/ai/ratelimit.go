package ai

import (
	"context"

	"golang.org/x/time/rate"

	"sentinel/pkg/errors"
)

// RateLimiter gates outbound LLM requests.
type RateLimiter interface {
	// Wait blocks until a request can proceed or the context is cancelled.
	Wait(ctx context.Context) error

	// Allow checks if a request can proceed without blocking.
	Allow() bool
}

// Limiter wraps a token bucket sized from a per-minute budget.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a rate limiter.
// requestsPerMinute: maximum number of requests allowed per minute
func NewLimiter(name string, requestsPerMinute int) *Limiter {
	rps := float64(requestsPerMinute) / 60.0

	// Allow burst of 10% of per-minute limit
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows the request
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// NoOpLimiter never blocks. Used in tests and when rate limiting is
// disabled.
type NoOpLimiter struct{}

func (NoOpLimiter) Wait(ctx context.Context) error { return nil }
func (NoOpLimiter) Allow() bool                    { return true }
