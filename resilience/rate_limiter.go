package resilience

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	Name string
	// Rate is requests per second. Values at or below zero mean 10.
	Rate float64
	// Burst values below 1 default to the rate, rounded up.
	Burst int
	// Wait makes Execute block for a token instead of failing fast.
	Wait bool
}

// RateLimiter is a token bucket limiter.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
		if float64(config.Burst) < config.Rate {
			config.Burst++
		}
	}
	return &RateLimiter{config: config, limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst)}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool { return rl.limiter.Allow() }

// Wait blocks until a token is available or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error { return rl.limiter.Wait(ctx) }

// Execute runs fn after taking a token. Without Wait it returns
// ErrRateLimited when the bucket is empty.
func (rl *RateLimiter) Execute(ctx context.Context, fn func() error) error {
	if rl.config.Wait {
		if err := rl.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn()
	}
	if !rl.limiter.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// Burst returns the bucket size.
func (rl *RateLimiter) Burst() int { return rl.config.Burst }
