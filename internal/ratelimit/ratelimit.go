// Package ratelimit paces feed requests.
package ratelimit

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces requests at least one interval apart.
type Limiter struct {
	limiter *rate.Limiter
}

// New uses 0 or negative interval for no pacing.
func New(interval time.Duration) *Limiter {
	// Burst of 1: the first request goes out immediately, later ones wait
	// for the interval to elapse.
	return &Limiter{
		limiter: rate.NewLimiter(limitFor(interval), 1),
	}
}

func limitFor(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

// Wait blocks until the next request may go out or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Interval returns the configured spacing, 0 when unpaced.
func (l *Limiter) Interval() time.Duration {
	limit := l.limiter.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(time.Second) / float64(limit)))
}
