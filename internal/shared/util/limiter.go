package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by the requests of one API client.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a limiter refilling r tokens per second up to burst b.
// A non-positive r disables limiting.
func NewLimiter(r float64, b int) *Limiter {
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	return &Limiter{inner: rate.NewLimiter(limit, b)}
}

// Allow reports whether n tokens are available now and consumes them if so.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}

// RetryAfter estimates how long a caller should back off before one more
// token is available. It does not consume tokens.
func (l *Limiter) RetryAfter() time.Duration {
	r := l.inner.ReserveN(time.Now(), 1)
	if !r.OK() {
		return time.Second
	}
	delay := r.Delay()
	r.Cancel()
	return delay
}
