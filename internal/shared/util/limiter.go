package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket for re-runs triggered by file changes.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter allows r events per second with bursts of b. A non-positive
// rate disables limiting.
func NewLimiter(r float64, b int) *Limiter {
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	if b < 1 {
		b = 1
	}
	return &Limiter{inner: rate.NewLimiter(limit, b)}
}

func (l *Limiter) Allow() bool {
	return l.inner.Allow()
}

// Wait blocks until an event may happen and reports whether it had to wait.
func (l *Limiter) Wait(ctx context.Context) (bool, error) {
	r := l.inner.Reserve()
	if !r.OK() {
		return false, l.inner.Wait(ctx)
	}
	d := r.Delay()
	if d == 0 {
		return false, nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true, nil
	case <-ctx.Done():
		r.Cancel()
		return true, ctx.Err()
	}
}

// SetRate changes the rate, used when the config is reloaded.
func (l *Limiter) SetRate(r float64) {
	if r <= 0 {
		l.inner.SetLimit(rate.Inf)
		return
	}
	l.inner.SetLimit(rate.Limit(r))
}
