// Package ratelimit paces outbound work against remote providers.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is the cool-down between units of work. Every Wait pauses for at
// least one full interval from the moment it is called, however long the
// preceding work took. The token bucket (burst 1) additionally keeps
// successive waits from finishing closer than one interval apart. A zero
// interval never blocks.
type Throttle struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewThrottle returns a Throttle pausing for interval on every Wait.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Interval returns the configured cool-down.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Wait blocks for the cool-down or until ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.interval <= 0 {
		return nil
	}

	now := time.Now()
	r := t.limiter.ReserveN(now, 1)
	if !r.OK() {
		return t.limiter.Wait(ctx)
	}
	delay := r.DelayFrom(now)
	if delay < t.interval {
		delay = t.interval
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.CancelAt(time.Now())
		return ctx.Err()
	}
}
