package store

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// newLimiter returns a token bucket allowing perSecond requests with a burst
// of one, or nil when throttling is disabled.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// wait blocks until the limiter admits one request. A nil limiter admits
// everything.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// contextErr returns err when it is a cancellation or deadline error, so
// callers see context errors unwrapped.
func contextErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
