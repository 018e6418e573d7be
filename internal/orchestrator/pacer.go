package orchestrator

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out external translation calls. Wait is called once after
// every call and blocks until the next call may start.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PacerFunc adapts a function to the Pacer interface.
type PacerFunc func(ctx context.Context) error

func (f PacerFunc) Wait(ctx context.Context) error { return f(ctx) }

type fixedDelay struct {
	d time.Duration
}

// FixedDelay returns a Pacer that sleeps for d after each call.
// A zero or negative d never waits.
func FixedDelay(d time.Duration) Pacer {
	return fixedDelay{d: d}
}

func (p fixedDelay) Wait(ctx context.Context) error {
	if p.d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type rateLimit struct {
	limiter *rate.Limiter
}

// RateLimit returns a Pacer that lets at most one call start per interval.
// Unlike FixedDelay it counts the call's own latency towards the interval, so
// a slow call leaves less (or no) time to wait.
func RateLimit(every time.Duration) Pacer {
	l := rate.NewLimiter(rate.Every(every), 1)
	// The pacer is consulted after the first call, so that call has already
	// used the only token.
	l.Allow()
	return &rateLimit{limiter: l}
}

func (p *rateLimit) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
