// Package backoff holds the wait policies the executor applies between
// conflicting apply attempts.
package backoff

import (
	"context"
	"fmt"
	"math"
	"time"

	expbackoff "github.com/cenkalti/backoff/v5"
)

// Policy maps a failed attempt number (starting at 1) to the wait before the
// next attempt. It only affects timing, never whether a retry happens.
type Policy interface {
	Delay(attempt int) time.Duration
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(attempt int) time.Duration

func (f PolicyFunc) Delay(attempt int) time.Duration {
	return f(attempt)
}

// Noop never waits. Used for deterministic, same-goroutine execution.
type Noop struct{}

func (Noop) Delay(int) time.Duration {
	return 0
}

// maxSteps bounds how many intervals Delay walks; past it the interval has
// long since reached its ceiling.
const maxSteps = 64

// JitterFactor is the randomization applied when Jitter is set: the wait is
// drawn from [delay*(1-JitterFactor), delay*(1+JitterFactor)], capped at Max.
const JitterFactor = 0.5

// Exponential waits Base * 2^(attempt-1), capped at Max. A zero Max means no
// cap.
type Exponential struct {
	Base   time.Duration
	Max    time.Duration
	Jitter bool
}

func NewExponential(base, max time.Duration, jitter bool) *Exponential {
	return &Exponential{Base: base, Max: max, Jitter: jitter}
}

func (e *Exponential) Delay(attempt int) time.Duration {
	if e == nil || e.Base <= 0 {
		return 0
	}

	ceiling := time.Duration(math.MaxInt64)
	if e.Max > 0 {
		ceiling = e.Max
	}

	b := &expbackoff.ExponentialBackOff{
		InitialInterval: e.Base,
		Multiplier:      2,
		MaxInterval:     ceiling,
	}
	if e.Jitter {
		b.RandomizationFactor = JitterFactor
	}
	b.Reset()

	steps := min(max(attempt, 1), maxSteps)
	var delay time.Duration
	for i := 0; i < steps; i++ {
		delay = b.NextBackOff()
	}

	if delay < 0 || delay > ceiling {
		return ceiling
	}
	return delay
}

// Sleep waits for d or until ctx is done, whichever happens first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	}
}
