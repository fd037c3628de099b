package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
)

// Backoff describes how Retry spaces its attempts. Zero fields take the
// defaults of DefaultBackoff.
type Backoff struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
	// AttemptTimeout bounds each call to fn. Zero leaves attempts bounded
	// only by the caller's context.
	AttemptTimeout time.Duration
}

// DefaultBackoff is used for connecting to backing services at startup.
var DefaultBackoff = Backoff{
	Attempts:   3,
	Initial:    100 * time.Millisecond,
	Max:        10 * time.Second,
	Multiplier: 2,
	Jitter:     0.1,
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = DefaultBackoff.Attempts
	}
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max <= 0 {
		b.Max = DefaultBackoff.Max
	}
	if b.Multiplier <= 0 {
		b.Multiplier = DefaultBackoff.Multiplier
	}
	if b.Jitter <= 0 {
		b.Jitter = DefaultBackoff.Jitter
	}
	return b
}

// delay is the pause after the given failed attempt, counted from 1.
func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1))
	d += d * b.Jitter * (2*rand.Float64() - 1)
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d < 0 {
		d = float64(b.Initial)
	}
	return time.Duration(d)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, ctx ends or
// the attempts run out. The returned error wraps the last failure.
func Retry(ctx context.Context, op string, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	log := logger.WithComponent("retry").With("operation", op)

	var lastErr error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		lastErr = call(ctx, b.AttemptTimeout, fn)
		if lastErr == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("%s: %w", op, perm.err)
		}
		if attempt == b.Attempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: retry aborted: %w", op, err)
		}
		wait := b.delay(attempt)
		log.Warn("attempt failed, retrying",
			"attempt", attempt, "attempts", b.Attempts, "error", lastErr, "next_delay", wait)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted during backoff: %w", op, ctx.Err())
		}
	}
	log.Error("giving up", "attempts", b.Attempts, "error", lastErr)
	return fmt.Errorf("%s failed after %d attempts: %w", op, b.Attempts, lastErr)
}

func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
