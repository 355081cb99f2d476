package raxftp

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds connection-establishment attempts with exponential
// backoff. The same policy drives the initial control dial and passive-mode
// data dials.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; each later attempt
	// doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the per-attempt delay. Zero means no cap.
	MaxDelay time.Duration
}

// defaultRetryPolicy matches the connection behavior of a stock client:
// three attempts, half a second base delay, capped at ten seconds.
var defaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    10 * time.Second,
}

// Delay returns the pause before the given 1-indexed attempt: zero for the
// first attempt, then BaseDelay * 2^(attempt-2) capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << uint(attempt-2)
	// Guard against shift overflow on absurd attempt counts.
	if d < p.BaseDelay {
		d = p.MaxDelay
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// retry runs op up to p.MaxAttempts times, sleeping the policy delay between
// attempts. Only transient transport faults (refused, timeout) are retried;
// any other error, and the last error once attempts are exhausted, surface
// to the caller. The inter-attempt sleep is preempted by ctx cancellation.
func retry[T any](ctx context.Context, logger *slog.Logger, p RetryPolicy, op func() (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := p.Delay(attempt); delay > 0 {
			logger.Debug("retrying after backoff", "attempt", attempt, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !isTransient(err) {
			return zero, err
		}
		logger.Debug("attempt failed", "attempt", attempt, "err", err)
	}
	return zero, lastErr
}
