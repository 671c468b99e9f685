// Package retryutil centralizes the retry-with-backoff pattern used
// throughout this pipeline. Every network call goes through Do instead
// of hand-rolling a loop.
package retryutil

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config parameterizes a retry policy (spec §9 "Ad-hoc retry code").
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// ShouldRetry decides whether a given error is retryable. A nil
	// ShouldRetry retries every error until MaxAttempts is exhausted.
	ShouldRetry func(err error) bool
	// OnRetry, if set, is called before each sleep with the attempt
	// number (1-based) and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// Do runs fn, retrying on failure per cfg until it succeeds, a
// non-retryable error is returned, MaxAttempts is exhausted, or ctx is
// cancelled. The final error is returned unwrapped so callers can still
// classify it with model.IsPermanent/IsTransient.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.Multiplier = cfg.Multiplier
	b.MaxInterval = cfg.MaxDelay
	b.MaxElapsedTime = 0 // bounded by MaxAttempts, not wall time
	// NewExponentialBackOff already reset its interval to the library
	// default; reset again so the first wait starts from InitialDelay.
	b.Reset()
	bo := backoff.WithContext(b, ctx)

	var lastErr error
	attempt := 0
	for {
		attempt++
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(lastErr) {
			return lastErr
		}
		if attempt >= cfg.MaxAttempts {
			return lastErr
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			return lastErr
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
