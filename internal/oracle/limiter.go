// Package oracle implements the price oracle client (spec §4.2, C2):
// cached, single-flight rate-limited USD price lookups with bounded
// retry and graceful degradation to zero price.
package oracle

import (
	"context"
	"sync"
	"time"
)

// singleFlightLimiter serializes calls to Do behind a minimum
// inter-call interval, admitting one in-flight call at a time in FIFO
// order (spec §4.2 "single-flight rate limiter"). A one-slot channel
// admits one caller at a time, and a timer waits out whatever remains of
// minInterval since the previous call finished (tracked in last).
type singleFlightLimiter struct {
	minInterval time.Duration

	mu   sync.Mutex
	last time.Time
	gate chan struct{}
}

func newSingleFlightLimiter(minInterval time.Duration) *singleFlightLimiter {
	l := &singleFlightLimiter{minInterval: minInterval, gate: make(chan struct{}, 1)}
	l.gate <- struct{}{}
	return l
}

// Do acquires the single slot, waits out the minimum interval since
// the previous call if necessary, then runs fn. Callers queue in FIFO
// order on the channel.
func (l *singleFlightLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.gate:
	}
	defer func() { l.gate <- struct{}{} }()

	l.mu.Lock()
	wait := time.Until(l.last.Add(l.minInterval))
	l.mu.Unlock()
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	err := fn(ctx)

	l.mu.Lock()
	l.last = time.Now()
	l.mu.Unlock()

	return err
}
