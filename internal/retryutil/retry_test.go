package retryutil_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/retryutil"
)

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := retryutil.Do(context.Background(), retryutil.Config{MaxAttempts: 3, InitialDelay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := retryutil.Do(context.Background(), retryutil.Config{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
		MaxDelay:     10 * time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	sentinel := errors.New("permanent")
	err := retryutil.Do(context.Background(), retryutil.Config{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		ShouldRetry:  func(err error) bool { return false },
	}, func(ctx context.Context) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestDoExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	err := retryutil.Do(context.Background(), retryutil.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
		MaxDelay:     5 * time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryutil.Do(ctx, retryutil.Config{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		Multiplier:   1,
		MaxDelay:     time.Second,
	}, func(ctx context.Context) error {
		calls++
		return errors.New("fails")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls, "the sleep before attempt 2 must observe the cancelled context")
}
