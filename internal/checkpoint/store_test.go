package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/config"
)

func newTestStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := checkpoint.New(&config.Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSeenDedup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seen, err := store.IsSeen(ctx, "sig1")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, store.MarkSeen(ctx, "sig1", time.Minute))

	seen, err = store.IsSeen(ctx, "sig1")
	require.NoError(t, err)
	require.True(t, seen)
}

func TestAdvanceLastProcessedSlotOnlyMovesForward(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AdvanceLastProcessedSlot(ctx, "prog", 100))
	slot, err := store.LastProcessedSlot(ctx, "prog")
	require.NoError(t, err)
	require.EqualValues(t, 100, slot)

	require.NoError(t, store.AdvanceLastProcessedSlot(ctx, "prog", 50))
	slot, err = store.LastProcessedSlot(ctx, "prog")
	require.NoError(t, err)
	require.EqualValues(t, 100, slot, "a lower slot must not regress the watermark")

	require.NoError(t, store.AdvanceLastProcessedSlot(ctx, "prog", 150))
	slot, err = store.LastProcessedSlot(ctx, "prog")
	require.NoError(t, err)
	require.EqualValues(t, 150, slot)
}

func TestProcessedCountAbsentByDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, found, err := store.ProcessedCount(ctx, "prog")
	require.NoError(t, err)
	require.False(t, found)
	require.Zero(t, count)

	n, err := store.IncrementProcessedCount(ctx, "prog", 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = store.IncrementProcessedCount(ctx, "prog", 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	count, found, err = store.ProcessedCount(ctx, "prog")
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 5, count)
}

func TestPriceCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetPrice(ctx, "mint1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SetPrice(ctx, "mint1", "1.23", time.Minute))
	price, ok, err := store.GetPrice(ctx, "mint1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1.23", price)

	require.NoError(t, store.ClearPrice(ctx, "mint1"))
	_, ok, err = store.GetPrice(ctx, "mint1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClearAllPrices(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPrice(ctx, "mintA", "1", time.Minute))
	require.NoError(t, store.SetPrice(ctx, "mintB", "2", time.Minute))

	require.NoError(t, store.ClearAllPrices(ctx))

	_, ok, err := store.GetPrice(ctx, "mintA")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = store.GetPrice(ctx, "mintB")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
}
