package oracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/chain"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/config"
	"github.com/dln-labs/dln-ingest/internal/oracle"
)

func newTestOracle(t *testing.T, handler http.HandlerFunc) (*oracle.Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	store, err := checkpoint.New(&config.Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		OracleURL:      srv.URL,
		OracleInterval: time.Millisecond,
		OracleTimeout:  5 * time.Second,
		OracleMaxRetry: 3,
		PriceCacheTTL:  time.Minute,
	}
	pool := chain.NewPool(chain.DefaultPoolConfig())
	t.Cleanup(pool.Close)

	return oracle.New(cfg, store, pool, discardLogger()), &calls
}

func TestGetPriceFetchesAndCaches(t *testing.T) {
	c, calls := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]map[string]string{
			"mintA": {"usdPrice": "1.50"},
		})
	})

	ctx := context.Background()
	price, ok, err := c.GetPrice(ctx, "mintA")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1.5", price.String())
	require.EqualValues(t, 1, atomic.LoadInt32(calls))

	// Second lookup is served from the checkpoint store cache, not a
	// second upstream call.
	price, ok, err = c.GetPrice(ctx, "mintA")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1.5", price.String())
	require.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestGetPricesDegradesOnUpstreamFailure(t *testing.T) {
	c, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	prices, err := c.GetPrices(context.Background(), []string{"mintX"})
	require.NoError(t, err, "degrade path must not bubble the upstream error")
	require.Empty(t, prices, "an unknown mint is simply absent from the result")
}

func TestGetPricesPermanentErrorSkipsRetry(t *testing.T) {
	c, calls := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad ids"}`))
	})

	prices, err := c.GetPrices(context.Background(), []string{"mintBad"})
	require.NoError(t, err)
	require.Empty(t, prices)
	require.EqualValues(t, 1, atomic.LoadInt32(calls), "a 4xx classifies permanent and must not retry")
}

func TestClearAndClearAll(t *testing.T) {
	c, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]map[string]string{
			"mintA": {"usdPrice": "2"},
		})
	})

	ctx := context.Background()
	_, _, err := c.GetPrice(ctx, "mintA")
	require.NoError(t, err)

	require.NoError(t, c.Clear(ctx, "mintA"))
	require.NoError(t, c.ClearAll(ctx))
}
