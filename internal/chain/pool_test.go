package chain_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/chain"
)

func TestPoolReusesClientPerName(t *testing.T) {
	pool := chain.NewPool(chain.DefaultPoolConfig())
	defer pool.Close()

	a := pool.GetClient("chain-rpc", time.Second)
	b := pool.GetClient("chain-rpc", 5*time.Second)
	require.Same(t, a, b, "a second call for the same logical name must return the cached client")

	c := pool.GetClient("oracle", time.Second)
	require.NotSame(t, a, c, "distinct logical names get distinct clients")
}

func TestPoolClientHasTransport(t *testing.T) {
	pool := chain.NewPool(chain.DefaultPoolConfig())
	defer pool.Close()

	client := pool.GetClient("chain-rpc", 2*time.Second)
	require.Equal(t, 2*time.Second, client.Timeout)

	_, ok := client.Transport.(*http.Transport)
	require.True(t, ok, "pool-issued clients use the pool's *http.Transport")
}
