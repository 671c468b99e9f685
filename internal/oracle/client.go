package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dln-labs/dln-ingest/internal/chain"
	"github.com/dln-labs/dln-ingest/internal/config"
	"github.com/dln-labs/dln-ingest/internal/model"
)

// httpClient fetches USD prices for a set of mints from the oracle
// HTTP API (spec §6): GET {priceEndpoint}?ids=mint1,mint2 -> JSON
// {mint: {usdPrice: number}}. Its HTTP client is the "oracle" entry of
// the same chain.Pool the chain RPC client draws from.
type httpClient struct {
	base    string
	apiKey  string
	timeout time.Duration
	hc      *http.Client
}

func newHTTPClient(cfg *config.Config, pool *chain.Pool) *httpClient {
	return &httpClient{
		base:    cfg.OracleURL,
		apiKey:  cfg.OracleAPIKey,
		timeout: cfg.OracleTimeout,
		hc:      pool.GetClient("oracle", cfg.OracleTimeout),
	}
}

type priceEntry struct {
	USDPrice decimal.Decimal `json:"usdPrice"`
}

// fetch performs one upstream batch request. It does not retry; the
// caller wraps it in retryutil per spec §4.2 step 3.
func (c *httpClient) fetch(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s?ids=%s", c.base, strings.Join(mints, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.NewPermanentError("oracle request build", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oracle: read body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("oracle: upstream status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, model.NewPermanentError("oracle upstream rejected request", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var parsed map[string]priceEntry
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, model.NewPermanentError("oracle response parse error", err)
	}

	out := make(map[string]decimal.Decimal, len(parsed))
	for mint, entry := range parsed {
		out[mint] = entry.USDPrice
	}
	return out, nil
}
