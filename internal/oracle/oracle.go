package oracle

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dln-labs/dln-ingest/internal/chain"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/config"
	"github.com/dln-labs/dln-ingest/internal/model"
	"github.com/dln-labs/dln-ingest/internal/retryutil"
)

// Client is the production price oracle client (spec §4.2, C2).
type Client struct {
	log   zerolog.Logger
	store *checkpoint.Store
	http  *httpClient
	limit *singleFlightLimiter

	cacheTTL   time.Duration
	maxRetries int
}

// Pricer is satisfied by Client and by test fakes.
type Pricer interface {
	GetPrice(ctx context.Context, mint string) (decimal.Decimal, bool, error)
	GetPrices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error)
	Clear(ctx context.Context, mint string) error
	ClearAll(ctx context.Context) error
	BuildRows(ctx context.Context, transfers []model.TokenTransfer, meta RowMeta) ([]model.AnalyticsRow, error)
}

var _ Pricer = (*Client)(nil)

// New builds a price oracle client against the configured upstream and
// checkpoint store cache.
func New(cfg *config.Config, store *checkpoint.Store, pool *chain.Pool, log zerolog.Logger) *Client {
	return &Client{
		log:        log.With().Str("component", "oracle").Logger(),
		store:      store,
		http:       newHTTPClient(cfg, pool),
		limit:      newSingleFlightLimiter(cfg.OracleInterval),
		cacheTTL:   cfg.PriceCacheTTL,
		maxRetries: cfg.OracleMaxRetry,
	}
}

// GetPrice looks up a single mint, consulting the cache first.
func (c *Client) GetPrice(ctx context.Context, mint string) (decimal.Decimal, bool, error) {
	prices, err := c.GetPrices(ctx, []string{mint})
	if err != nil {
		return decimal.Zero, false, err
	}
	p, ok := prices[mint]
	return p, ok, nil
}

// GetPrices implements the §4.2 algorithm: split cached vs uncached,
// fetch the uncached set through the rate-limited, retried upstream
// call, write fresh prices back to the cache, and return whatever is
// known (cached entries survive an upstream failure; unknown mints are
// simply absent from the result).
func (c *Client) GetPrices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(mints))
	var uncached []string

	for _, mint := range mints {
		cached, ok, err := c.store.GetPrice(ctx, mint)
		if err != nil {
			c.log.Warn().Err(err).Str("mint", mint).Msg("price cache read failed, treating as uncached")
			uncached = append(uncached, mint)
			continue
		}
		if !ok {
			uncached = append(uncached, mint)
			continue
		}
		d, err := decimal.NewFromString(cached)
		if err != nil {
			uncached = append(uncached, mint)
			continue
		}
		result[mint] = d
	}

	if len(uncached) == 0 {
		return result, nil
	}

	fresh, err := c.fetchUncached(ctx, uncached)
	if err != nil {
		// Degrade: cached prices are still returned, uncached mints are
		// simply absent (spec §4.2 step 5, §4.7 step 9).
		c.log.Warn().Err(err).Int("mints", len(uncached)).Msg("oracle batch failed, degrading to known prices only")
		return result, nil
	}
	for mint, price := range fresh {
		result[mint] = price
		if err := c.store.SetPrice(ctx, mint, price.String(), c.cacheTTL); err != nil {
			c.log.Warn().Err(err).Str("mint", mint).Msg("failed to write price cache")
		}
	}
	return result, nil
}

// fetchUncached runs the upstream batch call behind the single-flight
// rate limiter, wrapped in bounded exponential-backoff retry (spec
// §4.2 steps 2-3: initial 1s, multiplier 2, cap 10s).
func (c *Client) fetchUncached(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	var fresh map[string]decimal.Decimal

	err := retryutil.Do(ctx, retryutil.Config{
		MaxAttempts:  c.maxRetries,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     10 * time.Second,
		ShouldRetry: func(err error) bool {
			return !model.IsPermanent(err)
		},
		OnRetry: func(attempt int, err error) {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("retrying oracle fetch")
		},
	}, func(ctx context.Context) error {
		return c.limit.Do(ctx, func(ctx context.Context) error {
			prices, err := c.http.fetch(ctx, mints)
			if err != nil {
				return err
			}
			fresh = prices
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// Clear evicts a single mint's cached price.
func (c *Client) Clear(ctx context.Context, mint string) error {
	return c.store.ClearPrice(ctx, mint)
}

// ClearAll evicts every cached price entry.
func (c *Client) ClearAll(ctx context.Context) error {
	return c.store.ClearAllPrices(ctx)
}
