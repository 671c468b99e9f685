// Package checkpoint implements the idempotency / checkpoint store
// (spec §4.8): dedup markers, the per-program last-processed slot
// watermark, processed-transaction counters, and the price cache's
// key/value backing. It is the only cross-process contract in the
// system (spec §9 "Multi-process coordination").
package checkpoint

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dln-labs/dln-ingest/internal/config"
)

// Store is a namespaced key/value surface over a single *redis.Client,
// covering the GET/SET/EX/INCRBY/EXISTS primitives the pipeline needs.
type Store struct {
	rdb *redis.Client
}

// New creates a checkpoint store from the configured Redis URL.
func New(cfg *config.Config) (*Store, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &Store{rdb: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity, used by the health/admin surface (C10).
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.rdb.Close() }

func lastSlotKey(programID string) string { return fmt.Sprintf("indexer:last_slot:%s", programID) }
func indexedKey(signature string) string  { return fmt.Sprintf("tx:indexed:%s", signature) }
func processedCountKey(programID string) string {
	return fmt.Sprintf("worker:stats:%s:processed_count", programID)
}
func priceKey(mint string) string { return fmt.Sprintf("price:%s", mint) }

// --- Seen-signature dedup (realtime indexer, C5) ---

// MarkSeen sets the short-TTL dedup marker for signature, per spec §4.5
// step 4 / §4.8.
func (s *Store) MarkSeen(ctx context.Context, signature string, ttl time.Duration) error {
	return s.rdb.Set(ctx, indexedKey(signature), "1", ttl).Err()
}

// IsSeen reports whether signature has already been enqueued by the
// realtime indexer within the dedup TTL window (spec §4.5 step 1).
func (s *Store) IsSeen(ctx context.Context, signature string) (bool, error) {
	n, err := s.rdb.Exists(ctx, indexedKey(signature)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- Last-processed slot watermark (C5 writer, C6 reader in spirit) ---

// LastProcessedSlot returns the stored watermark for programID, or 0 if
// none has been recorded yet.
func (s *Store) LastProcessedSlot(ctx context.Context, programID string) (uint64, error) {
	v, err := s.rdb.Get(ctx, lastSlotKey(programID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("checkpoint: corrupt last_slot value %q: %w", v, err)
	}
	return n, nil
}

// AdvanceLastProcessedSlot writes slot as the new watermark only if it
// exceeds the stored value (spec §5 "last-processed slot is written
// only when the new value exceeds the stored one").
func (s *Store) AdvanceLastProcessedSlot(ctx context.Context, programID string, slot uint64) error {
	current, err := s.LastProcessedSlot(ctx, programID)
	if err != nil {
		return err
	}
	if slot <= current {
		return nil
	}
	return s.rdb.Set(ctx, lastSlotKey(programID), strconv.FormatUint(slot, 10), 0).Err()
}

// --- Processed counter (C7 writer, C4/C6 readers) ---

// ProcessedCount returns the current counter value for programID, or 0
// if the key has never been written (the caller falls back to the
// analytics store per spec §4.6).
func (s *Store) ProcessedCount(ctx context.Context, programID string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, processedCountKey(programID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint: corrupt processed_count value %q: %w", v, err)
	}
	return n, true, nil
}

// IncrementProcessedCount atomically adds delta to the programID
// counter and returns the new value (spec §4.7 step 11).
func (s *Store) IncrementProcessedCount(ctx context.Context, programID string, delta int64) (int64, error) {
	return s.rdb.IncrBy(ctx, processedCountKey(programID), delta).Result()
}

// --- Price cache (C2) ---

// GetPrice returns the cached price string for mint, if present.
func (s *Store) GetPrice(ctx context.Context, mint string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, priceKey(mint)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetPrice caches price for mint with the configured TTL.
func (s *Store) SetPrice(ctx context.Context, mint, price string, ttl time.Duration) error {
	return s.rdb.Set(ctx, priceKey(mint), price, ttl).Err()
}

// ClearPrice removes a single mint's cached price.
func (s *Store) ClearPrice(ctx context.Context, mint string) error {
	return s.rdb.Del(ctx, priceKey(mint)).Err()
}

// ClearAllPrices removes every cached price entry.
func (s *Store) ClearAllPrices(ctx context.Context) error {
	keys, err := s.rdb.Keys(ctx, "price:*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}
