// Package analytics adapts rows produced by the enrichment worker into
// the columnar analytics store (spec §4.9, C9). It writes for real
// against clickhouse-go/v2, using the driver's async-insert setting so
// the server batches writes from many worker processes and this client
// only waits for the broker's acknowledgment (spec §4.9, glossary
// "Async insert").
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/dln-labs/dln-ingest/internal/config"
	"github.com/dln-labs/dln-ingest/internal/model"
)

// Writer is satisfied by the production ClickHouse adapter and by test
// fakes.
type Writer interface {
	Insert(ctx context.Context, rows []model.AnalyticsRow) error
	CountDistinctSignatures(ctx context.Context, programID string) (int64, error)
	Close() error
}

// ClickHouseWriter appends rows to the `transactions` table using
// server-side async inserts with client-side acknowledgment.
type ClickHouseWriter struct {
	conn  clickhouse.Conn
	table string
}

// NewClickHouseWriter opens a connection and runs TransactionsSchema,
// which creates the `transactions` table if absent. A different
// cfg.ClickHouseTable is written to and queried but not created.
func NewClickHouseWriter(ctx context.Context, cfg *config.Config) (*ClickHouseWriter, error) {
	if cfg.ClickHouseDSN == "" {
		return nil, fmt.Errorf("analytics: CLICKHOUSE_DSN is required")
	}
	opts, err := clickhouse.ParseDSN(cfg.ClickHouseDSN)
	if err != nil {
		return nil, fmt.Errorf("analytics: invalid CLICKHOUSE_DSN: %w", err)
	}
	if opts.Settings == nil {
		opts.Settings = clickhouse.Settings{}
	}
	// Server batches rows from every worker process and flushes
	// asynchronously; wait_for_async_insert keeps Insert() from
	// returning until the broker has accepted the batch (spec §4.9).
	opts.Settings["async_insert"] = 1
	opts.Settings["wait_for_async_insert"] = 1
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("analytics: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("analytics: ping: %w", err)
	}
	if err := conn.Exec(ctx, TransactionsSchema); err != nil {
		return nil, fmt.Errorf("analytics: ensure schema: %w", err)
	}

	return &ClickHouseWriter{conn: conn, table: cfg.ClickHouseTable}, nil
}

// Insert appends rows in a single batch. It does not retry: retry is
// the worker's responsibility (nack on failure), per spec §4.9.
func (w *ClickHouseWriter) Insert(ctx context.Context, rows []model.AnalyticsRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", w.table))
	if err != nil {
		return fmt.Errorf("analytics: prepare batch: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rows {
		updatedAt := r.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if err := batch.Append(
			r.Signature,
			r.Slot,
			r.BlockTime,
			r.ProgramID,
			r.Account,
			r.TokenMint,
			r.Amount,
			r.AmountUSD,
			string(r.Status),
			string(r.InstructionType),
			string(r.EventType),
			r.OrderID,
			createdAt,
			updatedAt,
		); err != nil {
			return fmt.Errorf("analytics: append row for signature %s: %w", r.Signature, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("analytics: send batch: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (w *ClickHouseWriter) Close() error { return w.conn.Close() }

// CountDistinctSignatures implements the fallback path in spec §4.6:
// "if [the Redis counter is] absent, query the analytics store
// SELECT count(DISTINCT signature) WHERE program_id = ?".
func (w *ClickHouseWriter) CountDistinctSignatures(ctx context.Context, programID string) (int64, error) {
	row := w.conn.QueryRow(ctx,
		fmt.Sprintf("SELECT count(DISTINCT signature) FROM %s WHERE program_id = ?", w.table),
		programID,
	)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("analytics: count distinct signatures: %w", err)
	}
	return count, nil
}
