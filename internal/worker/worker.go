// Package worker implements the enrichment worker (spec §4.7, C7): the
// per-message fetch -> parse -> price -> insert pipeline that turns one
// ingest message into zero or more durable analytics rows.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dln-labs/dln-ingest/internal/analytics"
	"github.com/dln-labs/dln-ingest/internal/bus"
	"github.com/dln-labs/dln-ingest/internal/chain"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/model"
	"github.com/dln-labs/dln-ingest/internal/oracle"
	"github.com/dln-labs/dln-ingest/internal/parser"
)

// fetchMaxAttempts and fetchDelays implement spec §4.7 step 2's literal
// backoff schedule (1s, 2s, 3s), distinct from the exponential policy
// retryutil.Do applies elsewhere.
const fetchMaxAttempts = 3

var fetchDelays = []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}

// Worker wires together the chain client, event parser, price oracle,
// analytics writer, and checkpoint store behind one bus.Handler.
type Worker struct {
	log    zerolog.Logger
	chain  *chain.Client
	parser parser.Parser
	oracle oracle.Pricer
	store  *checkpoint.Store
	writer analytics.Writer
}

// New builds a Worker.
func New(chainClient *chain.Client, p parser.Parser, pricer oracle.Pricer, store *checkpoint.Store, writer analytics.Writer, log zerolog.Logger) *Worker {
	return &Worker{
		log:    log.With().Str("component", "worker").Logger(),
		chain:  chainClient,
		parser: p,
		oracle: pricer,
		store:  store,
		writer: writer,
	}
}

// Handle implements bus.Handler (spec §4.7 "Per-message algorithm").
func (w *Worker) Handle(ctx context.Context, msg *model.IngestMessage, meta bus.DeliveryMeta) (bool, error) {
	log := w.log.With().
		Str("signature", msg.Signature).
		Str("source", string(msg.Source)).
		Int("attempt", meta.Attempt).
		Logger()

	tx, err := w.fetchWithRetry(ctx, msg.Signature, &log)
	if err != nil {
		if model.IsPermanent(err) {
			if meta.Attempt >= fetchMaxAttempts {
				log.Warn().Err(err).Msg("transaction not found after retries, giving up")
				return true, nil
			}
			return false, nil
		}
		return false, fmt.Errorf("worker: fetch transaction: %w", err)
	}

	event, ok := w.parser.Parse(*tx)
	if !ok {
		log.Info().Int("logLines", sampleLen(tx.LogMessages)).Msg("no recognizable event, acking")
		return true, nil
	}

	status := model.StatusSuccess
	if tx.Failed {
		status = model.StatusFailed
	}

	transfers := enumerateTransfers(tx)

	rows, err := w.oracle.BuildRows(ctx, transfers, oracle.RowMeta{
		Signature: msg.Signature,
		Slot:      msg.Slot,
		BlockTime: blockTimeOrNow(msg, tx),
		ProgramID: msg.ProgramID,
		Status:    status,
		EventType: event.EventType,
		OrderID:   event.OrderID,
	})
	if err != nil {
		return false, fmt.Errorf("worker: build rows: %w", err)
	}

	if err := w.writer.Insert(ctx, rows); err != nil {
		return false, fmt.Errorf("worker: insert rows: %w", err)
	}

	if _, err := w.store.IncrementProcessedCount(ctx, msg.ProgramID, int64(len(rows))); err != nil {
		log.Warn().Err(err).Msg("failed to increment processed counter")
	}

	return true, nil
}

func (w *Worker) fetchWithRetry(ctx context.Context, signature string, log *zerolog.Logger) (*parser.Transaction, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		tx, err := w.chain.GetParsedTransaction(ctx, signature)
		if err == nil {
			return tx, nil
		}
		lastErr = err
		if model.IsPermanent(err) {
			return nil, err
		}
		if attempt == fetchMaxAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("retrying transaction fetch")

		timer := time.NewTimer(fetchDelays[attempt-1])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func sampleLen(logs []string) int {
	if len(logs) > 20 {
		return 20
	}
	return len(logs)
}

func blockTimeOrNow(msg *model.IngestMessage, tx *parser.Transaction) time.Time {
	if !tx.BlockTime.IsZero() {
		return tx.BlockTime
	}
	if msg.BlockTime != nil {
		return time.Unix(*msg.BlockTime, 0).UTC()
	}
	return time.Now().UTC()
}
