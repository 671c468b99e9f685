// Package coordinator implements the mode coordinator (spec §4.6, C6):
// the Init -> CheckCount -> {Backfill -> Realtime | Realtime} ->
// Shutdown state machine that decides whether a fresh process needs to
// backfill before tailing live logs.
package coordinator

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dln-labs/dln-ingest/internal/analytics"
	"github.com/dln-labs/dln-ingest/internal/backfill"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/realtime"
)

// Mode is the outcome of CheckCount.
type Mode string

const (
	ModeBackfill Mode = "backfill"
	ModeRealtime Mode = "realtime"
)

// Coordinator owns the producers and runs the state machine.
type Coordinator struct {
	log zerolog.Logger

	store   *checkpoint.Store
	writer  analytics.Writer
	backfill *backfill.Indexer
	realtime *realtime.Indexer

	programID   string
	targetCount int64
}

// New builds a Coordinator.
func New(store *checkpoint.Store, writer analytics.Writer, backfillIndexer *backfill.Indexer, realtimeIndexer *realtime.Indexer, programID string, targetCount int64, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		log:         log.With().Str("component", "coordinator").Logger(),
		store:       store,
		writer:      writer,
		backfill:    backfillIndexer,
		realtime:    realtimeIndexer,
		programID:   programID,
		targetCount: targetCount,
	}
}

// CheckCount implements spec §4.6's CheckCount state: Redis counter
// first, analytics-store fallback if absent.
func (c *Coordinator) CheckCount(ctx context.Context) (Mode, int64, error) {
	count, found, err := c.store.ProcessedCount(ctx, c.programID)
	if err != nil {
		return "", 0, err
	}
	if !found {
		count, err = c.writer.CountDistinctSignatures(ctx, c.programID)
		if err != nil {
			return "", 0, err
		}
	}

	if count < c.targetCount {
		return ModeBackfill, count, nil
	}
	return ModeRealtime, count, nil
}

// Run drives the full state machine until ctx is cancelled (spec §4.6,
// §5 "Cancellation and timeouts").
func (c *Coordinator) Run(ctx context.Context) error {
	mode, count, err := c.CheckCount(ctx)
	if err != nil {
		return err
	}
	c.log.Info().Str("mode", string(mode)).Int64("processedCount", count).Int64("target", c.targetCount).Msg("startup mode decided")

	if mode == ModeBackfill {
		report, err := c.backfill.Run(ctx)
		if err != nil {
			return err
		}
		c.log.Info().Int("published", report.Published).Int("failed", report.Failed).Msg("backfill complete, transitioning to realtime")
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	err = c.realtime.Run(ctx)
	if errors.Is(err, realtime.ErrUnsupported) {
		c.log.Warn().Msg("realtime unsupported, pipeline remains backfill-only for this run")
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}
