// Package realtime implements the live log subscriber (spec §4.5, C5):
// subscribe to program logs, dedup against the checkpoint store's
// seen-set, and enqueue each new signature into the bus while
// advancing the per-program watermark.
package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dln-labs/dln-ingest/internal/bus"
	"github.com/dln-labs/dln-ingest/internal/chain"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/model"
)

// Indexer is the production implementation of C5.
type Indexer struct {
	log       zerolog.Logger
	wssURL    string
	programID string
	publisher *bus.Publisher
	store     *checkpoint.Store
	blockTime func(ctx context.Context, slot uint64) (int64, error)
	seenTTL   time.Duration
}

// New builds a realtime Indexer. blockTimeFn performs the best-effort
// block-timestamp lookup in spec §4.5 step 2.
func New(wssURL, programID string, publisher *bus.Publisher, store *checkpoint.Store, seenTTL time.Duration, blockTimeFn func(ctx context.Context, slot uint64) (int64, error), log zerolog.Logger) *Indexer {
	return &Indexer{
		log:       log.With().Str("component", "realtime").Logger(),
		wssURL:    wssURL,
		programID: programID,
		publisher: publisher,
		store:     store,
		blockTime: blockTimeFn,
		seenTTL:   seenTTL,
	}
}

// ErrUnsupported is returned by Run when the provider does not support
// log subscription; the coordinator treats this as a clean degrade to
// backfill-only (spec §4.5 final paragraph).
var ErrUnsupported = errors.New("realtime: log subscription unsupported by provider")

// Run subscribes and processes notifications until ctx is cancelled or
// the connection drops.
func (idx *Indexer) Run(ctx context.Context) error {
	sub, err := chain.Subscribe(ctx, idx.wssURL, idx.programID)
	if err != nil {
		var unsupported *chain.ErrSubscriptionUnsupported
		if errors.As(err, &unsupported) {
			idx.log.Warn().Err(err).Msg("realtime subscription unsupported, degrading to backfill-only")
			return ErrUnsupported
		}
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-sub.Notifications():
			if !ok {
				return errors.New("realtime: subscription closed")
			}
			idx.handle(ctx, notif)
		}
	}
}

func (idx *Indexer) handle(ctx context.Context, notif chain.LogNotification) {
	seen, err := idx.store.IsSeen(ctx, notif.Signature)
	if err != nil {
		idx.log.Warn().Err(err).Str("signature", notif.Signature).Msg("dedup check failed, processing anyway")
	} else if seen {
		return
	}

	blockTime, err := idx.blockTime(ctx, notif.Slot)
	if err != nil {
		idx.log.Warn().Err(err).Uint64("slot", notif.Slot).Msg("block timestamp fetch failed, using wall clock")
		blockTime = time.Now().UTC().Unix()
	}

	msg := &model.IngestMessage{
		Signature:  notif.Signature,
		Slot:       notif.Slot,
		BlockTime:  &blockTime,
		Source:     model.SourceRealtime,
		ProgramID:  idx.programID,
		EnqueuedAt: time.Now().UTC(),
		Priority:   model.PriorityNormal,
	}

	if _, err := idx.publisher.Publish(ctx, msg); err != nil {
		idx.log.Warn().Err(err).Str("signature", notif.Signature).Msg("publish failed, realtime notification dropped")
		return
	}

	if err := idx.store.MarkSeen(ctx, notif.Signature, idx.seenTTL); err != nil {
		idx.log.Warn().Err(err).Str("signature", notif.Signature).Msg("failed to mark signature seen")
	}

	if err := idx.store.AdvanceLastProcessedSlot(ctx, idx.programID, notif.Slot); err != nil {
		idx.log.Warn().Err(err).Uint64("slot", notif.Slot).Msg("failed to advance watermark")
	}
}
