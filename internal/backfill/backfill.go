// Package backfill implements the historical backfill indexer (spec
// §4.4, C4): a backwards walk over a program's signatures, publishing
// each into the transaction bus until the processed counter reaches
// target or the walk runs out of signatures.
package backfill

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dln-labs/dln-ingest/internal/bus"
	"github.com/dln-labs/dln-ingest/internal/chain"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/model"
)

const (
	quiescentSleep = 100 * time.Millisecond
	errorSleep     = 5 * time.Second

	publishMaxAttempts = 3
)

var publishDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Report summarizes one backfill run (spec §4.4 "Final report").
type Report struct {
	Batches    int
	Published  int
	Failed     int
	Elapsed    time.Duration
	StoppedWhy string
}

// Indexer is the production implementation of C4.
type Indexer struct {
	log       zerolog.Logger
	chain     *chain.Client
	publisher *bus.Publisher
	store     *checkpoint.Store

	programID     string
	batchSize     int
	targetCount   int64
	untilSig      string
}

// New builds a backfill Indexer.
func New(chainClient *chain.Client, publisher *bus.Publisher, store *checkpoint.Store, programID string, batchSize int, targetCount int64, untilSig string, log zerolog.Logger) *Indexer {
	return &Indexer{
		log:         log.With().Str("component", "backfill").Logger(),
		chain:       chainClient,
		publisher:   publisher,
		store:       store,
		programID:   programID,
		batchSize:   batchSize,
		targetCount: targetCount,
		untilSig:    untilSig,
	}
}

// Run walks signatures backwards from the tip until a termination
// condition fires (spec §4.4), returning a final report.
func (idx *Indexer) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{}

	before := ""
	for {
		if ctx.Err() != nil {
			report.StoppedWhy = "context cancelled"
			break
		}

		count, found, err := idx.store.ProcessedCount(ctx, idx.programID)
		if err == nil && found && count >= idx.targetCount {
			report.StoppedWhy = "processed counter reached target"
			break
		}

		sigs, err := idx.chain.GetSignaturesForAddress(ctx, before, idx.batchSize)
		if err != nil {
			idx.log.Warn().Err(err).Str("before", before).Msg("signature fetch failed, retrying after backoff")
			if !sleepCtx(ctx, errorSleep) {
				report.StoppedWhy = "context cancelled"
				break
			}
			continue
		}

		if len(sigs) == 0 {
			report.StoppedWhy = "empty batch"
			break
		}
		report.Batches++

		hitUntil := false
		for _, sig := range sigs {
			ok := idx.publishWithRetry(ctx, sig)
			if ok {
				report.Published++
			} else {
				report.Failed++
			}
			if idx.untilSig != "" && sig.Signature == idx.untilSig {
				hitUntil = true
			}
		}

		before = sigs[len(sigs)-1].Signature

		if hitUntil {
			report.StoppedWhy = "reached until signature"
			break
		}

		if !sleepCtx(ctx, quiescentSleep) {
			report.StoppedWhy = "context cancelled"
			break
		}
	}

	report.Elapsed = time.Since(start)
	idx.log.Info().
		Int("batches", report.Batches).
		Int("published", report.Published).
		Int("failed", report.Failed).
		Dur("elapsed", report.Elapsed).
		Str("stoppedWhy", report.StoppedWhy).
		Msg("backfill finished")
	return report, nil
}

func (idx *Indexer) publishWithRetry(ctx context.Context, sig chain.SignatureInfo) bool {
	msg := &model.IngestMessage{
		Signature:  sig.Signature,
		Slot:       sig.Slot,
		BlockTime:  sig.BlockTime,
		Source:     model.SourceHistory,
		ProgramID:  idx.programID,
		EnqueuedAt: time.Now().UTC(),
		Priority:   model.PriorityNormal,
	}

	for attempt := 0; attempt < publishMaxAttempts; attempt++ {
		ok, err := idx.publisher.Publish(ctx, msg)
		if err == nil && ok {
			return true
		}
		if attempt == publishMaxAttempts-1 {
			idx.log.Warn().Err(err).Str("signature", sig.Signature).Msg("publish exhausted retries, counted as failed")
			return false
		}
		if !sleepCtx(ctx, publishDelays[attempt]) {
			return false
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
