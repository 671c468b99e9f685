package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dln-labs/dln-ingest/internal/analytics"
	"github.com/dln-labs/dln-ingest/internal/backfill"
	"github.com/dln-labs/dln-ingest/internal/bus"
	"github.com/dln-labs/dln-ingest/internal/chain"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
	"github.com/dln-labs/dln-ingest/internal/config"
	"github.com/dln-labs/dln-ingest/internal/coordinator"
	"github.com/dln-labs/dln-ingest/internal/health"
	"github.com/dln-labs/dln-ingest/internal/logger"
	"github.com/dln-labs/dln-ingest/internal/oracle"
	"github.com/dln-labs/dln-ingest/internal/parser"
	"github.com/dln-labs/dln-ingest/internal/realtime"
	"github.com/dln-labs/dln-ingest/internal/worker"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the computed startup mode and exit without starting any producer")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Str("programId", cfg.ProgramID).Msg("dln ingest pipeline starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := checkpoint.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("checkpoint store init failed")
	}
	defer store.Close()

	writer, err := analytics.NewClickHouseWriter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("analytics writer init failed")
	}
	defer writer.Close()

	b, err := bus.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bus init failed")
	}
	defer b.Close()

	pool := chain.NewPool(chain.DefaultPoolConfig())
	defer pool.Close()

	chainClient, err := chain.New(cfg, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("chain client init failed")
	}

	if *dryRun {
		c := coordinator.New(store, writer, nil, nil, cfg.ProgramID, cfg.TargetTxCount, log)
		mode, count, err := c.CheckCount(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("dry run: check count failed")
		}
		log.Info().Str("mode", string(mode)).Int64("processedCount", count).Int64("target", cfg.TargetTxCount).Msg("dry run: computed startup mode")
		return
	}

	priceOracle := oracle.New(cfg, store, pool, log)
	eventParser := parser.New(cfg.ProgramID)

	w := worker.New(chainClient, eventParser, priceOracle, store, writer, log)

	producerPublisher, err := b.NewPublisher()
	if err != nil {
		log.Fatal().Err(err).Msg("producer publisher init failed")
	}
	defer producerPublisher.Close()

	backfillIndexer := backfill.New(chainClient, producerPublisher, store, cfg.ProgramID, cfg.SignatureBatch, cfg.TargetTxCount, cfg.BackfillUntilSig, log)

	realtimeIndexer := realtime.New(cfg.RPCWSSURL, cfg.ProgramID, producerPublisher, store, cfg.SeenTTL, chainClient.GetBlockTime, log)

	coord := coordinator.New(store, writer, backfillIndexer, realtimeIndexer, cfg.ProgramID, cfg.TargetTxCount, log)

	healthSrv := health.New(cfg.HealthAddr, store, b, currentMode(coord), health.Metrics{
		ProgramID:          cfg.ProgramID,
		BatchSize:          cfg.SignatureBatch,
		Concurrency:        cfg.WorkerConcurrency,
		RetryAttempts:      cfg.BusMaxRetries,
		TargetTransactions: cfg.TargetTxCount,
	}, log)
	healthSrv.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runWorkerPool(ctx, b, w, cfg.WorkerConcurrency, log)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("coordinator stopped with error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown failed")
	}

	wg.Wait()
	log.Info().Msg("dln ingest pipeline stopped gracefully")
}

// runWorkerPool fans out n concurrent consumers, each with a prefetch
// of 1, over the enrichment worker's handler (spec §4.7 "the worker
// pool size is the only concurrency knob").
func runWorkerPool(ctx context.Context, b *bus.Bus, w *worker.Worker, n int, log zerolog.Logger) {
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		consumer, err := b.NewConsumer(1)
		if err != nil {
			log.Error().Err(err).Int("worker", i).Msg("failed to open consumer channel")
			continue
		}
		wg.Add(1)
		go func(id int, c *bus.Consumer) {
			defer wg.Done()
			defer c.Close()
			if err := c.Consume(ctx, w.Handle); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Int("worker", id).Msg("consumer stopped with error")
			}
		}(i, consumer)
	}
	wg.Wait()
}

// currentMode adapts the coordinator's one-shot CheckCount into the
// polling ModeFunc the health surface's /metrics endpoint reads.
func currentMode(c *coordinator.Coordinator) health.ModeFunc {
	return func() string {
		mode, _, err := c.CheckCount(context.Background())
		if err != nil {
			return "unknown"
		}
		return string(mode)
	}
}
