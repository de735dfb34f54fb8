// Package main is the entry point for the freshledger background worker.
// It relays outbox events and cleans up expired bookkeeping rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"freshledger/internal/config"
	"freshledger/internal/infrastructure/events"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Process:     "worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting freshledger worker")

	poolCfg := postgres.PoolConfigFor(cfg.DatabaseURL, postgres.RoleWorker, cfg.DBMaxConns, cfg.DBStatementTimeout)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	var handler postgres.OutboxHandler = events.LogHandler{}
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		handler = events.NewRedisHandler(rdb, cfg.EventsChannel)
		log.Infow("publishing events to redis", "addr", cfg.RedisAddr, "prefix", cfg.EventsChannel)
	}

	txManager := postgres.NewTxManager(pool)
	worker := &Worker{
		pool:        pool,
		relay:       postgres.NewOutboxRelay(pool.Unwrap(), cfg.OutboxBatchSize, handler),
		idempotency: postgres.NewIdempotencyStore(pool, txManager, cfg.IdempotencyTTL),
		cfg:         cfg,
		log:         log.WithComponent("worker"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic background jobs.
type Worker struct {
	pool        *postgres.Pool
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	cfg         *config.Config
	log         *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	relayTicker := time.NewTicker(w.cfg.OutboxInterval)
	defer relayTicker.Stop()

	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	statsTicker := time.NewTicker(w.cfg.PoolStatsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-relayTicker.C:
			w.relayOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		case <-statsTicker.C:
			w.pool.LogStats(ctx)
		}
	}
}

// relayOutbox drains pending messages batch by batch.
func (w *Worker) relayOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("relayed outbox batch", "count", n)
		}
		if n < w.cfg.OutboxBatchSize {
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if moved > 0 {
		w.log.Warnw("outbox messages moved to DLQ", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, w.cfg.OutboxRetention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	if removed, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}
