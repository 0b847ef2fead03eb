// Package main is the entry point for the fieldbill background worker.
// It replays queued ledger entries and cleans up expired idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fieldbill/internal/domain/finance"
	"fieldbill/internal/infrastructure/storage/postgres"
	"fieldbill/internal/infrastructure/storage/postgres/finance_repo"
	"fieldbill/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting fieldbill worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	worker := NewWorker(pool, txManager, log, WorkerConfig{
		PollInterval:    getEnvDuration("RECONCILE_POLL_INTERVAL", 30*time.Second),
		BatchSize:       getEnvInt("RECONCILE_BATCH_SIZE", 50),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 1*time.Hour),
		IdempotencyTTL:  getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute),
	})

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

// WorkerConfig holds worker timing configuration.
type WorkerConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	CleanupInterval time.Duration
	IdempotencyTTL  time.Duration
}

// Worker runs the ledger reconciliation loop and periodic cleanup.
type Worker struct {
	pool       *postgres.Pool
	txManager  *postgres.TxManager
	reconciler *finance.Reconciler
	idemStore  *postgres.IdempotencyStore
	log        *logger.Logger
	cfg        WorkerConfig
}

func NewWorker(pool *postgres.Pool, txManager *postgres.TxManager, log *logger.Logger, cfg WorkerConfig) *Worker {
	ledger := finance_repo.NewLedgerRepo(txManager)
	queue := finance_repo.NewReconciliationRepo(txManager)

	return &Worker{
		pool:       pool,
		txManager:  txManager,
		reconciler: finance.NewReconciler(ledger, queue, cfg.BatchSize),
		idemStore:  postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		log:        log.WithComponent("worker"),
		cfg:        cfg,
	}
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reconcileLedger(ctx)
		case <-cleanupTicker.C:
			w.cleanupIdempotency(ctx)
			postgres.LogPoolStats(ctx, w.pool.Unwrap())
		}
	}
}

// reconcileLedger replays one batch of queued ledger entries. The batch runs
// in a transaction so the SKIP LOCKED row locks hold until it finishes.
func (w *Worker) reconcileLedger(ctx context.Context) {
	err := w.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		processed, err := w.reconciler.ProcessBatch(ctx)
		if err != nil {
			return err
		}
		if processed > 0 {
			w.log.Infow("reconciled ledger entries", "count", processed)
		}
		return nil
	})
	if err != nil {
		w.log.Errorw("ledger reconciliation batch failed", "error", err)
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.idemStore.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
