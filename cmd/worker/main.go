/**
 * @description
 * Worker Service Entry Point.
 * Responsible for background tasks:
 * 1. Draining the priority job queue through the sync orchestrator.
 * 2. Periodic staleness scans that feed the background tier.
 * 3. Rebuilding the latest-price projection on a fixed cadence.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/providers
 * - backend/internal/services
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soletrack-project/backend/internal/config"
	"github.com/soletrack-project/backend/internal/db"
	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/providers/alias"
	"github.com/soletrack-project/backend/internal/providers/stockx"
	"github.com/soletrack-project/backend/internal/services"
)

// systemUserID tags jobs created by the worker's own scans rather than a
// user-facing caller.
const systemUserID = "system"

func main() {
	logger.Info("🔥 Starting SoleTrack Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}
	if err := db.Migrate(pgDB); err != nil {
		logger.Fatal("Migrations failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	sink := services.NewSnapshotLogger(pgDB)
	retry := providers.RetryPolicy{BaseDelay: cfg.Pipeline.RetryBaseDelay, MaxRetries: cfg.Pipeline.MaxRetries}
	stockxClient := stockx.NewClient(cfg.Providers.StockXBaseURL, cfg.Providers.StockXAPIKey, cfg.Pipeline.CallTimeout, sink, retry)
	aliasClient := alias.NewClient(cfg.Providers.AliasBaseURL, cfg.Providers.AliasToken, cfg.Pipeline.CallTimeout, sink, retry)

	matchingService := services.NewMatchingService(pgDB)
	storeService := services.NewMarketStoreService(pgDB, redisClient)
	queueService := services.NewQueueService(pgDB, redisClient, cfg.Pipeline.DebounceWindow)
	syncService := services.NewSyncService(stockxClient, aliasClient, matchingService, storeService,
		cfg.Pipeline.InterRegionDelay, cfg.Pipeline.CallTimeout)
	worker := services.NewJobWorker(queueService, syncService, matchingService, redisClient,
		cfg.Pipeline.WorkerBudget, cfg.Pipeline.CallTimeout, cfg.Pipeline.MaxJobAttempts)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Queue Drain Loop
	go worker.Run(ctx, 5*time.Second)

	// 6. Staleness Scan Loop
	go func() {
		ticker := time.NewTicker(cfg.Pipeline.DebounceWindow)
		defer ticker.Stop()

		runStalenessScans(ctx, queueService, cfg)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runStalenessScans(ctx, queueService, cfg)
			}
		}
	}()

	// 7. Projection Rebuild Loop
	go func() {
		ticker := time.NewTicker(cfg.Pipeline.ViewRefreshEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := storeService.RefreshLatestView(ctx); err != nil {
					logger.Error("Latest-price view rebuild failed: %v", err)
				}
			}
		}
	}()

	// 8. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	time.Sleep(1 * time.Second) // Give in-flight jobs time to settle
	logger.Info("Worker exited.")
}

// runStalenessScans enqueues the background refresh batch for each provider.
func runStalenessScans(ctx context.Context, queue *services.QueueService, cfg *config.Config) {
	logger.Info("🔄 Running staleness scans...")

	for _, provider := range []string{providers.ProviderStockX, providers.ProviderAlias} {
		pairs, err := queue.StaleItemKeys(ctx, provider, cfg.Pipeline.StalenessThreshold)
		if err != nil {
			logger.Error("Staleness scan failed for %s: %v", provider, err)
			continue
		}
		if len(pairs) == 0 {
			continue
		}

		enqueued, err := queue.EnqueueStalenessBatch(ctx, systemUserID, provider, pairs)
		if err != nil {
			logger.Error("Failed to enqueue staleness batch for %s: %v", provider, err)
			continue
		}
		logger.Info("Enqueued %d/%d stale items for %s", enqueued, len(pairs), provider)
	}
}
