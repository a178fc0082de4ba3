/**
 * @description
 * One-shot manual sync CLI.
 * Runs the full pipeline for a single (provider, sku, uk size) from the
 * command line, then rebuilds the latest-price projection. Useful for
 * backfills and for verifying provider credentials without the worker.
 */

package main

import (
	"context"
	"flag"
	"log"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/soletrack-project/backend/internal/config"
	"github.com/soletrack-project/backend/internal/db"
	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/providers/alias"
	"github.com/soletrack-project/backend/internal/providers/stockx"
	"github.com/soletrack-project/backend/internal/services"
)

func main() {
	provider := flag.String("provider", providers.ProviderStockX, "provider to sync (stockx or alias)")
	sku := flag.String("sku", "", "item SKU / style code")
	ukSize := flag.Float64("size", 0, "UK size")
	region := flag.String("region", "US", "region preference")
	flag.Parse()

	if *sku == "" || *ukSize <= 0 {
		log.Fatal("usage: sync -provider stockx -sku DD1391-100 -size 9 [-region UK]")
	}

	log.Printf("🚀 Starting manual sync for %s/%s size %v...", *provider, *sku, *ukSize)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := db.Migrate(pgDB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// A one-shot run doesn't need shared cache state; an in-memory redis
	// keeps the CLI free of infrastructure beyond Postgres.
	mr, err := miniredis.Run()
	if err != nil {
		log.Fatalf("failed to start in-memory redis: %v", err)
	}
	defer mr.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sink := services.NewSnapshotLogger(pgDB)
	retry := providers.RetryPolicy{BaseDelay: cfg.Pipeline.RetryBaseDelay, MaxRetries: cfg.Pipeline.MaxRetries}
	stockxClient := stockx.NewClient(cfg.Providers.StockXBaseURL, cfg.Providers.StockXAPIKey, cfg.Pipeline.CallTimeout, sink, retry)
	aliasClient := alias.NewClient(cfg.Providers.AliasBaseURL, cfg.Providers.AliasToken, cfg.Pipeline.CallTimeout, sink, retry)

	matchingService := services.NewMatchingService(pgDB)
	storeService := services.NewMarketStoreService(pgDB, redisClient)
	syncService := services.NewSyncService(stockxClient, aliasClient, matchingService, storeService,
		cfg.Pipeline.InterRegionDelay, cfg.Pipeline.CallTimeout)

	ctx := context.Background()

	mapping, err := syncService.SyncProduct(ctx, *provider, *sku, *ukSize, *region)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}
	log.Printf("✅ Synced catalog %s variant %q size %s", mapping.CatalogID, mapping.VariantID, mapping.ProviderSize)

	if err := storeService.RefreshLatestView(ctx); err != nil {
		log.Fatalf("latest-price view rebuild failed: %v", err)
	}

	var rows int64
	if err := pgDB.Model(&models.LatestPrice{}).Where("sku = ?", *sku).Count(&rows).Error; err == nil {
		log.Printf("✅ Latest-price rows for %s: %d", *sku, rows)
	}

	log.Println("✅ Manual sync completed successfully.")
}
