/**
 * @description
 * API route definitions.
 * Sets up the router groups, wires services into handlers, and guards the
 * mutation endpoints with the job-secret middleware.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/soletrack-project/backend/internal/api/handlers"
	"github.com/soletrack-project/backend/internal/api/middleware"
	"github.com/soletrack-project/backend/internal/config"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/providers/alias"
	"github.com/soletrack-project/backend/internal/providers/stockx"
	"github.com/soletrack-project/backend/internal/services"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Services
	sink := services.NewSnapshotLogger(db)
	retry := providers.RetryPolicy{BaseDelay: cfg.Pipeline.RetryBaseDelay, MaxRetries: cfg.Pipeline.MaxRetries}
	stockxClient := stockx.NewClient(cfg.Providers.StockXBaseURL, cfg.Providers.StockXAPIKey, cfg.Pipeline.CallTimeout, sink, retry)
	aliasClient := alias.NewClient(cfg.Providers.AliasBaseURL, cfg.Providers.AliasToken, cfg.Pipeline.CallTimeout, sink, retry)

	priceService := services.NewPriceService(db, rdb)
	queueService := services.NewQueueService(db, rdb, cfg.Pipeline.DebounceWindow)
	matchingService := services.NewMatchingService(db)
	streamHub := services.NewPriceStreamHub(rdb, services.PriceUpdateChannel)

	// 2. Handlers
	priceHandler := handlers.NewPriceHandler(priceService, streamHub)
	jobHandler := handlers.NewJobHandler(queueService, cfg.Pipeline.StalenessThreshold)
	mappingHandler := handlers.NewMappingHandler(matchingService, stockxClient, aliasClient)

	// 3. Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Price routes (public reads)
	prices := v1.Group("/prices")
	prices.Get("/latest", priceHandler.GetLatest)
	prices.Get("/stream", priceHandler.StreamRefreshEvents)
	prices.Get("/sku/:sku", priceHandler.ListForSKU)

	// Job routes (internal callers only)
	jobs := v1.Group("/jobs", middleware.JobAuth(cfg.Pipeline.JobSecret))
	jobs.Post("/refresh", jobHandler.Refresh)
	jobs.Post("/item-added", jobHandler.ItemAdded)
	jobs.Post("/scan", jobHandler.Scan)

	// Mapping routes (internal callers only)
	mappings := v1.Group("/mappings", middleware.JobAuth(cfg.Pipeline.JobSecret))
	mappings.Get("/suggest", mappingHandler.Suggest)
	mappings.Post("/commit", mappingHandler.Commit)
}
