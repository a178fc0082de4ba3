/**
 * @description
 * Schema migration helper.
 * AutoMigrates the tables owned by the ingestion pipeline.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package db

import (
	"github.com/soletrack-project/backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates/updates the pipeline-owned tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.RawSnapshot{},
		&models.CanonicalMarketRecord{},
		&models.LatestPrice{},
		&models.OrderBookEntry{},
		&models.MarketJob{},
		&models.SizeMapping{},
	); err != nil {
		return err
	}
	// One pending job per key, enforced at the database so concurrent
	// enqueues cannot both insert. Done/failed rows stay out of the index.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_market_jobs_pending_key
		ON market_jobs (provider, sku, size_key) WHERE status = 'pending'`).Error
}
