package services

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soletrack-project/backend/internal/models"
)

// newTestDB opens an in-memory sqlite database with the full schema. One
// connection only, so every query sees the same in-memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.RawSnapshot{},
		&models.CanonicalMarketRecord{},
		&models.LatestPrice{},
		&models.OrderBookEntry{},
		&models.MarketJob{},
		&models.SizeMapping{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	// Same partial unique index production migration creates; sqlite supports
	// the WHERE clause too.
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_market_jobs_pending_key
		ON market_jobs (provider, sku, size_key) WHERE status = 'pending'`).Error
	if err != nil {
		t.Fatalf("failed to create pending-key index: %v", err)
	}
	return db
}

// newTestRedis starts a miniredis instance and returns a connected client.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}
