/**
 * @description
 * Master market data store and latest-price view.
 * The canonical table is append-only: ingestion inserts rows, never updates
 * them. The latest-price view is a periodic projection rebuilt after ingestion
 * batches, not maintained per write. Order-book bins are the one replace-path:
 * a full state snapshot per key, deleted then reinserted atomically.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgx/v5/pgconn: PG error-code inspection
 * - github.com/redis/go-redis/v9: update notifications
 * - backend/internal/models
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// PriceUpdateChannel carries one message per latest-view refresh.
	PriceUpdateChannel = "prices:updates"
)

// ConflictError marks a duplicate observation key produced within one
// ingestion batch. It indicates a mapper defect and must fail loudly instead
// of being coerced by an upsert.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate canonical observation key in batch: %s", e.Key)
}

type MarketStoreService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewMarketStoreService(db *gorm.DB, redis *redis.Client) *MarketStoreService {
	return &MarketStoreService{DB: db, Redis: redis}
}

// AppendRecords inserts one ingestion batch into the canonical table.
// A duplicate key within the batch is a ConflictError. Re-ingesting a payload
// that was already stored (same snapshot timestamp) is a no-op per row, which
// keeps ingestion idempotent.
func (s *MarketStoreService) AppendRecords(ctx context.Context, records []models.CanonicalMarketRecord) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	for i := range records {
		key := records[i].ObservationKey()
		if _, dup := seen[key]; dup {
			return &ConflictError{Key: key}
		}
		seen[key] = struct{}{}
	}

	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(records, 100).Error
	// DoNothing absorbs the common duplicate case; a unique violation can
	// still surface from a concurrent writer racing the same batch window.
	if code, constraint := pgErrCode(err); code == "23505" {
		return &ConflictError{Key: constraint}
	}
	return err
}

// pgErrCode extracts the Postgres error code from a possibly wrapped driver
// error. Empty strings for anything else, sqlite included.
func pgErrCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// ReplaceOrderBook swaps the complete bin set for one
// (provider, catalog, size, region, consigned) key. The payload is a full
// state snapshot of the book, so stale bins must not survive the write.
// Callers serialize per key; this method assumes one in-flight ingestion.
func (s *MarketStoreService) ReplaceOrderBook(ctx context.Context, provider, catalogID, sizeKey, region string, consigned bool, entries []models.OrderBookEntry) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider = ? AND catalog_id = ? AND size_key = ? AND region = ? AND consigned = ?",
			provider, catalogID, sizeKey, region, consigned).
			Delete(&models.OrderBookEntry{}).Error
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, 100).Error
	})
}

// RefreshLatestView rebuilds the latest-price projection: per (provider,
// product, size, currency, region), the canonical row with the maximum
// snapshot timestamp (newest insert wins remaining ties). Retries bounded
// times on PG serialization failures.
func (s *MarketStoreService) RefreshLatestView(ctx context.Context) error {
	const maxRetries = 5
	now := time.Now().UTC()

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("DELETE FROM latest_prices").Error; err != nil {
				return err
			}
			return tx.Exec(`
				INSERT INTO latest_prices
					(provider, product_id, sku, size_key, currency, region,
					 lowest_ask, highest_bid, last_sold, snapshot_at, refreshed_at)
				SELECT c.provider, c.product_id, c.sku, c.size_key, c.currency, c.region,
				       c.lowest_ask, c.highest_bid, c.last_sold, c.snapshot_at, ?
				FROM canonical_market_records c
				WHERE c.id IN (
					SELECT MAX(c2.id)
					FROM canonical_market_records c2
					JOIN (
						SELECT provider, product_id, size_key, currency, region,
						       MAX(snapshot_at) AS max_ts
						FROM canonical_market_records
						GROUP BY provider, product_id, size_key, currency, region
					) m ON c2.provider = m.provider
					   AND c2.product_id = m.product_id
					   AND c2.size_key = m.size_key
					   AND c2.currency = m.currency
					   AND c2.region = m.region
					   AND c2.snapshot_at = m.max_ts
					GROUP BY c2.provider, c2.product_id, c2.size_key, c2.currency, c2.region
				)`, now).Error
		})
		if err == nil {
			break
		}

		if code, _ := pgErrCode(err); code == "40P01" || code == "40001" {
			backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		break
	}
	if err != nil {
		return fmt.Errorf("failed to rebuild latest price view: %w", err)
	}

	s.publishRefresh(ctx, now)
	return nil
}

// publishRefresh notifies stream consumers that the view changed. Best effort;
// a pub/sub hiccup doesn't fail the refresh.
func (s *MarketStoreService) publishRefresh(ctx context.Context, refreshedAt time.Time) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event":        "latest_view_refreshed",
		"refreshed_at": refreshedAt,
	})
	if err != nil {
		return
	}
	if err := s.Redis.Publish(ctx, PriceUpdateChannel, payload).Err(); err != nil {
		logger.Error("failed to publish view refresh: %v", err)
	}
}
