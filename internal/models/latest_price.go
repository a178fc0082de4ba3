/**
 * @description
 * Latest-price view database model.
 * Maps to the 'latest_prices' table in PostgreSQL.
 * Derived projection of canonical_market_records: per (provider, product, size,
 * currency, region), the row with the newest snapshot timestamp. Rebuilt on a
 * fixed cadence, never maintained per-write.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/shopspring/decimal
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LatestPrice is one row of the periodically refreshed latest-price projection.
type LatestPrice struct {
	ID          uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider    string              `gorm:"column:provider;uniqueIndex:idx_latest_price_key" json:"provider"`
	ProductID   string              `gorm:"column:product_id;uniqueIndex:idx_latest_price_key" json:"product_id"`
	SKU         string              `gorm:"column:sku;index:idx_latest_price_sku" json:"sku"`
	SizeKey     string              `gorm:"column:size_key;uniqueIndex:idx_latest_price_key" json:"size_key"`
	Currency    string              `gorm:"column:currency;uniqueIndex:idx_latest_price_key" json:"currency"`
	Region      string              `gorm:"column:region;uniqueIndex:idx_latest_price_key" json:"region"`
	LowestAsk   decimal.NullDecimal `gorm:"column:lowest_ask;type:decimal(12,2)" json:"lowest_ask"`
	HighestBid  decimal.NullDecimal `gorm:"column:highest_bid;type:decimal(12,2)" json:"highest_bid"`
	LastSold    decimal.NullDecimal `gorm:"column:last_sold;type:decimal(12,2)" json:"last_sold"`
	SnapshotAt  time.Time           `gorm:"column:snapshot_at" json:"snapshot_at"`
	RefreshedAt time.Time           `gorm:"column:refreshed_at" json:"refreshed_at"`
}

// TableName overrides the table name used by LatestPrice to `latest_prices`
func (LatestPrice) TableName() string {
	return "latest_prices"
}
