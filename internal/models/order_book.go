/**
 * @description
 * Order-book bin database model.
 * Maps to the 'order_book_entries' table in PostgreSQL.
 * Bid-depth bins are a full state snapshot of a provider's book for one
 * (catalog, size, region, consigned) key, so ingestion replaces the complete
 * set for that key rather than appending.
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

// OrderBookEntry is one bid-depth bin for a provider variant.
type OrderBookEntry struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider      string          `gorm:"column:provider;index:idx_order_book_key" json:"provider"`
	CatalogID     string          `gorm:"column:catalog_id;index:idx_order_book_key" json:"catalog_id"`
	SizeKey       string          `gorm:"column:size_key;index:idx_order_book_key" json:"size_key"`
	Region        string          `gorm:"column:region;index:idx_order_book_key" json:"region"`
	Consigned     bool            `gorm:"column:consigned;index:idx_order_book_key" json:"consigned"`
	Currency      string          `gorm:"column:currency" json:"currency"`
	Price         decimal.Decimal `gorm:"column:price;type:decimal(12,2)" json:"price"`
	Quantity      int             `gorm:"column:quantity" json:"quantity"`
	SnapshotAt    time.Time       `gorm:"column:snapshot_at" json:"snapshot_at"`
	RawSnapshotID uint64          `gorm:"column:raw_snapshot_id" json:"raw_snapshot_id"`
}

// TableName overrides the table name used by OrderBookEntry to `order_book_entries`
func (OrderBookEntry) TableName() string {
	return "order_book_entries"
}
