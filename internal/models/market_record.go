/**
 * @description
 * Canonical market record database model.
 * Maps to the 'canonical_market_records' table in PostgreSQL.
 * One normalized price observation; the master table is append-only and rows are
 * only ever superseded by newer rows, never updated.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/shopspring/decimal: exact money values in major currency units
 */

package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product condition values recognized by the pipeline.
const (
	ConditionNew  = "new"
	ConditionUsed = "used"

	PackagingGood    = "good_condition"
	PackagingDamaged = "damaged"
	PackagingMissing = "missing"
)

// CanonicalMarketRecord is one normalized price observation.
// All price fields are stored in major currency units, never cents.
type CanonicalMarketRecord struct {
	ID                 uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           string              `gorm:"column:provider;uniqueIndex:idx_canonical_obs_key" json:"provider"`
	Source             string              `gorm:"column:source" json:"source"` // distinguishes data shape/endpoint within a provider
	ProductID          string              `gorm:"column:product_id;uniqueIndex:idx_canonical_obs_key" json:"product_id"`
	VariantID          *string             `gorm:"column:variant_id" json:"variant_id,omitempty"`
	SKU                string              `gorm:"column:sku;index:idx_canonical_sku_size" json:"sku"`
	SizeKey            string              `gorm:"column:size_key;uniqueIndex:idx_canonical_obs_key;index:idx_canonical_sku_size" json:"size_key"`
	SizeNumeric        float64             `gorm:"column:size_numeric" json:"size_numeric"`
	SizeSystem         string              `gorm:"column:size_system" json:"size_system"` // "US", "UK", "EU"
	Currency           string              `gorm:"column:currency;uniqueIndex:idx_canonical_obs_key" json:"currency"`
	Region             string              `gorm:"column:region;uniqueIndex:idx_canonical_obs_key" json:"region"`
	Condition          string              `gorm:"column:condition;uniqueIndex:idx_canonical_obs_key" json:"condition"`
	PackagingCondition string              `gorm:"column:packaging_condition" json:"packaging_condition"`
	Consigned          bool                `gorm:"column:consigned;uniqueIndex:idx_canonical_obs_key" json:"consigned"`
	LowestAsk          decimal.NullDecimal `gorm:"column:lowest_ask;type:decimal(12,2)" json:"lowest_ask"`
	HighestBid         decimal.NullDecimal `gorm:"column:highest_bid;type:decimal(12,2)" json:"highest_bid"`
	LastSold           decimal.NullDecimal `gorm:"column:last_sold;type:decimal(12,2)" json:"last_sold"`
	Volume72h          *int                `gorm:"column:volume_72h" json:"volume_72h,omitempty"`
	Volume30d          *int                `gorm:"column:volume_30d" json:"volume_30d,omitempty"`
	SnapshotAt         time.Time           `gorm:"column:snapshot_at;uniqueIndex:idx_canonical_obs_key" json:"snapshot_at"`
	RawSnapshotID      uint64              `gorm:"column:raw_snapshot_id" json:"raw_snapshot_id"`
	CreatedAt          time.Time           `json:"created_at"`
}

// TableName overrides the table name used by CanonicalMarketRecord to `canonical_market_records`
func (CanonicalMarketRecord) TableName() string {
	return "canonical_market_records"
}

// ObservationKey returns the uniqueness key of this record. Two records in one
// ingestion batch sharing this key indicate a mapper defect.
func (r *CanonicalMarketRecord) ObservationKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%t|%d",
		r.Provider, r.ProductID, r.SizeKey, r.Currency, r.Region, r.Condition, r.Consigned, r.SnapshotAt.UnixNano())
}
