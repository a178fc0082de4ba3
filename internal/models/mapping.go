/**
 * @description
 * Size mapping database model.
 * Maps to the 'size_mappings' table in PostgreSQL.
 * Per-item cache of a resolved provider size/variant. Created lazily on first
 * resolution, updated on every subsequent sync attempt, never deleted.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Mapping lifecycle states.
const (
	MappingStatusOK         = "ok"
	MappingStatusUnresolved = "unresolved"
	MappingStatusInvalid    = "invalid" // provider 404'd the product/variant; do not retry blindly
)

// Detected gender segments used by the size-conversion tables.
const (
	GenderMen   = "men"
	GenderWomen = "women"
	GenderYouth = "youth"
)

// SizeMapping caches the resolution of a user's (brand, UK size, sku) to a
// provider-specific size and variant.
type SizeMapping struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider     string     `gorm:"column:provider;uniqueIndex:idx_size_mappings_key" json:"provider"`
	SKU          string     `gorm:"column:sku;uniqueIndex:idx_size_mappings_key" json:"sku"`
	Brand        string     `gorm:"column:brand" json:"brand"`
	Gender       string     `gorm:"column:gender" json:"gender"`
	UKSize       float64    `gorm:"column:uk_size;uniqueIndex:idx_size_mappings_key" json:"uk_size"`
	ProviderSize string     `gorm:"column:provider_size" json:"provider_size"`
	CatalogID    string     `gorm:"column:catalog_id" json:"catalog_id"`
	VariantID    string     `gorm:"column:variant_id" json:"variant_id"`
	Confidence   float64    `gorm:"column:confidence" json:"confidence"` // 0..1
	Status       string     `gorm:"column:status" json:"status"`
	LastSyncedAt *time.Time `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	LastError    *string    `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName overrides the table name used by SizeMapping to `size_mappings`
func (SizeMapping) TableName() string {
	return "size_mappings"
}
