/**
 * @description
 * Market job database model.
 * Maps to the 'market_jobs' table in PostgreSQL.
 * A scheduled fetch request for one (provider, sku, size) key. Terminal on success
 * or once retry attempts are exhausted.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Priority tiers. Higher wins; ties dequeue FIFO by creation time.
const (
	PriorityBackground = 100 // staleness refresh scans
	PriorityNewItem    = 150 // hot fetch when an item is added
	PriorityManual     = 200 // explicit user-requested refresh
)

// Job lifecycle states.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// MarketJob is one scheduled fetch of a (provider, sku, size) key.
type MarketJob struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID  string    `gorm:"column:public_id;uniqueIndex" json:"public_id"`
	Provider  string    `gorm:"column:provider;index:idx_market_jobs_key" json:"provider"`
	SKU       string    `gorm:"column:sku;index:idx_market_jobs_key" json:"sku"`
	SizeKey   string    `gorm:"column:size_key;index:idx_market_jobs_key" json:"size_key"`
	Priority  int       `gorm:"column:priority;index:idx_market_jobs_dequeue" json:"priority"`
	UserID    string    `gorm:"column:user_id;index" json:"user_id"`
	Region    string    `gorm:"column:region" json:"region"` // requesting user's region preference; empty means default
	Status    string    `gorm:"column:status;index:idx_market_jobs_key;index:idx_market_jobs_dequeue" json:"status"`
	Attempts  int       `gorm:"column:attempts" json:"attempts"`
	LastError *string   `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_market_jobs_dequeue" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name used by MarketJob to `market_jobs`
func (MarketJob) TableName() string {
	return "market_jobs"
}
