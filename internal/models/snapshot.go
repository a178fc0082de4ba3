/**
 * @description
 * Raw provider snapshot database model.
 * Maps to the 'raw_snapshots' table in PostgreSQL.
 * Write-once audit record of every outbound provider call, stored before any
 * interpretation of the payload happens.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// RawSnapshot is one immutable record of an outbound provider call.
// Rows are never updated or deleted by the pipeline; retention is an ops concern.
type RawSnapshot struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider   string    `gorm:"column:provider;index:idx_raw_snapshots_provider_time" json:"provider"`
	Endpoint   string    `gorm:"column:endpoint" json:"endpoint"`
	Params     string    `gorm:"column:params;type:jsonb" json:"params"`
	HTTPStatus int       `gorm:"column:http_status" json:"http_status"`
	Payload    []byte    `gorm:"column:payload;type:bytea" json:"-"`
	ErrorText  *string   `gorm:"column:error_text" json:"error_text,omitempty"`
	RequestedAt time.Time `gorm:"column:requested_at;index:idx_raw_snapshots_provider_time" json:"requested_at"`
	DurationMs int64     `gorm:"column:duration_ms" json:"duration_ms"`
}

// TableName overrides the table name used by RawSnapshot to `raw_snapshots`
func (RawSnapshot) TableName() string {
	return "raw_snapshots"
}
