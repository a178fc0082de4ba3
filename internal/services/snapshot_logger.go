/**
 * @description
 * Raw snapshot logger.
 * Durably records every provider call (request, response, status, timing)
 * before any interpretation. Persistence failures are contained here and only
 * reported on the operational log; they never bubble into ingestion.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 * - backend/internal/providers: SnapshotSink contract
 */

package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"gorm.io/gorm"
)

// SnapshotLogger persists RawSnapshot audit rows. Implements providers.SnapshotSink.
type SnapshotLogger struct {
	DB *gorm.DB
}

func NewSnapshotLogger(db *gorm.DB) *SnapshotLogger {
	return &SnapshotLogger{DB: db}
}

// LogSnapshot records one completed provider call. Guaranteed never to fail
// outward; returns the audit row id, or 0 if persistence failed.
func (s *SnapshotLogger) LogSnapshot(provider, endpoint string, params map[string]string, httpStatus int, payload []byte, errText *string, duration time.Duration) uint64 {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot logger panic contained: %v", r)
		}
	}()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		paramsJSON = []byte("{}")
	}

	snap := models.RawSnapshot{
		Provider:    provider,
		Endpoint:    endpoint,
		Params:      string(paramsJSON),
		HTTPStatus:  httpStatus,
		Payload:     payload,
		ErrorText:   errText,
		RequestedAt: time.Now().UTC().Add(-duration),
		DurationMs:  duration.Milliseconds(),
	}

	if err := s.DB.Create(&snap).Error; err != nil {
		logger.Error("failed to persist raw snapshot for %s %s: %v", provider, endpoint, err)
		return 0
	}
	return snap.ID
}

// WithSnapshot times call, records it on success and on failure, and returns
// call's original error untouched. Only the logger's own persistence problems
// are swallowed.
func (s *SnapshotLogger) WithSnapshot(ctx context.Context, provider, endpoint string, params map[string]string, call providers.RawCall) (*providers.CallResult, error) {
	started := time.Now()
	payload, status, callErr := call(ctx)
	duration := time.Since(started)

	var errText *string
	if callErr != nil {
		msg := callErr.Error()
		errText = &msg
	}

	snapID := s.LogSnapshot(provider, endpoint, params, status, payload, errText, duration)

	return &providers.CallResult{Payload: payload, Status: status, SnapshotID: snapID}, callErr
}
