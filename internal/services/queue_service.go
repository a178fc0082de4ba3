/**
 * @description
 * Priority job queue.
 * Schedules when a (provider, sku, size) key gets re-fetched. Enqueueing
 * dedupes against the existing pending job for the same key, raising its
 * priority instead of inserting a duplicate. Background staleness batches are
 * debounced per (user, tier, provider) through a persisted Redis record so
 * the rule holds across concurrent worker instances.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9: debounce records
 * - github.com/google/uuid: public job ids
 * - backend/internal/models
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoPendingJobs is returned by ClaimNextJob when the queue is drained.
var ErrNoPendingJobs = errors.New("no pending jobs")

// ItemKey is one (sku, UK size) pair for bulk enqueueing. Jobs are keyed on
// the UK size label the user tracks, not the provider size.
type ItemKey struct {
	SKU    string  `json:"sku"`
	UKSize float64 `json:"uk_size"`
}

type QueueService struct {
	DB             *gorm.DB
	Redis          *redis.Client
	DebounceWindow time.Duration
}

func NewQueueService(db *gorm.DB, redis *redis.Client, debounceWindow time.Duration) *QueueService {
	return &QueueService{DB: db, Redis: redis, DebounceWindow: debounceWindow}
}

// EnqueueParams describes one fetch request.
type EnqueueParams struct {
	Provider string
	SKU      string
	SizeKey  string // the user's UK size label, e.g. "9" or "9.5"
	Priority int
	UserID   string
	Region   string // requesting user's region preference; empty means default
}

// EnqueueJob schedules one fetch. If a pending job already exists for the
// same (provider, sku, size) key, its priority is raised to
// max(existing, new) instead of inserting a duplicate.
func (s *QueueService) EnqueueJob(ctx context.Context, p EnqueueParams) (*models.MarketJob, error) {
	var existing models.MarketJob
	err := s.DB.WithContext(ctx).
		Where("provider = ? AND sku = ? AND size_key = ? AND status = ?",
			p.Provider, p.SKU, p.SizeKey, models.JobStatusPending).
		First(&existing).Error

	if err == nil {
		if p.Priority > existing.Priority {
			if err := s.DB.WithContext(ctx).Model(&existing).
				Update("priority", p.Priority).Error; err != nil {
				return nil, err
			}
			existing.Priority = p.Priority
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	job := models.MarketJob{
		PublicID: uuid.NewString(),
		Provider: p.Provider,
		SKU:      p.SKU,
		SizeKey:  p.SizeKey,
		Priority: p.Priority,
		UserID:   p.UserID,
		Region:   p.Region,
		Status:   models.JobStatusPending,
	}
	// A partial unique index over pending (provider, sku, size_key) backs the
	// dedupe under concurrent enqueues; losing that race means another writer
	// just inserted the job, so fall back to the existing row.
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&job)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.DB.WithContext(ctx).
			Where("provider = ? AND sku = ? AND size_key = ? AND status = ?",
				p.Provider, p.SKU, p.SizeKey, models.JobStatusPending).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return &job, nil
}

// EnqueueForItems bulk-enqueues a staleness batch. Returns how many jobs were
// created or bumped.
func (s *QueueService) EnqueueForItems(ctx context.Context, pairs []ItemKey, provider string, priority int, userID string) (int, error) {
	count := 0
	for _, pair := range pairs {
		_, err := s.EnqueueJob(ctx, EnqueueParams{
			Provider: provider,
			SKU:      pair.SKU,
			SizeKey:  formatSize(pair.UKSize),
			Priority: priority,
			UserID:   userID,
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// debounceKey is the persisted record key for the background-tier debounce.
func debounceKey(userID string, priority int, provider string) string {
	return fmt.Sprintf("scan:debounce:%s:%d:%s", userID, priority, provider)
}

// AcquireScanDebounce claims the background-scan slot for (user, provider).
// Returns false when a scan for that key already ran inside the window; the
// caller must then skip the batch entirely.
func (s *QueueService) AcquireScanDebounce(ctx context.Context, userID, provider string) (bool, error) {
	key := debounceKey(userID, models.PriorityBackground, provider)
	return s.Redis.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.DebounceWindow).Result()
}

// EnqueueStalenessBatch enqueues a debounced background-tier batch for one
// user. A batch within the debounce window is skipped wholesale, so page
// loads can call this freely without re-triggering full rescans.
func (s *QueueService) EnqueueStalenessBatch(ctx context.Context, userID, provider string, pairs []ItemKey) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	acquired, err := s.AcquireScanDebounce(ctx, userID, provider)
	if err != nil {
		return 0, err
	}
	if !acquired {
		logger.Info("staleness scan for user %s on %s debounced", userID, provider)
		return 0, nil
	}

	return s.EnqueueForItems(ctx, pairs, provider, models.PriorityBackground, userID)
}

// StaleItemKeys finds items qualifying for background refresh on a provider:
// a usable mapping with no price yet, or whose latest price is older than the
// staleness threshold.
func (s *QueueService) StaleItemKeys(ctx context.Context, provider string, threshold time.Duration) ([]ItemKey, error) {
	cutoff := time.Now().UTC().Add(-threshold)

	type row struct {
		SKU    string
		UKSize float64
	}
	var rows []row

	err := s.DB.WithContext(ctx).
		Table("size_mappings AS sm").
		Select("sm.sku, sm.uk_size").
		Joins(`LEFT JOIN latest_prices lp
			ON lp.provider = sm.provider AND lp.sku = sm.sku AND lp.size_key = sm.provider_size`).
		Where("sm.provider = ? AND sm.status = ?", provider, models.MappingStatusOK).
		Where("lp.id IS NULL OR lp.snapshot_at < ?", cutoff).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	keys := make([]ItemKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, ItemKey{SKU: r.SKU, UKSize: r.UKSize})
	}
	return keys, nil
}

// ClaimNextJob dequeues the highest-priority pending job (FIFO within a
// tier) and flips it to processing. The claim is optimistic: losing the
// status race just means trying the next candidate. excludeIDs skips jobs the
// caller already knows it cannot run this pass (in-flight elsewhere), so a
// busy key does not starve runnable jobs behind it.
func (s *QueueService) ClaimNextJob(ctx context.Context, excludeIDs ...uint64) (*models.MarketJob, error) {
	const claimAttempts = 5

	for attempt := 0; attempt < claimAttempts; attempt++ {
		q := s.DB.WithContext(ctx).
			Where("status = ?", models.JobStatusPending)
		if len(excludeIDs) > 0 {
			q = q.Where("id NOT IN ?", excludeIDs)
		}

		var job models.MarketJob
		err := q.Order("priority DESC, created_at ASC, id ASC").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingJobs
		}
		if err != nil {
			return nil, err
		}

		res := s.DB.WithContext(ctx).Model(&models.MarketJob{}).
			Where("id = ? AND status = ?", job.ID, models.JobStatusPending).
			Update("status", models.JobStatusProcessing)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			job.Status = models.JobStatusProcessing
			return &job, nil
		}
		// Another worker claimed it first; pick again.
	}
	return nil, ErrNoPendingJobs
}

// MarkDone finishes a job successfully.
func (s *QueueService) MarkDone(ctx context.Context, job *models.MarketJob) error {
	return s.DB.WithContext(ctx).Model(job).
		Updates(map[string]interface{}{"status": models.JobStatusDone, "last_error": nil}).Error
}

// ReleaseJob puts a claimed job back to pending untouched (used when the
// worker's budget expires or the key is busy).
func (s *QueueService) ReleaseJob(ctx context.Context, job *models.MarketJob) error {
	return s.DB.WithContext(ctx).Model(job).
		Update("status", models.JobStatusPending).Error
}

// FailJob records a failed attempt: requeue while the error is retryable and
// attempts remain, terminal failed otherwise. A non-retryable failure (404,
// missing mapping, unsupported size) settles on the first attempt instead of
// burning the full attempt budget. The item's mapping error surface is the
// caller's responsibility.
func (s *QueueService) FailJob(ctx context.Context, job *models.MarketJob, cause error, maxAttempts int, retryable bool) (terminal bool, err error) {
	job.Attempts++
	msg := cause.Error()

	status := models.JobStatusPending
	if !retryable || job.Attempts >= maxAttempts {
		status = models.JobStatusFailed
		terminal = true
	}

	err = s.DB.WithContext(ctx).Model(job).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   job.Attempts,
			"last_error": msg,
		}).Error
	if err != nil {
		return false, err
	}
	job.Status = status
	job.LastError = &msg
	return terminal, nil
}
