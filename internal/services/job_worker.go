/**
 * @description
 * Queue worker loop.
 * RunOnce drains pending jobs until the wall-clock budget expires: claim the
 * highest-priority job, guard its (provider, sku, size) key against
 * concurrent workers via a Redis in-flight lock, run the sync pipeline, and
 * settle the job. Run wraps RunOnce in a ticker for continuous operation.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: in-flight key guard
 * - backend/internal/services: queue + sync + matching
 *
 * @notes
 * - A job whose key is already in flight is released, not failed; its id is
 *   excluded from claims for the rest of the pass so other runnable jobs
 *   behind it still get served.
 * - Non-retryable failures (404, missing mapping, unsupported size) settle
 *   terminally on the first attempt; only rate limits, outages, and timeouts
 *   consume the retry budget.
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
)

// inflightTTL bounds how long a crashed worker can hold a key lock.
const inflightTTL = 2 * time.Minute

// JobWorker pulls jobs off the queue and runs them through the sync
// orchestrator.
type JobWorker struct {
	Queue    *QueueService
	Sync     *SyncService
	Matching *MatchingService
	Redis    *redis.Client

	Budget      time.Duration
	JobTimeout  time.Duration
	MaxAttempts int
}

func NewJobWorker(queue *QueueService, sync *SyncService, matching *MatchingService, rdb *redis.Client, budget, jobTimeout time.Duration, maxAttempts int) *JobWorker {
	return &JobWorker{
		Queue:       queue,
		Sync:        sync,
		Matching:    matching,
		Redis:       rdb,
		Budget:      budget,
		JobTimeout:  jobTimeout,
		MaxAttempts: maxAttempts,
	}
}

func inflightKey(job *models.MarketJob) string {
	return fmt.Sprintf("jobs:inflight:%s:%s:%s", job.Provider, job.SKU, job.SizeKey)
}

// RunOnce processes jobs until the queue is empty or the budget elapses.
// Returns the number of jobs settled (done or failed) this pass.
func (w *JobWorker) RunOnce(ctx context.Context) (int, error) {
	deadline := time.Now().Add(w.Budget)
	settled := 0
	var busy []uint64

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return settled, err
		}

		job, err := w.Queue.ClaimNextJob(ctx, busy...)
		if errors.Is(err, ErrNoPendingJobs) {
			return settled, nil
		}
		if err != nil {
			return settled, err
		}

		ok, err := w.Redis.SetNX(ctx, inflightKey(job), "1", inflightTTL).Result()
		if err != nil {
			w.release(ctx, job)
			return settled, fmt.Errorf("in-flight guard: %w", err)
		}
		if !ok {
			// Another worker holds this key. Put the job back and exclude it
			// from further claims this pass so jobs behind it still run.
			busy = append(busy, job.ID)
			w.release(ctx, job)
			continue
		}

		w.process(ctx, job)
		w.Redis.Del(ctx, inflightKey(job))
		settled++
	}
	return settled, nil
}

// process runs one claimed job through the pipeline and settles it.
func (w *JobWorker) process(ctx context.Context, job *models.MarketJob) {
	jobCtx, cancel := context.WithTimeout(ctx, w.JobTimeout)
	defer cancel()

	err := w.runJob(jobCtx, job)
	if err == nil {
		if err := w.Queue.MarkDone(ctx, job); err != nil {
			logger.Error("failed to mark job %s done: %v", job.PublicID, err)
		}
		return
	}

	logger.Error("job %s (%s/%s size %s) failed on attempt %d: %v",
		job.PublicID, job.Provider, job.SKU, job.SizeKey, job.Attempts+1, err)

	// Only transient conditions consume the attempt budget: provider rate
	// limits and outages, a blown job timeout, or a shutdown cancellation.
	// Everything else (404, missing mapping, unsupported size) settles
	// terminally right away.
	retryable := providers.IsRetryable(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)

	terminal, failErr := w.Queue.FailJob(ctx, job, err, w.MaxAttempts, retryable)
	if failErr != nil {
		logger.Error("failed to settle job %s: %v", job.PublicID, failErr)
		return
	}
	if terminal {
		ukSize, perr := strconv.ParseFloat(job.SizeKey, 64)
		if perr != nil {
			logger.Error("job %s carries unparseable size key %q", job.PublicID, job.SizeKey)
			return
		}
		w.Matching.MarkMappingBroken(job.Provider, job.SKU, ukSize,
			fmt.Errorf("sync failed terminally after %d attempt(s): %w", job.Attempts, err))
	}
}

func (w *JobWorker) runJob(ctx context.Context, job *models.MarketJob) error {
	ukSize, err := strconv.ParseFloat(job.SizeKey, 64)
	if err != nil {
		return fmt.Errorf("unparseable size key %q: %w", job.SizeKey, err)
	}
	_, err = w.Sync.SyncProduct(ctx, job.Provider, job.SKU, ukSize, job.Region)
	return err
}

func (w *JobWorker) release(ctx context.Context, job *models.MarketJob) {
	if err := w.Queue.ReleaseJob(ctx, job); err != nil {
		logger.Error("failed to release job %s: %v", job.PublicID, err)
	}
}

// Run drains the queue in repeated passes until the context is cancelled.
func (w *JobWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := w.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker pass aborted: %v", err)
		}
		if n > 0 {
			logger.Info("worker pass settled %d job(s)", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
