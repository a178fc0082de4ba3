/**
 * @description
 * Job API handlers.
 * Internal enqueue endpoints for the three priority tiers: manual refresh,
 * new-item hot fetch, and the debounced background staleness scan. All three
 * sit behind the job-secret middleware.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/services"
)

type JobHandler struct {
	Queue              *services.QueueService
	StalenessThreshold time.Duration
}

// enqueueRequest is the body shared by refresh and item-added.
type enqueueRequest struct {
	Provider string  `json:"provider"`
	SKU      string  `json:"sku"`
	UKSize   float64 `json:"uk_size"`
	UserID   string  `json:"user_id"`
	Region   string  `json:"region"`
}

type scanRequest struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

func NewJobHandler(queue *services.QueueService, stalenessThreshold time.Duration) *JobHandler {
	return &JobHandler{Queue: queue, StalenessThreshold: stalenessThreshold}
}

func (r *enqueueRequest) providers() []string {
	if r.Provider != "" {
		return []string{r.Provider}
	}
	return []string{providers.ProviderStockX, providers.ProviderAlias}
}

func validProvider(name string) bool {
	return name == providers.ProviderStockX || name == providers.ProviderAlias
}

// enqueue shares the parse/validate/enqueue path between the two single-item
// tiers.
func (h *JobHandler) enqueue(c *fiber.Ctx, priority int) error {
	var req enqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.SKU == "" || req.UKSize <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sku and uk_size are required"})
	}
	if req.Provider != "" && !validProvider(req.Provider) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown provider"})
	}

	sizeKey := strconv.FormatFloat(req.UKSize, 'f', -1, 64)
	jobs := make([]*models.MarketJob, 0, 2)
	for _, provider := range req.providers() {
		job, err := h.Queue.EnqueueJob(c.Context(), services.EnqueueParams{
			Provider: provider,
			SKU:      req.SKU,
			SizeKey:  sizeKey,
			Priority: priority,
			UserID:   req.UserID,
			Region:   req.Region,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enqueue job"})
		}
		jobs = append(jobs, job)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobs": jobs})
}

// Refresh enqueues a manual, highest-priority fetch.
// POST /api/v1/jobs/refresh
func (h *JobHandler) Refresh(c *fiber.Ctx) error {
	return h.enqueue(c, models.PriorityManual)
}

// ItemAdded enqueues the hot fetch fired when an item lands in a closet.
// POST /api/v1/jobs/item-added
func (h *JobHandler) ItemAdded(c *fiber.Ctx) error {
	return h.enqueue(c, models.PriorityNewItem)
}

// Scan runs the debounced background staleness scan for one user/provider.
// POST /api/v1/jobs/scan
func (h *JobHandler) Scan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" || !validProvider(req.Provider) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and a known provider are required"})
	}

	pairs, err := h.Queue.StaleItemKeys(c.Context(), req.Provider, h.StalenessThreshold)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan for stale items"})
	}

	enqueued, err := h.Queue.EnqueueStalenessBatch(c.Context(), req.UserID, req.Provider, pairs)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enqueue scan batch"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"stale":     len(pairs),
		"enqueued":  enqueued,
		"debounced": len(pairs) > 0 && enqueued == 0,
	})
}
