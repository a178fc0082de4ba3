/**
 * @description
 * Price API handlers.
 * Exposes the latest-price projection (single valuation, per-SKU listing)
 * and the SSE stream of projection refresh events.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/soletrack-project/backend/internal/services"
)

type PriceHandler struct {
	Service *services.PriceService
	Hub     *services.PriceStreamHub
}

func NewPriceHandler(service *services.PriceService, hub *services.PriceStreamHub) *PriceHandler {
	return &PriceHandler{Service: service, Hub: hub}
}

// GetLatest resolves one valuation.
// GET /api/v1/prices/latest?sku=&size=&currency=&region=
func (h *PriceHandler) GetLatest(c *fiber.Ctx) error {
	sku := c.Query("sku")
	size := c.Query("size")
	if sku == "" || size == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sku and size are required",
		})
	}
	currency := c.Query("currency", "USD")
	region := c.Query("region", "US")

	valuation, err := h.Service.GetLatestPrice(c.Context(), sku, size, currency, region)
	if errors.Is(err, services.ErrNoPrice) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No price observation for this item",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch price",
		})
	}
	return c.JSON(valuation)
}

// ListForSKU returns all projection rows for a SKU.
// GET /api/v1/prices/sku/:sku
func (h *PriceHandler) ListForSKU(c *fiber.Ctx) error {
	sku := c.Params("sku")
	if sku == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sku is required"})
	}

	rows, err := h.Service.ListLatestForSKU(c.Context(), sku)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch prices",
		})
	}
	return c.JSON(fiber.Map{"sku": sku, "prices": rows})
}

// StreamRefreshEvents streams projection refresh notifications over SSE.
// GET /api/v1/prices/stream
func (h *PriceHandler) StreamRefreshEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()
	events, cancel := h.Hub.Listen()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		requestDone := requestCtx.Done()
		for {
			select {
			case <-requestDone:
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
