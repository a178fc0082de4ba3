/**
 * @description
 * Mapping API handlers.
 * The suggest/commit pair: suggest runs the confidence-scored catalog match
 * ladder and returns a candidate; commit is the explicit approval step that
 * persists a suggestion as the usable mapping.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/services"
)

type MappingHandler struct {
	Matching *services.MatchingService
	StockX   providers.Client
	Alias    providers.Client
}

func NewMappingHandler(matching *services.MatchingService, stockx, alias providers.Client) *MappingHandler {
	return &MappingHandler{Matching: matching, StockX: stockx, Alias: alias}
}

func (h *MappingHandler) clientFor(provider string) providers.Client {
	switch provider {
	case providers.ProviderStockX:
		return h.StockX
	case providers.ProviderAlias:
		return h.Alias
	default:
		return nil
	}
}

// Suggest runs the catalog match ladder and returns the best candidate.
// GET /api/v1/mappings/suggest?provider=&sku=&name=
func (h *MappingHandler) Suggest(c *fiber.Ctx) error {
	provider := c.Query("provider")
	sku := c.Query("sku")
	if sku == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sku is required"})
	}

	client := h.clientFor(provider)
	if client == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown provider"})
	}

	suggestion, err := services.SuggestCatalogMatch(c.Context(), client, sku, c.Query("name"))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Catalog search failed"})
	}
	return c.JSON(suggestion)
}

type commitRequest struct {
	Suggestion services.MatchSuggestion `json:"suggestion"`
	UKSize     float64                  `json:"uk_size"`
}

// Commit approves a suggestion and persists it as the usable mapping.
// POST /api/v1/mappings/commit
func (h *MappingHandler) Commit(c *fiber.Ctx) error {
	var req commitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UKSize <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "uk_size is required"})
	}
	if h.clientFor(req.Suggestion.Provider) == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown provider"})
	}

	mapping, err := h.Matching.CommitCatalogMatch(&req.Suggestion, req.UKSize)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(mapping)
}
