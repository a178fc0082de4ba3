/**
 * @description
 * Typed raw contracts for the Alias/GOAT-like marketplace API.
 * Payloads are parsed and structurally validated before any mapper logic
 * runs; amount strings are vetted per record by the mappers.
 *
 * @notes
 * - All amounts on this API are integer strings in minor units
 *   ("14500" == 145.00). Mappers must divide by 100; treating these as major
 *   units corrupts every downstream valuation by two orders of magnitude.
 */

package alias

import (
	"encoding/json"
	"fmt"
)

// Shoe condition values as the provider reports them.
const (
	ShoeConditionNew  = "new_no_defects"
	ShoeConditionUsed = "used"

	BoxConditionGood = "good_condition"
)

// SearchResponse is the raw shape of the catalog search endpoint.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one catalog hit.
type SearchResult struct {
	CatalogID string `json:"catalog_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
}

// AvailabilityResponse is the raw shape of the per-product availability
// endpoint. One entry per (size, condition, box, consigned) combination.
type AvailabilityResponse struct {
	CatalogID    string              `json:"catalog_id"`
	Currency     string              `json:"currency"`
	Availability []AvailabilityEntry `json:"availability"`
}

// AvailabilityEntry carries cent-string prices for one size/condition combo.
type AvailabilityEntry struct {
	Size                    string `json:"size"`
	ShoeCondition           string `json:"shoe_condition"`
	BoxCondition            string `json:"box_condition"`
	Consigned               bool   `json:"consigned"`
	LowestListingPriceCents string `json:"lowest_listing_price_cents"`
	HighestOfferPriceCents  string `json:"highest_offer_price_cents"`
	LastSoldPriceCents      string `json:"last_sold_price_cents"`
}

// OfferDepthResponse is the raw shape of the bid-depth endpoint: a complete
// state snapshot of the offer book for one (catalog, size) key.
type OfferDepthResponse struct {
	CatalogID string     `json:"catalog_id"`
	Size      string     `json:"size"`
	Currency  string     `json:"currency"`
	Consigned bool       `json:"consigned"`
	Bins      []OfferBin `json:"bins"`
}

// OfferBin is one price level of the offer book.
type OfferBin struct {
	PriceCents string `json:"price_cents"`
	Count      int    `json:"count"`
}

// ParseSearch decodes and validates a raw search payload.
func ParseSearch(payload []byte) (*SearchResponse, error) {
	var resp SearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("alias search payload: %w", err)
	}
	for i, r := range resp.Results {
		if r.CatalogID == "" {
			return nil, fmt.Errorf("alias search payload: result %d missing catalog_id", i)
		}
	}
	return &resp, nil
}

// ParseAvailability decodes and validates the structure of a raw availability
// payload. Cent strings are not vetted here; a malformed amount is a
// per-entry defect the mapper drops, not a payload failure.
func ParseAvailability(payload []byte) (*AvailabilityResponse, error) {
	var resp AvailabilityResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("alias availability payload: %w", err)
	}
	if resp.CatalogID == "" {
		return nil, fmt.Errorf("alias availability payload: missing catalog_id")
	}
	if resp.Currency == "" {
		return nil, fmt.Errorf("alias availability payload: missing currency")
	}
	for i, e := range resp.Availability {
		if e.Size == "" {
			return nil, fmt.Errorf("alias availability payload: entry %d missing size", i)
		}
	}
	return &resp, nil
}

// ParseOfferDepth decodes and validates a raw offer-depth payload.
func ParseOfferDepth(payload []byte) (*OfferDepthResponse, error) {
	var resp OfferDepthResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("alias offer depth payload: %w", err)
	}
	if resp.CatalogID == "" {
		return nil, fmt.Errorf("alias offer depth payload: missing catalog_id")
	}
	if resp.Size == "" {
		return nil, fmt.Errorf("alias offer depth payload: missing size")
	}
	for i, b := range resp.Bins {
		if b.Count < 0 {
			return nil, fmt.Errorf("alias offer depth payload: bin %d negative count", i)
		}
	}
	return &resp, nil
}
