/**
 * @description
 * Typed raw contracts for the StockX-like marketplace API.
 * Payloads are parsed and structurally validated into these shapes before any
 * mapper logic runs; missing identity fields fail parsing. Amount strings are
 * validated per record by the mappers so one bad variant cannot sink a batch.
 *
 * @notes
 * - All amounts on this API are decimal strings already in major currency
 *   units ("145.00"), never cents.
 */

package stockx

import (
	"encoding/json"
	"fmt"
)

// SearchResponse is the raw shape of the catalog search endpoint.
type SearchResponse struct {
	Products []SearchProduct `json:"products"`
}

// SearchProduct is one catalog hit.
type SearchProduct struct {
	ID      string `json:"id"`
	StyleID string `json:"styleId"` // manufacturer SKU
	Title   string `json:"title"`
	Brand   string `json:"brand"`
	URLKey  string `json:"urlKey"`
}

// MarketDataResponse is the raw shape of the per-product market endpoint for
// one region/currency.
type MarketDataResponse struct {
	ProductID    string          `json:"productId"`
	CurrencyCode string          `json:"currencyCode"`
	Variants     []VariantMarket `json:"variants"`
}

// VariantMarket carries the order-book summary of one size.
type VariantMarket struct {
	VariantID string      `json:"variantId"`
	SizeChart SizeChart   `json:"sizeChart"`
	Market    MarketStats `json:"market"`
}

// SizeChart holds the display size for the variant.
type SizeChart struct {
	DisplaySize string `json:"displaySize"`
	SizeSystem  string `json:"sizeSystem"` // "US" on every observed payload
}

// MarketStats carries the price summary. Amounts are major-unit decimal
// strings; empty string means the side has no liquidity.
type MarketStats struct {
	LowestAskAmount  string `json:"lowestAskAmount"`
	HighestBidAmount string `json:"highestBidAmount"`
	LastSaleAmount   string `json:"lastSaleAmount"`
	SalesLast72Hours *int   `json:"salesLast72Hours"`
	SalesLast30Days  *int   `json:"salesLast30Days"`
}

// ParseSearch decodes and validates a raw search payload.
func ParseSearch(payload []byte) (*SearchResponse, error) {
	var resp SearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("stockx search payload: %w", err)
	}
	for i, p := range resp.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("stockx search payload: product %d missing id", i)
		}
	}
	return &resp, nil
}

// ParseMarketData decodes and validates the structure of a raw market
// payload. Every variant must carry an id and a display size. Amounts are not
// vetted here: a malformed amount is a per-variant defect the mapper drops,
// not a reason to sink the whole payload.
func ParseMarketData(payload []byte) (*MarketDataResponse, error) {
	var resp MarketDataResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("stockx market payload: %w", err)
	}
	if resp.ProductID == "" {
		return nil, fmt.Errorf("stockx market payload: missing productId")
	}
	if resp.CurrencyCode == "" {
		return nil, fmt.Errorf("stockx market payload: missing currencyCode")
	}
	for i, v := range resp.Variants {
		if v.VariantID == "" {
			return nil, fmt.Errorf("stockx market payload: variant %d missing variantId", i)
		}
		if v.SizeChart.DisplaySize == "" {
			return nil, fmt.Errorf("stockx market payload: variant %s missing displaySize", v.VariantID)
		}
	}
	return &resp, nil
}
