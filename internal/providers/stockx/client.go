/**
 * @description
 * HTTP Client for the StockX-like marketplace API.
 * Exposes the uniform (endpoint, params) -> (payload, status) call shape plus
 * typed wrappers for catalog search, variant listing, and market data.
 *
 * @dependencies
 * - github.com/go-resty/resty/v2: HTTP transport
 * - backend/internal/providers: shared contracts, error taxonomy, retry loop
 *
 * @notes
 * - Every raw call is reported to the SnapshotSink before interpretation.
 * - Auth is a static API key header; token refresh is not this client's problem.
 */

package stockx

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/soletrack-project/backend/internal/providers"
)

// Endpoints exposed by this client.
const (
	EndpointSearch = "v2/catalog/search"
	EndpointMarket = "v2/catalog/products/%s/market"
)

// Source tags distinguish data shapes within the provider.
const (
	SourceMarketData = "market-data"
)

var regionCurrencies = map[string]string{
	"US": "USD",
	"UK": "GBP",
	"EU": "EUR",
	"JP": "JPY",
}

// regionOrder keeps Regions() deterministic; US first as the default primary.
var regionOrder = []string{"US", "UK", "EU", "JP"}

type Client struct {
	http  *resty.Client
	sink  providers.SnapshotSink
	retry providers.RetryPolicy
}

// NewClient builds a StockX client. sink may be nil in tests.
func NewClient(baseURL, apiKey string, timeout time.Duration, sink providers.SnapshotSink, retry providers.RetryPolicy) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("x-api-key", apiKey)

	return &Client{http: http, sink: sink, retry: retry}
}

func (c *Client) Name() string { return providers.ProviderStockX }

func (c *Client) Regions() []string {
	out := make([]string, len(regionOrder))
	copy(out, regionOrder)
	return out
}

func (c *Client) CurrencyFor(region string) string {
	if cur, ok := regionCurrencies[region]; ok {
		return cur
	}
	return "USD"
}

// Call performs one raw request through the snapshot sink, so every outbound
// call is recorded before interpretation, success or failure.
func (c *Client) Call(ctx context.Context, endpoint string, params map[string]string) (*providers.CallResult, error) {
	do := func(ctx context.Context) ([]byte, int, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(endpoint)
		if err != nil {
			return nil, 0, &providers.UnavailableError{Provider: c.Name(), Cause: err}
		}
		status := resp.StatusCode()
		return resp.Body(), status, providers.ClassifyStatus(c.Name(), status, retryAfterHint(resp))
	}

	if c.sink == nil {
		payload, status, err := do(ctx)
		return &providers.CallResult{Payload: payload, Status: status}, err
	}
	return c.sink.WithSnapshot(ctx, c.Name(), endpoint, params, do)
}

// SearchCatalog searches the provider catalog by SKU or name.
func (c *Client) SearchCatalog(ctx context.Context, query string) ([]providers.SearchHit, error) {
	var hits []providers.SearchHit

	_, err := providers.DoWithRetry(ctx, c.retry, func(ctx context.Context) error {
		res, err := c.Call(ctx, EndpointSearch, map[string]string{"query": query})
		if err != nil {
			return err
		}
		parsed, err := ParseSearch(res.Payload)
		if err != nil {
			return err
		}
		hits = hits[:0]
		for _, p := range parsed.Products {
			hits = append(hits, providers.SearchHit{CatalogID: p.ID, SKU: p.StyleID, Name: p.Title})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// FetchMarketData fetches the market summary for one product in one region.
func (c *Client) FetchMarketData(ctx context.Context, productID, region string) (*providers.CallResult, *MarketDataResponse, error) {
	endpoint := fmt.Sprintf(EndpointMarket, url.PathEscape(productID))
	params := map[string]string{
		"currencyCode": c.CurrencyFor(region),
		"country":      region,
	}

	var result *providers.CallResult
	var parsed *MarketDataResponse

	_, err := providers.DoWithRetry(ctx, c.retry, func(ctx context.Context) error {
		res, err := c.Call(ctx, endpoint, params)
		if err != nil {
			return err
		}
		p, err := ParseMarketData(res.Payload)
		if err != nil {
			return err
		}
		result, parsed = res, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, parsed, nil
}

// ListVariants lists sellable sizes via the market endpoint.
func (c *Client) ListVariants(ctx context.Context, catalogID, region string) ([]providers.Variant, error) {
	_, parsed, err := c.FetchMarketData(ctx, catalogID, region)
	if err != nil {
		return nil, err
	}
	variants := make([]providers.Variant, 0, len(parsed.Variants))
	for _, v := range parsed.Variants {
		variants = append(variants, providers.Variant{VariantID: v.VariantID, SizeKey: v.SizeChart.DisplaySize})
	}
	return variants, nil
}

func retryAfterHint(resp *resty.Response) time.Duration {
	if resp == nil {
		return 0
	}
	header := resp.Header().Get("Retry-After")
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
