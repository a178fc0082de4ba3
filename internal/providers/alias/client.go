/**
 * @description
 * HTTP Client for the Alias/GOAT-like marketplace API.
 * Exposes the uniform (endpoint, params) -> (payload, status) call shape plus
 * typed wrappers for catalog search, availability, and offer depth.
 *
 * @dependencies
 * - github.com/go-resty/resty/v2: HTTP transport
 * - backend/internal/providers: shared contracts, error taxonomy, retry loop
 *
 * @notes
 * - This marketplace runs a single global order book, so Regions() is just "US".
 * - Every raw call is reported to the SnapshotSink before interpretation.
 */

package alias

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
	EndpointSearch       = "api/v1/catalog/search"
	EndpointAvailability = "api/v1/products/%s/availability"
	EndpointOfferDepth   = "api/v1/products/%s/offers"
)

// Source tags distinguish data shapes within the provider.
const (
	SourceAvailability = "availability"
	SourceOfferDepth   = "offer-depth"
)

type Client struct {
	http  *resty.Client
	sink  providers.SnapshotSink
	retry providers.RetryPolicy
}

// NewClient builds an Alias client. sink may be nil in tests.
func NewClient(baseURL, token string, timeout time.Duration, sink providers.SnapshotSink, retry providers.RetryPolicy) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetAuthToken(token)

	return &Client{http: http, sink: sink, retry: retry}
}

func (c *Client) Name() string { return providers.ProviderAlias }

// Regions returns the single global book this marketplace runs.
func (c *Client) Regions() []string { return []string{"US"} }

func (c *Client) CurrencyFor(region string) string { return "USD" }

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
		for _, r := range parsed.Results {
			hits = append(hits, providers.SearchHit{CatalogID: r.CatalogID, SKU: r.SKU, Name: r.Name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// FetchAvailability fetches price availability for one product.
func (c *Client) FetchAvailability(ctx context.Context, catalogID string) (*providers.CallResult, *AvailabilityResponse, error) {
	endpoint := fmt.Sprintf(EndpointAvailability, url.PathEscape(catalogID))

	var result *providers.CallResult
	var parsed *AvailabilityResponse

	_, err := providers.DoWithRetry(ctx, c.retry, func(ctx context.Context) error {
		res, err := c.Call(ctx, endpoint, nil)
		if err != nil {
			return err
		}
		p, err := ParseAvailability(res.Payload)
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

// FetchOfferDepth fetches the full offer book for one (catalog, size) key.
func (c *Client) FetchOfferDepth(ctx context.Context, catalogID, sizeKey string) (*providers.CallResult, *OfferDepthResponse, error) {
	endpoint := fmt.Sprintf(EndpointOfferDepth, url.PathEscape(catalogID))
	params := map[string]string{"size": sizeKey}

	var result *providers.CallResult
	var parsed *OfferDepthResponse

	_, err := providers.DoWithRetry(ctx, c.retry, func(ctx context.Context) error {
		res, err := c.Call(ctx, endpoint, params)
		if err != nil {
			return err
		}
		p, err := ParseOfferDepth(res.Payload)
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

// ListVariants lists sellable sizes from the availability endpoint.
func (c *Client) ListVariants(ctx context.Context, catalogID, region string) ([]providers.Variant, error) {
	_, parsed, err := c.FetchAvailability(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var variants []providers.Variant
	for _, e := range parsed.Availability {
		if _, ok := seen[e.Size]; ok {
			continue
		}
		seen[e.Size] = struct{}{}
		// This marketplace addresses variants by size rather than a separate id.
		variants = append(variants, providers.Variant{VariantID: e.Size, SizeKey: e.Size})
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
