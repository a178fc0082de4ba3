/**
 * @description
 * Shared provider contracts for the market-data pipeline.
 * Every marketplace client exposes the same uniform call shape
 * (endpoint + params -> raw payload + http status) plus a small typed surface
 * for catalog search and variant listing. Authentication/token refresh lives
 * inside each client; the pipeline only ever sees an already-authorized call.
 *
 * @dependencies
 * - standard "context", "errors", "fmt", "time"
 */

package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names used across snapshots, canonical records, jobs, and mappings.
const (
	ProviderStockX = "stockx"
	ProviderAlias  = "alias"
)

// RawCall performs one raw provider request.
type RawCall func(ctx context.Context) (payload []byte, httpStatus int, err error)

// CallResult is the outcome of one raw provider call. SnapshotID references
// the audit row recorded for the call; zero when no sink was attached or the
// sink's own persistence failed.
type CallResult struct {
	Payload    []byte
	Status     int
	SnapshotID uint64
}

// SnapshotSink durably records every outbound provider call, before any
// interpretation of the payload. Implementations must never fail outward:
// a persistence problem inside the sink is contained and only reported to the
// operational log.
type SnapshotSink interface {
	// LogSnapshot records one completed call and returns the audit row id.
	LogSnapshot(provider, endpoint string, params map[string]string, httpStatus int, payload []byte, errText *string, duration time.Duration) uint64
	// WithSnapshot times call, records it on both success and failure, and
	// returns call's original error untouched.
	WithSnapshot(ctx context.Context, provider, endpoint string, params map[string]string, call RawCall) (*CallResult, error)
}

// SearchHit is one catalog search result in provider-neutral shape.
type SearchHit struct {
	CatalogID string
	SKU       string
	Name      string
}

// Variant is one sellable size of a catalog product.
type Variant struct {
	VariantID string
	SizeKey   string
}

// Client is the surface the pipeline consumes from a marketplace integration.
type Client interface {
	Name() string
	// Regions lists the regional order books this provider exposes, primary-capable first.
	Regions() []string
	// CurrencyFor maps a region code to the currency that region's book is denominated in.
	CurrencyFor(region string) string
	// Call performs one raw provider request: (endpoint, params) -> (payload, status).
	Call(ctx context.Context, endpoint string, params map[string]string) (*CallResult, error)
	// SearchCatalog searches the provider's catalog by SKU or product name.
	SearchCatalog(ctx context.Context, query string) ([]SearchHit, error)
	// ListVariants lists the sellable sizes of a catalog product in a region.
	ListVariants(ctx context.Context, catalogID, region string) ([]Variant, error)
}

// ErrNotFound marks a 404 on a specific product/variant. Not retryable: the
// caller should invalidate the item's mapping instead of retrying forever.
var ErrNotFound = errors.New("provider resource not found")

// RateLimitedError marks a 429 response. Retryable; backoff honors the
// server-supplied hint when present.
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration // zero when the server gave no hint
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Provider)
}

// UnavailableError marks a 5xx, timeout, or transport failure. Retryable with
// exponential backoff.
type UnavailableError struct {
	Provider string
	Status   int // zero for transport-level failures
	Cause    error
}

func (e *UnavailableError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s unavailable: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitedError
	var ua *UnavailableError
	return errors.As(err, &rl) || errors.As(err, &ua)
}

// ClassifyStatus converts an HTTP status into the pipeline error taxonomy.
// 2xx returns nil; 404 is terminal; 429 and 5xx are retryable.
func ClassifyStatus(provider string, status int, retryAfter time.Duration) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 404:
		return ErrNotFound
	case status == 429:
		return &RateLimitedError{Provider: provider, RetryAfter: retryAfter}
	case status >= 500:
		return &UnavailableError{Provider: provider, Status: status}
	default:
		return fmt.Errorf("%s: unexpected status %d", provider, status)
	}
}

// ctxErr is a non-blocking context check used by the retry loop.
func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
