/**
 * @description
 * Multi-region sync orchestrator.
 * One SyncProduct call drives the full pipeline for a single item/provider
 * pair: resolve the size mapping, fetch market data for the caller's primary
 * region synchronously, persist the canonical records, then walk the
 * provider's remaining regions sequentially in the background. Only the
 * primary region gates success; secondary failures are recorded and logged
 * but never flip the outcome.
 *
 * @dependencies
 * - backend/internal/providers/stockx, backend/internal/providers/alias:
 *   typed fetchers per source
 * - backend/internal/services: matching + store
 *
 * @notes
 * - Secondary regions run on a detached context so a short-lived job budget
 *   doesn't truncate them mid-flight.
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/providers/alias"
	"github.com/soletrack-project/backend/internal/providers/stockx"
)

// ErrMappingRequired is returned when a sync is requested for an item that
// has never been through catalog match approval.
var ErrMappingRequired = errors.New("no committed catalog match for item; approval required before sync")

// regionPreferences maps a user's country preference to the provider region
// that serves it. Anything unlisted falls through to US.
var regionPreferences = map[string]string{
	"US": "US",
	"CA": "US",
	"GB": "UK",
	"UK": "UK",
	"IE": "UK",
	"DE": "EU",
	"FR": "EU",
	"IT": "EU",
	"ES": "EU",
	"NL": "EU",
	"EU": "EU",
	"JP": "JP",
}

// SyncService coordinates fetch, mapping, and persistence across every
// region a provider serves.
type SyncService struct {
	StockX   *stockx.Client
	Alias    *alias.Client
	Matching *MatchingService
	Store    *MarketStoreService

	InterRegionDelay time.Duration
	CallTimeout      time.Duration
	AliasOpts        AliasMapperOptions
}

func NewSyncService(sx *stockx.Client, al *alias.Client, matching *MatchingService, store *MarketStoreService, interRegionDelay, callTimeout time.Duration) *SyncService {
	return &SyncService{
		StockX:           sx,
		Alias:            al,
		Matching:         matching,
		Store:            store,
		InterRegionDelay: interRegionDelay,
		CallTimeout:      callTimeout,
	}
}

func (s *SyncService) clientFor(provider string) (providers.Client, error) {
	switch provider {
	case providers.ProviderStockX:
		return s.StockX, nil
	case providers.ProviderAlias:
		return s.Alias, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// PrimaryRegionFor picks the region fetched synchronously: the user's
// preferred region when the provider serves it, the provider's first region
// otherwise.
func (s *SyncService) PrimaryRegionFor(provider, regionPref string) (string, error) {
	client, err := s.clientFor(provider)
	if err != nil {
		return "", err
	}
	regions := client.Regions()
	if len(regions) == 0 {
		return "", fmt.Errorf("provider %q serves no regions", provider)
	}

	want := regionPreferences[strings.ToUpper(regionPref)]
	if want == "" {
		want = "US"
	}
	for _, r := range regions {
		if r == want {
			return r, nil
		}
	}
	return regions[0], nil
}

// SyncProduct runs one full pipeline pass for (provider, sku, uk size).
// Returns the resolved mapping on success. The primary region's fetch and
// persist gate the result; remaining regions continue in the background.
func (s *SyncService) SyncProduct(ctx context.Context, provider, sku string, ukSize float64, regionPref string) (*models.SizeMapping, error) {
	client, err := s.clientFor(provider)
	if err != nil {
		return nil, err
	}

	primary, err := s.PrimaryRegionFor(provider, regionPref)
	if err != nil {
		return nil, err
	}

	mapping, err := s.Matching.LookupMapping(provider, sku, ukSize)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMappingRequired
	}
	if err != nil {
		return nil, err
	}
	if mapping.CatalogID == "" {
		return nil, ErrMappingRequired
	}

	// A committed catalog match without a resolved variant (fresh commit, or
	// a mapping invalidated by an earlier failure) is re-resolved in place.
	if mapping.ProviderSize == "" || mapping.VariantID == "" || mapping.Status != models.MappingStatusOK {
		mapping, err = s.Matching.ResolveFromMapping(ctx, client, mapping, primary)
		if err != nil {
			return nil, fmt.Errorf("resolving variant for %s/%s: %w", provider, sku, err)
		}
	}

	if err := s.syncRegion(ctx, mapping, primary); err != nil {
		return nil, err
	}

	var secondaries []string
	for _, r := range client.Regions() {
		if r != primary {
			secondaries = append(secondaries, r)
		}
	}
	if len(secondaries) > 0 {
		go s.runSecondaries(mapping, secondaries)
	}

	return mapping, nil
}

// runSecondaries walks the remaining regions one at a time with a fixed
// delay between calls, so a multi-region product doesn't burst the provider.
func (s *SyncService) runSecondaries(mapping *models.SizeMapping, regions []string) {
	for _, region := range regions {
		time.Sleep(s.InterRegionDelay)

		ctx, cancel := context.WithTimeout(context.Background(), s.CallTimeout)
		err := s.syncRegion(ctx, mapping, region)
		cancel()
		if err != nil {
			logger.Error("secondary region sync failed for %s/%s region %s: %v",
				mapping.Provider, mapping.SKU, region, err)
		}
	}
}

// syncRegion fetches, maps, and persists one region's worth of market data.
func (s *SyncService) syncRegion(ctx context.Context, mapping *models.SizeMapping, region string) error {
	mctx := MapContext{
		SKU:        mapping.SKU,
		SizeSystem: "US",
		Region:     region,
		SnapshotAt: time.Now().UTC().Unix(),
	}

	switch mapping.Provider {
	case providers.ProviderStockX:
		return s.syncStockXRegion(ctx, mapping, region, mctx)
	case providers.ProviderAlias:
		return s.syncAliasRegion(ctx, mapping, region, mctx)
	default:
		return fmt.Errorf("unknown provider %q", mapping.Provider)
	}
}

// syncStockXRegion ingests the product-level market payload. One fetch
// covers every variant of the product, so records land for all sizes, not
// just the mapping's own.
func (s *SyncService) syncStockXRegion(ctx context.Context, mapping *models.SizeMapping, region string, mctx MapContext) error {
	res, _, err := s.StockX.FetchMarketData(ctx, mapping.CatalogID, region)
	if err != nil {
		return err
	}

	records, err := MapStockXMarket(res.SnapshotID, res.Payload, mctx)
	if err != nil {
		return err
	}
	return s.Store.AppendRecords(ctx, records)
}

// syncAliasRegion ingests availability, then the offer depth for the
// mapping's own size. Availability failure aborts; offer depth is best
// effort on top of it.
func (s *SyncService) syncAliasRegion(ctx context.Context, mapping *models.SizeMapping, region string, mctx MapContext) error {
	res, _, err := s.Alias.FetchAvailability(ctx, mapping.CatalogID)
	if err != nil {
		return err
	}

	records, err := MapAliasAvailability(res.SnapshotID, res.Payload, mctx, s.AliasOpts)
	if err != nil {
		return err
	}
	if err := s.Store.AppendRecords(ctx, records); err != nil {
		return err
	}

	if mapping.ProviderSize == "" {
		return nil
	}
	depthRes, _, err := s.Alias.FetchOfferDepth(ctx, mapping.CatalogID, mapping.ProviderSize)
	if err != nil {
		logger.Error("offer depth fetch failed for %s size %s: %v", mapping.CatalogID, mapping.ProviderSize, err)
		return nil
	}
	entries, err := MapAliasOfferDepth(depthRes.SnapshotID, depthRes.Payload, mctx)
	if err != nil {
		logger.Error("offer depth payload rejected for %s size %s: %v", mapping.CatalogID, mapping.ProviderSize, err)
		return nil
	}

	consigned := false
	if len(entries) > 0 {
		consigned = entries[0].Consigned
	}
	if err := s.Store.ReplaceOrderBook(ctx, providers.ProviderAlias, mapping.CatalogID, mapping.ProviderSize, region, consigned, entries); err != nil {
		logger.Error("order book replace failed for %s size %s: %v", mapping.CatalogID, mapping.ProviderSize, err)
	}
	return nil
}
