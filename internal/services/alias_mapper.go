/**
 * @description
 * Ingestion mappers for the Alias/GOAT-like sources.
 * Amounts arrive as integer cent strings and are divided by 100 exactly. The
 * availability source reports one entry per (size, condition, box, consigned)
 * combination, which must collapse to a single record per (size, consigned)
 * key, preferring new condition over used and good packaging over the rest,
 * or the store's uniqueness constraint trips inside one batch.
 *
 * @dependencies
 * - backend/internal/models
 * - backend/internal/providers/alias: typed raw contracts
 */

package services

import (
	"time"

	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/providers/alias"
)

// AliasMapperOptions tunes condition filtering. The default ingests only the
// canonical new-condition/good-box combination.
type AliasMapperOptions struct {
	IncludeUsed bool
}

// MapAliasAvailability transforms one raw availability payload into canonical
// records, collapsed to one record per (size, consigned) key.
func MapAliasAvailability(rawSnapshotID uint64, rawPayload []byte, mctx MapContext, opts AliasMapperOptions) ([]models.CanonicalMarketRecord, error) {
	parsed, err := alias.ParseAvailability(rawPayload)
	if err != nil {
		return nil, &ValidationError{Provider: providers.ProviderAlias, Detail: err.Error()}
	}

	// Collapse: keep the best-ranked entry per (size, consigned).
	type entryKey struct {
		size      string
		consigned bool
	}
	best := make(map[entryKey]alias.AvailabilityEntry)
	order := make([]entryKey, 0, len(parsed.Availability))

	for _, e := range parsed.Availability {
		if !opts.IncludeUsed && (e.ShoeCondition != alias.ShoeConditionNew || e.BoxCondition != alias.BoxConditionGood) {
			continue
		}
		key := entryKey{size: e.Size, consigned: e.Consigned}
		current, exists := best[key]
		if !exists {
			best[key] = e
			order = append(order, key)
			continue
		}
		if conditionRank(e) < conditionRank(current) {
			best[key] = e
		}
	}

	snapshotAt := time.Unix(mctx.SnapshotAt, 0).UTC()
	records := make([]models.CanonicalMarketRecord, 0, len(best))

	for _, key := range order {
		e := best[key]

		lowestAsk, errAsk := minorUnits(e.LowestListingPriceCents)
		highestBid, errBid := minorUnits(e.HighestOfferPriceCents)
		lastSold, errSold := minorUnits(e.LastSoldPriceCents)
		if errAsk != nil || errBid != nil || errSold != nil {
			logger.Error("alias mapper: dropping size %s with malformed cents (ask=%v bid=%v sold=%v)",
				e.Size, errAsk, errBid, errSold)
			continue
		}

		condition := models.ConditionNew
		if e.ShoeCondition != alias.ShoeConditionNew {
			condition = models.ConditionUsed
		}
		packaging := models.PackagingGood
		if e.BoxCondition != alias.BoxConditionGood {
			packaging = models.PackagingDamaged
		}

		sizeNumeric, _ := parseSizeNumeric(e.Size)

		records = append(records, models.CanonicalMarketRecord{
			Provider:           providers.ProviderAlias,
			Source:             alias.SourceAvailability,
			ProductID:          parsed.CatalogID,
			VariantID:          nil, // this marketplace addresses variants by size only
			SKU:                mctx.SKU,
			SizeKey:            e.Size,
			SizeNumeric:        sizeNumeric,
			SizeSystem:         mctx.SizeSystem,
			Currency:           parsed.Currency,
			Region:             mctx.Region,
			Condition:          condition,
			PackagingCondition: packaging,
			Consigned:          e.Consigned,
			LowestAsk:          lowestAsk,
			HighestBid:         highestBid,
			LastSold:           lastSold,
			SnapshotAt:         snapshotAt,
			RawSnapshotID:      rawSnapshotID,
		})
	}

	return records, nil
}

// conditionRank orders condition combinations: new over used, good box over
// the rest. Lower is better.
func conditionRank(e alias.AvailabilityEntry) int {
	rank := 0
	if e.ShoeCondition != alias.ShoeConditionNew {
		rank += 2
	}
	if e.BoxCondition != alias.BoxConditionGood {
		rank++
	}
	return rank
}

// MapAliasOfferDepth transforms one raw offer-depth payload into order-book
// bins. The result is a full state snapshot for its key; the store replaces,
// never appends.
func MapAliasOfferDepth(rawSnapshotID uint64, rawPayload []byte, mctx MapContext) ([]models.OrderBookEntry, error) {
	parsed, err := alias.ParseOfferDepth(rawPayload)
	if err != nil {
		return nil, &ValidationError{Provider: providers.ProviderAlias, Detail: err.Error()}
	}

	snapshotAt := time.Unix(mctx.SnapshotAt, 0).UTC()
	entries := make([]models.OrderBookEntry, 0, len(parsed.Bins))

	for _, b := range parsed.Bins {
		price, err := minorUnits(b.PriceCents)
		if err != nil || !price.Valid {
			logger.Error("alias offer depth: dropping bin with malformed price %q: %v", b.PriceCents, err)
			continue
		}
		entries = append(entries, models.OrderBookEntry{
			Provider:      providers.ProviderAlias,
			CatalogID:     parsed.CatalogID,
			SizeKey:       parsed.Size,
			Region:        mctx.Region,
			Consigned:     parsed.Consigned,
			Currency:      parsed.Currency,
			Price:         price.Decimal,
			Quantity:      b.Count,
			SnapshotAt:    snapshotAt,
			RawSnapshotID: rawSnapshotID,
		})
	}

	return entries, nil
}
