/**
 * @description
 * Ingestion mapper for the StockX-like market-data source.
 * Amounts arrive as decimal strings already in major currency units and pass
 * through unchanged. Every listing on this source is deadstock, so condition
 * is always new/good-packaging and consignment does not apply.
 *
 * @dependencies
 * - backend/internal/models
 * - backend/internal/providers/stockx: typed raw contract
 */

package services

import (
	"time"

	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/providers/stockx"
)

// MapStockXMarket transforms one raw market-data payload into canonical
// records, one per variant. Variants with unparseable amounts are dropped and
// logged; the rest of the batch survives.
func MapStockXMarket(rawSnapshotID uint64, rawPayload []byte, mctx MapContext) ([]models.CanonicalMarketRecord, error) {
	parsed, err := stockx.ParseMarketData(rawPayload)
	if err != nil {
		return nil, &ValidationError{Provider: providers.ProviderStockX, Detail: err.Error()}
	}

	snapshotAt := time.Unix(mctx.SnapshotAt, 0).UTC()
	records := make([]models.CanonicalMarketRecord, 0, len(parsed.Variants))

	for _, v := range parsed.Variants {
		lowestAsk, errAsk := majorUnits(v.Market.LowestAskAmount)
		highestBid, errBid := majorUnits(v.Market.HighestBidAmount)
		lastSold, errSold := majorUnits(v.Market.LastSaleAmount)
		if errAsk != nil || errBid != nil || errSold != nil {
			logger.Error("stockx mapper: dropping variant %s with malformed amount (ask=%v bid=%v sold=%v)",
				v.VariantID, errAsk, errBid, errSold)
			continue
		}

		variantID := v.VariantID
		sizeNumeric, _ := parseSizeNumeric(v.SizeChart.DisplaySize)

		records = append(records, models.CanonicalMarketRecord{
			Provider:           providers.ProviderStockX,
			Source:             stockx.SourceMarketData,
			ProductID:          parsed.ProductID,
			VariantID:          &variantID,
			SKU:                mctx.SKU,
			SizeKey:            v.SizeChart.DisplaySize,
			SizeNumeric:        sizeNumeric,
			SizeSystem:         mctx.SizeSystem,
			Currency:           parsed.CurrencyCode,
			Region:             mctx.Region,
			Condition:          models.ConditionNew,
			PackagingCondition: models.PackagingGood,
			Consigned:          false,
			LowestAsk:          lowestAsk,
			HighestBid:         highestBid,
			LastSold:           lastSold,
			Volume72h:          v.Market.SalesLast72Hours,
			Volume30d:          v.Market.SalesLast30Days,
			SnapshotAt:         snapshotAt,
			RawSnapshotID:      rawSnapshotID,
		})
	}

	return records, nil
}
