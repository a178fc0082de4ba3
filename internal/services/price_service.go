/**
 * @description
 * Read-side price service.
 * Serves valuations out of the latest-price projection with a short-lived
 * Redis cache in front. The valuation rule is fixed: lowest ask when one
 * exists, highest bid otherwise, and an explicit "none" when the row carries
 * neither. Sale history never stands in for a live market.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: read-through cache
 * - gorm.io/gorm: projection reads
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
)

// Valuation methods, in application order.
const (
	ValuationLowestAsk  = "lowest_ask"
	ValuationHighestBid = "highest_bid"
	ValuationNone       = "none"
)

const valuationCacheTTL = 30 * time.Second

// ErrNoPrice is returned when no projection row exists for the requested key.
var ErrNoPrice = errors.New("no price observation for key")

// Valuation is one resolved price answer: the full market summary of the
// winning row plus the applied rule and its amount.
type Valuation struct {
	SKU        string              `json:"sku"`
	SizeKey    string              `json:"size_key"`
	Currency   string              `json:"currency"`
	Region     string              `json:"region"`
	Provider   string              `json:"provider"`
	LowestAsk  decimal.NullDecimal `json:"lowest_ask"`
	HighestBid decimal.NullDecimal `json:"highest_bid"`
	LastSold   decimal.NullDecimal `json:"last_sold"`
	Method     string              `json:"method"`
	Amount     decimal.NullDecimal `json:"amount"`
	SnapshotAt time.Time           `json:"snapshot_at"`
}

// PriceService answers read queries against the latest-price projection.
type PriceService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewPriceService(db *gorm.DB, rdb *redis.Client) *PriceService {
	return &PriceService{DB: db, Redis: rdb}
}

func valuationCacheKey(sku, sizeKey, currency, region string) string {
	return fmt.Sprintf("prices:valuation:%s:%s:%s:%s", sku, sizeKey, currency, region)
}

// Valuate applies the valuation rule to one projection row.
func Valuate(row *models.LatestPrice) (method string, amount decimal.NullDecimal) {
	switch {
	case row.LowestAsk.Valid:
		return ValuationLowestAsk, row.LowestAsk
	case row.HighestBid.Valid:
		return ValuationHighestBid, row.HighestBid
	default:
		return ValuationNone, decimal.NullDecimal{}
	}
}

// GetLatestPrice resolves the valuation for (sku, size, currency, region).
// When more than one provider has an observation for the key, the freshest
// snapshot wins. Cache first, projection second.
func (s *PriceService) GetLatestPrice(ctx context.Context, sku, sizeKey, currency, region string) (*Valuation, error) {
	cacheKey := valuationCacheKey(sku, sizeKey, currency, region)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var v Valuation
			if err := json.Unmarshal([]byte(cached), &v); err == nil {
				return &v, nil
			}
		}
	}

	var row models.LatestPrice
	err := s.DB.WithContext(ctx).
		Where("sku = ? AND size_key = ? AND currency = ? AND region = ?", sku, sizeKey, currency, region).
		Order("snapshot_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPrice
	}
	if err != nil {
		return nil, err
	}

	method, amount := Valuate(&row)
	v := &Valuation{
		SKU:        row.SKU,
		SizeKey:    row.SizeKey,
		Currency:   row.Currency,
		Region:     row.Region,
		Provider:   row.Provider,
		LowestAsk:  row.LowestAsk,
		HighestBid: row.HighestBid,
		LastSold:   row.LastSold,
		Method:     method,
		Amount:     amount,
		SnapshotAt: row.SnapshotAt,
	}

	if s.Redis != nil {
		payload, err := json.Marshal(v)
		if err == nil {
			if err := s.Redis.Set(ctx, cacheKey, payload, valuationCacheTTL).Err(); err != nil {
				logger.Error("failed to cache valuation for %s: %v", cacheKey, err)
			}
		}
	}
	return v, nil
}

// ListLatestForSKU returns every projection row for a SKU, all sizes and
// regions, for the item detail surface.
func (s *PriceService) ListLatestForSKU(ctx context.Context, sku string) ([]models.LatestPrice, error) {
	var rows []models.LatestPrice
	err := s.DB.WithContext(ctx).
		Where("sku = ?", sku).
		Order("provider ASC, region ASC, size_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
