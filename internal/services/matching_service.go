/**
 * @description
 * Size/variant matching engine.
 * Resolves a user's (brand, UK size, sku) to a provider-specific size and
 * variant: brand detection by longest literal prefix, gender detection by
 * keyword scan, UK -> US conversion through the static per-brand tables, and
 * exact-only variant matching. A wrong size match is worse than a hard
 * failure, so nothing here guesses.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 * - backend/internal/providers
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soletrack-project/backend/internal/logger"
	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"gorm.io/gorm"
)

// ErrNoSizeMatch is the hard failure raised when a size cannot be converted or
// no provider variant carries the exact converted size.
var ErrNoSizeMatch = errors.New("NO_SIZE_MATCH")

// ItemRef identifies a user's item for resolution purposes.
type ItemRef struct {
	SKU    string
	Title  string
	Brand  string // optional explicit brand; title is scanned when empty
	UKSize float64
}

type MatchingService struct {
	DB *gorm.DB
}

func NewMatchingService(db *gorm.DB) *MatchingService {
	return &MatchingService{DB: db}
}

// DetectBrand matches text against the known-brand list using the longest
// literal prefix. Unknown brands land in the "unknown" bucket, which applies
// no conversion.
func DetectBrand(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	best := ""
	bestKey := brandUnknown
	for literal, key := range brandLiterals {
		if strings.HasPrefix(normalized, literal) && len(literal) > len(best) {
			best = literal
			bestKey = key
		}
	}
	return bestKey, best != ""
}

// genderKeywords are scanned in order; first hit wins.
var genderKeywords = []struct {
	needle string
	gender string
}{
	{"women's", models.GenderWomen},
	{"womens", models.GenderWomen},
	{"(w)", models.GenderWomen},
	{"wmns", models.GenderWomen},
	{"grade school", models.GenderYouth},
	{"(gs)", models.GenderYouth},
	{"youth", models.GenderYouth},
	{"(y)", models.GenderYouth},
	{"toddler", models.GenderYouth},
	{"(td)", models.GenderYouth},
	{"(ps)", models.GenderYouth},
}

// DetectGender scans title/metadata text for segment markers. Defaults to the
// men's table when nothing matches.
func DetectGender(text string) string {
	normalized := strings.ToLower(text)
	for _, kw := range genderKeywords {
		if strings.Contains(normalized, kw.needle) {
			return kw.gender
		}
	}
	return models.GenderMen
}

// ConvertUKSize looks up the provider-facing US size for a brand/gender/UK
// size combination. Unknown brands pass the size through verbatim (logged as a
// lower-confidence condition); a known brand with a missing table entry is a
// hard ErrNoSizeMatch.
func ConvertUKSize(brand, gender string, ukSize float64) (string, error) {
	if brand == brandUnknown {
		logger.Info("size conversion: unknown brand, passing UK %s through verbatim", formatSize(ukSize))
		return formatSize(ukSize), nil
	}

	genderTables, ok := conversionTables[brand]
	if !ok {
		return "", fmt.Errorf("%w: no conversion table for brand %q", ErrNoSizeMatch, brand)
	}
	table, ok := genderTables[gender]
	if !ok {
		return "", fmt.Errorf("%w: brand %q has no %s table", ErrNoSizeMatch, brand, gender)
	}
	converted, ok := table[ukSize]
	if !ok {
		return "", fmt.Errorf("%w: brand %q %s table has no entry for UK %s", ErrNoSizeMatch, brand, gender, formatSize(ukSize))
	}
	return formatSize(converted), nil
}

// formatSize renders a numeric size the way providers label variants ("10",
// "10.5"), never with a trailing ".0".
func formatSize(size float64) string {
	return strconv.FormatFloat(size, 'f', -1, 64)
}

// ResolveVariant resolves item to a provider variant in region and records the
// outcome on the item's SizeMapping row. Only an exact size-label match is
// accepted.
func (s *MatchingService) ResolveVariant(ctx context.Context, client providers.Client, item ItemRef, catalogID, region string) (*models.SizeMapping, error) {
	mapping, err := s.loadOrCreateMapping(client.Name(), item)
	if err != nil {
		return nil, err
	}

	brandText := item.Brand
	if brandText == "" {
		brandText = item.Title
	}
	brand, _ := DetectBrand(brandText)
	gender := DetectGender(item.Title)

	mapping.Brand = brand
	mapping.Gender = gender
	mapping.CatalogID = catalogID

	return s.ResolveFromMapping(ctx, client, mapping, region)
}

// ResolveFromMapping re-runs variant resolution using the brand/gender already
// persisted on the mapping row. This is the path the queue worker takes, where
// only the cached mapping is available.
func (s *MatchingService) ResolveFromMapping(ctx context.Context, client providers.Client, mapping *models.SizeMapping, region string) (*models.SizeMapping, error) {
	if mapping.CatalogID == "" {
		return s.recordFailure(mapping, models.MappingStatusUnresolved,
			errors.New("no catalog id committed for mapping; sku match approval required"))
	}

	sizeKey, err := ConvertUKSize(mapping.Brand, mapping.Gender, mapping.UKSize)
	if err != nil {
		return s.recordFailure(mapping, models.MappingStatusUnresolved, err)
	}

	variants, err := client.ListVariants(ctx, mapping.CatalogID, region)
	if err != nil {
		status := models.MappingStatusUnresolved
		if errors.Is(err, providers.ErrNotFound) {
			// The provider no longer knows this product; retrying forever is pointless.
			status = models.MappingStatusInvalid
		}
		return s.recordFailure(mapping, status, err)
	}

	for _, v := range variants {
		if v.SizeKey == sizeKey {
			now := time.Now().UTC()
			mapping.ProviderSize = sizeKey
			mapping.VariantID = v.VariantID
			mapping.Status = models.MappingStatusOK
			mapping.LastSyncedAt = &now
			mapping.LastError = nil
			if mapping.Brand != brandUnknown {
				mapping.Confidence = 1.0
			} else {
				mapping.Confidence = 0.5
			}
			if err := s.DB.Save(mapping).Error; err != nil {
				return nil, err
			}
			return mapping, nil
		}
	}

	noMatch := fmt.Errorf("%w: no variant with exact size %q on %s product %s", ErrNoSizeMatch, sizeKey, client.Name(), mapping.CatalogID)
	return s.recordFailure(mapping, models.MappingStatusUnresolved, noMatch)
}

// loadOrCreateMapping fetches the cached mapping for (provider, sku, uk size),
// creating the row lazily on first resolution attempt.
func (s *MatchingService) loadOrCreateMapping(provider string, item ItemRef) (*models.SizeMapping, error) {
	var mapping models.SizeMapping
	err := s.DB.Where("provider = ? AND sku = ? AND uk_size = ?", provider, item.SKU, item.UKSize).
		First(&mapping).Error
	if err == nil {
		return &mapping, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	mapping = models.SizeMapping{
		Provider: provider,
		SKU:      item.SKU,
		UKSize:   item.UKSize,
		Status:   models.MappingStatusUnresolved,
	}
	if err := s.DB.Create(&mapping).Error; err != nil {
		return nil, err
	}
	return &mapping, nil
}

// recordFailure updates the mapping row with the failure and passes the
// original error through to the caller.
func (s *MatchingService) recordFailure(mapping *models.SizeMapping, status string, cause error) (*models.SizeMapping, error) {
	msg := cause.Error()
	mapping.Status = status
	mapping.LastError = &msg
	mapping.Confidence = 0
	if err := s.DB.Save(mapping).Error; err != nil {
		logger.Error("failed to record mapping failure for %s/%s: %v", mapping.Provider, mapping.SKU, err)
	}
	return mapping, cause
}

// MarkMappingBroken flags the mapping behind a terminally failed job so the
// staleness scan stops re-enqueueing it until someone re-commits a match.
func (s *MatchingService) MarkMappingBroken(provider, sku string, ukSize float64, cause error) {
	mapping, err := s.LookupMapping(provider, sku, ukSize)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("failed to load mapping %s/%s for broken flag: %v", provider, sku, err)
		}
		return
	}
	if _, err := s.recordFailure(mapping, models.MappingStatusInvalid, cause); err != nil && err != cause {
		logger.Error("failed to flag mapping %s/%s broken: %v", provider, sku, err)
	}
}

// LookupMapping returns the mapping row for a key regardless of status, or
// gorm.ErrRecordNotFound when no catalog match has ever been attempted.
func (s *MatchingService) LookupMapping(provider, sku string, ukSize float64) (*models.SizeMapping, error) {
	var mapping models.SizeMapping
	err := s.DB.Where("provider = ? AND sku = ? AND uk_size = ?", provider, sku, ukSize).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// LookupUsableMapping returns the committed, usable mapping for a key, or
// gorm.ErrRecordNotFound when resolution hasn't succeeded yet.
func (s *MatchingService) LookupUsableMapping(provider, sku string, ukSize float64) (*models.SizeMapping, error) {
	var mapping models.SizeMapping
	err := s.DB.Where("provider = ? AND sku = ? AND uk_size = ? AND status = ?",
		provider, sku, ukSize, models.MappingStatusOK).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
