/**
 * @description
 * SKU/catalog matching.
 * Resolves a manufacturer SKU to a provider catalog id through a fixed ladder:
 * exact SKU equality, normalized SKU equality, fuzzy SKU similarity, fuzzy
 * product-name similarity. Every result is a suggestion only; nothing here
 * auto-promotes a suggestion to an authoritative mapping. Committing requires
 * the explicit approval operation.
 *
 * @dependencies
 * - backend/internal/providers: catalog search surface
 * - gorm.io/gorm: mapping persistence on commit
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"gorm.io/gorm"
)

// Match methods, strongest first.
const (
	MatchMethodSKUExact      = "sku_exact"
	MatchMethodSKUNormalized = "sku_normalized"
	MatchMethodSKUFuzzy      = "sku_fuzzy"
	MatchMethodNameFuzzy     = "name_fuzzy"
	MatchMethodNone          = "unresolved"
)

// Confidence weights per tier.
const (
	confidenceExact      = 1.0
	confidenceNormalized = 0.95
	weightSKUFuzzy       = 0.85
	weightNameFuzzy      = 0.70
)

// MatchSuggestion is a confidence-scored candidate catalog mapping. It is
// advisory: only CommitCatalogMatch turns one into a usable mapping.
type MatchSuggestion struct {
	Provider    string  `json:"provider"`
	SKU         string  `json:"sku"`
	CatalogID   string  `json:"catalog_id"`
	CatalogSKU  string  `json:"catalog_sku"`
	CatalogName string  `json:"catalog_name"`
	Confidence  float64 `json:"confidence"`
	Method      string  `json:"method"`
}

// SuggestCatalogMatch runs the matching ladder against provider search
// results. First tier to produce a hit wins; an empty result set yields an
// unresolved suggestion with confidence 0.
func SuggestCatalogMatch(ctx context.Context, client providers.Client, sku, productName string) (*MatchSuggestion, error) {
	suggestion := &MatchSuggestion{
		Provider:   client.Name(),
		SKU:        sku,
		Method:     MatchMethodNone,
		Confidence: 0,
	}

	hits, err := client.SearchCatalog(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("sku search failed: %w", err)
	}

	// Tier 1: exact SKU string equality.
	for _, h := range hits {
		if h.SKU == sku {
			suggestion.fill(h, confidenceExact, MatchMethodSKUExact)
			return suggestion, nil
		}
	}

	// Tier 2: case-folded, punctuation-stripped equality.
	normalized := normalizeSKU(sku)
	for _, h := range hits {
		if normalizeSKU(h.SKU) == normalized {
			suggestion.fill(h, confidenceNormalized, MatchMethodSKUNormalized)
			return suggestion, nil
		}
	}

	// Tier 3: best fuzzy match among SKU search results.
	if best, sim := bestSimilarity(hits, func(h providers.SearchHit) string { return normalizeSKU(h.SKU) }, normalized); best != nil && sim > 0 {
		suggestion.fill(*best, sim*weightSKUFuzzy, MatchMethodSKUFuzzy)
		return suggestion, nil
	}

	// Tier 4: best fuzzy match among product-name search results.
	if productName != "" {
		nameHits, err := client.SearchCatalog(ctx, productName)
		if err != nil {
			return nil, fmt.Errorf("name search failed: %w", err)
		}
		target := strings.ToLower(productName)
		if best, sim := bestSimilarity(nameHits, func(h providers.SearchHit) string { return strings.ToLower(h.Name) }, target); best != nil && sim > 0 {
			suggestion.fill(*best, sim*weightNameFuzzy, MatchMethodNameFuzzy)
			return suggestion, nil
		}
	}

	return suggestion, nil
}

func (s *MatchSuggestion) fill(hit providers.SearchHit, confidence float64, method string) {
	s.CatalogID = hit.CatalogID
	s.CatalogSKU = hit.SKU
	s.CatalogName = hit.Name
	s.Confidence = confidence
	s.Method = method
}

// CommitCatalogMatch persists a suggestion as the usable catalog mapping for
// its (provider, sku) key. This is the explicit human-approval step; it is the
// only path that marks a catalog mapping authoritative.
func (s *MatchingService) CommitCatalogMatch(suggestion *MatchSuggestion, ukSize float64) (*models.SizeMapping, error) {
	if suggestion == nil || suggestion.CatalogID == "" || suggestion.Method == MatchMethodNone {
		return nil, errors.New("cannot commit an unresolved suggestion")
	}

	var mapping models.SizeMapping
	err := s.DB.Where("provider = ? AND sku = ? AND uk_size = ?",
		suggestion.Provider, suggestion.SKU, ukSize).
		First(&mapping).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	mapping.Provider = suggestion.Provider
	mapping.SKU = suggestion.SKU
	mapping.UKSize = ukSize
	mapping.CatalogID = suggestion.CatalogID
	mapping.Confidence = suggestion.Confidence
	mapping.Status = models.MappingStatusOK
	mapping.LastError = nil

	// Brand and gender come from the catalog title so the sync path can run
	// size conversion without re-fetching item metadata.
	brand, _ := DetectBrand(suggestion.CatalogName)
	mapping.Brand = brand
	mapping.Gender = DetectGender(suggestion.CatalogName)

	if err := s.DB.Save(&mapping).Error; err != nil {
		return nil, err
	}
	return &mapping, nil
}

// normalizeSKU case-folds and strips punctuation/whitespace so "DD1391-100",
// "dd1391 100" and "DD1391100" compare equal.
func normalizeSKU(sku string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(sku) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// bestSimilarity returns the hit with the highest edit-distance similarity to
// target, ignoring hits that share nothing with it.
func bestSimilarity(hits []providers.SearchHit, key func(providers.SearchHit) string, target string) (*providers.SearchHit, float64) {
	var best *providers.SearchHit
	bestSim := 0.0
	for i := range hits {
		sim := similarity(key(hits[i]), target)
		if sim > bestSim {
			best = &hits[i]
			bestSim = sim
		}
	}
	return best, bestSim
}

// similarity is 1 - levenshtein/maxlen, in [0, 1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
