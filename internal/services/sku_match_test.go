package services

import (
	"context"
	"testing"

	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
)

func TestSuggestCatalogMatchLadder(t *testing.T) {
	hit := providers.SearchHit{CatalogID: "cat-1", SKU: "DD1391-100", Name: "Nike Dunk Low Panda"}

	cases := []struct {
		name       string
		sku        string
		hits       map[string][]providers.SearchHit
		wantMethod string
	}{
		{
			name:       "exact sku",
			sku:        "DD1391-100",
			hits:       map[string][]providers.SearchHit{"DD1391-100": {hit}},
			wantMethod: MatchMethodSKUExact,
		},
		{
			name:       "normalized sku",
			sku:        "dd1391 100",
			hits:       map[string][]providers.SearchHit{"dd1391 100": {hit}},
			wantMethod: MatchMethodSKUNormalized,
		},
		{
			name: "fuzzy sku",
			sku:  "DD1391-101",
			hits: map[string][]providers.SearchHit{"DD1391-101": {hit}},
			// One character off: not exact, not normalized-equal, but close.
			wantMethod: MatchMethodSKUFuzzy,
		},
		{
			name:       "no hits at all",
			sku:        "ZZ0000-000",
			hits:       map[string][]providers.SearchHit{},
			wantMethod: MatchMethodNone,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client := &fakeClient{name: "stockx", hits: c.hits}
			got, err := SuggestCatalogMatch(context.Background(), client, c.sku, "")
			if err != nil {
				t.Fatalf("suggest failed: %v", err)
			}
			if got.Method != c.wantMethod {
				t.Fatalf("method = %q, want %q (suggestion %+v)", got.Method, c.wantMethod, got)
			}
			if c.wantMethod == MatchMethodNone && got.Confidence != 0 {
				t.Fatalf("unresolved suggestion must carry zero confidence, got %v", got.Confidence)
			}
		})
	}
}

func TestSuggestCatalogMatchNameFallback(t *testing.T) {
	hit := providers.SearchHit{CatalogID: "cat-1", SKU: "", Name: "Nike Dunk Low Panda"}
	client := &fakeClient{
		name: "alias",
		hits: map[string][]providers.SearchHit{
			"Nike Dunk Low Panda": {hit},
		},
	}

	got, err := SuggestCatalogMatch(context.Background(), client, "DD1391-100", "Nike Dunk Low Panda")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if got.Method != MatchMethodNameFuzzy {
		t.Fatalf("expected name-fuzzy fallback, got %q", got.Method)
	}
	if got.Confidence <= 0 || got.Confidence > weightNameFuzzy {
		t.Fatalf("name-tier confidence must be downweighted, got %v", got.Confidence)
	}
}

func TestSuggestDoesNotPersist(t *testing.T) {
	db := newTestDB(t)
	matching := NewMatchingService(db)

	hit := providers.SearchHit{CatalogID: "cat-1", SKU: "DD1391-100", Name: "Nike Dunk Low Panda"}
	client := &fakeClient{name: "stockx", hits: map[string][]providers.SearchHit{"DD1391-100": {hit}}}

	suggestion, err := SuggestCatalogMatch(context.Background(), client, "DD1391-100", "")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.SizeMapping{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatal("suggestion alone must never create a mapping")
	}

	// Only the explicit commit creates the usable mapping.
	mapping, err := matching.CommitCatalogMatch(suggestion, 9)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if mapping.CatalogID != "cat-1" || mapping.Status != models.MappingStatusOK {
		t.Fatalf("committed mapping wrong: %+v", mapping)
	}
	if mapping.Brand != "nike" || mapping.Gender != models.GenderMen {
		t.Fatalf("commit must derive brand/gender from the catalog title: %+v", mapping)
	}

	if _, err := matching.LookupUsableMapping("stockx", "DD1391-100", 9); err != nil {
		t.Fatalf("committed mapping must be usable: %v", err)
	}
}

func TestCommitRejectsUnresolvedSuggestion(t *testing.T) {
	matching := NewMatchingService(newTestDB(t))

	_, err := matching.CommitCatalogMatch(&MatchSuggestion{Method: MatchMethodNone}, 9)
	if err == nil {
		t.Fatal("unresolved suggestion must not be committable")
	}
}

func TestNormalizeSKU(t *testing.T) {
	cases := []struct{ in, want string }{
		{"DD1391-100", "dd1391100"},
		{"dd1391 100", "dd1391100"},
		{"DD1391/100", "dd1391100"},
	}
	for _, c := range cases {
		if got := normalizeSKU(c.in); got != c.want {
			t.Errorf("normalizeSKU(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	if d := levenshtein("dd1391100", "dd1391100"); d != 0 {
		t.Fatalf("identical strings: distance %d", d)
	}
	if d := levenshtein("dd1391100", "dd1391101"); d != 1 {
		t.Fatalf("single substitution: distance %d", d)
	}
	if s := similarity("dd1391100", "dd1391100"); s != 1 {
		t.Fatalf("identical strings: similarity %v", s)
	}
	if s := similarity("abc", "xyz"); s != 0 {
		t.Fatalf("disjoint strings: similarity %v", s)
	}
}
