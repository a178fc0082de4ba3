package services

import (
	"context"
	"errors"
	"testing"

	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
)

func TestConvertUKSize(t *testing.T) {
	cases := []struct {
		brand  string
		gender string
		uk     float64
		want   string
	}{
		{"nike", models.GenderMen, 9, "10"},
		{"nike", models.GenderMen, 8.5, "9.5"},
		{"nike", models.GenderWomen, 6, "7.5"},
		{"adidas", models.GenderMen, 9, "9.5"},
		{"new balance", models.GenderMen, 9, "9.5"},
	}
	for _, c := range cases {
		got, err := ConvertUKSize(c.brand, c.gender, c.uk)
		if err != nil {
			t.Errorf("ConvertUKSize(%s,%s,%v) error: %v", c.brand, c.gender, c.uk, err)
			continue
		}
		if got != c.want {
			t.Errorf("ConvertUKSize(%s,%s,%v) = %q, want %q", c.brand, c.gender, c.uk, got, c.want)
		}
	}
}

func TestConvertUKSizeGapIsHardFailure(t *testing.T) {
	// 17.5 is outside every published chart for the brand; interpolation is
	// forbidden, so this must fail loudly.
	_, err := ConvertUKSize("nike", models.GenderMen, 17.5)
	if !errors.Is(err, ErrNoSizeMatch) {
		t.Fatalf("expected ErrNoSizeMatch, got %v", err)
	}
}

func TestConvertUKSizeUnknownBrandPassesThrough(t *testing.T) {
	got, err := ConvertUKSize(brandUnknown, models.GenderMen, 9.5)
	if err != nil {
		t.Fatalf("unknown brand must not fail: %v", err)
	}
	if got != "9.5" {
		t.Fatalf("unknown brand must pass the size through verbatim, got %q", got)
	}
}

func TestDetectBrand(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Nike Dunk Low Panda", "nike"},
		{"Air Jordan 1 Retro High OG", "nike"},
		{"Yeezy Boost 350 V2", "adidas"},
		{"New Balance 550 White Green", "new balance"},
		{"ASICS Gel-Kayano 14", "asics"},
		{"Salomon XT-6", brandUnknown},
	}
	for _, c := range cases {
		got, _ := DetectBrand(c.text)
		if got != c.want {
			t.Errorf("DetectBrand(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestDetectGender(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Nike Dunk Low Panda (Women's)", models.GenderWomen},
		{"Air Jordan 1 Mid (GS)", models.GenderYouth},
		{"Nike Dunk Low Panda", models.GenderMen},
	}
	for _, c := range cases {
		if got := DetectGender(c.text); got != c.want {
			t.Errorf("DetectGender(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

// fakeClient satisfies providers.Client with canned search and variant data.
type fakeClient struct {
	name     string
	hits     map[string][]providers.SearchHit
	variants []providers.Variant
	listErr  error
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Regions() []string { return []string{"US"} }

func (f *fakeClient) CurrencyFor(region string) string { return "USD" }

func (f *fakeClient) Call(ctx context.Context, endpoint string, params map[string]string) (*providers.CallResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) SearchCatalog(ctx context.Context, query string) ([]providers.SearchHit, error) {
	return f.hits[query], nil
}

func (f *fakeClient) ListVariants(ctx context.Context, catalogID, region string) ([]providers.Variant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.variants, nil
}

func TestResolveFromMappingExactSizeOnly(t *testing.T) {
	db := newTestDB(t)
	matching := NewMatchingService(db)
	ctx := context.Background()

	mapping := &models.SizeMapping{
		Provider:  "stockx",
		SKU:       "DD1391-100",
		UKSize:    9,
		Brand:     "nike",
		Gender:    models.GenderMen,
		CatalogID: "prod-1",
		Status:    models.MappingStatusUnresolved,
	}
	if err := db.Create(mapping).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	client := &fakeClient{
		name: "stockx",
		variants: []providers.Variant{
			{VariantID: "v-95", SizeKey: "9.5"},
			{VariantID: "v-10", SizeKey: "10"},
			{VariantID: "v-105", SizeKey: "10.5"},
		},
	}

	resolved, err := matching.ResolveFromMapping(ctx, client, mapping, "US")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ProviderSize != "10" || resolved.VariantID != "v-10" {
		t.Fatalf("UK 9 must resolve to US 10, got %s/%s", resolved.ProviderSize, resolved.VariantID)
	}
	if resolved.Status != models.MappingStatusOK {
		t.Fatalf("resolved mapping must be usable, got %s", resolved.Status)
	}
	if resolved.Confidence != 1.0 {
		t.Fatalf("known-brand resolution is full confidence, got %v", resolved.Confidence)
	}
}

func TestResolveFromMappingNoExactVariant(t *testing.T) {
	db := newTestDB(t)
	matching := NewMatchingService(db)

	mapping := &models.SizeMapping{
		Provider: "stockx", SKU: "DD1391-100", UKSize: 9,
		Brand: "nike", Gender: models.GenderMen,
		CatalogID: "prod-1", Status: models.MappingStatusUnresolved,
	}
	if err := db.Create(mapping).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Only near sizes on offer: nearest-match is forbidden.
	client := &fakeClient{
		name: "stockx",
		variants: []providers.Variant{
			{VariantID: "v-95", SizeKey: "9.5"},
			{VariantID: "v-105", SizeKey: "10.5"},
		},
	}

	_, err := matching.ResolveFromMapping(context.Background(), client, mapping, "US")
	if !errors.Is(err, ErrNoSizeMatch) {
		t.Fatalf("expected ErrNoSizeMatch, got %v", err)
	}

	var stored models.SizeMapping
	if err := db.First(&stored, mapping.ID).Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if stored.Status != models.MappingStatusUnresolved || stored.LastError == nil {
		t.Fatalf("failure must be recorded on the mapping: %+v", stored)
	}
}

func TestResolveFromMappingGoneProductInvalidates(t *testing.T) {
	db := newTestDB(t)
	matching := NewMatchingService(db)

	mapping := &models.SizeMapping{
		Provider: "stockx", SKU: "DD1391-100", UKSize: 9,
		Brand: "nike", Gender: models.GenderMen,
		CatalogID: "prod-gone", Status: models.MappingStatusOK,
	}
	if err := db.Create(mapping).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	client := &fakeClient{name: "stockx", listErr: providers.ErrNotFound}

	_, err := matching.ResolveFromMapping(context.Background(), client, mapping, "US")
	if !errors.Is(err, providers.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var stored models.SizeMapping
	if err := db.First(&stored, mapping.ID).Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if stored.Status != models.MappingStatusInvalid {
		t.Fatalf("vanished product must invalidate the mapping, got %s", stored.Status)
	}
}
