package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/soletrack-project/backend/internal/models"
)

func TestMajorUnitsPassThrough(t *testing.T) {
	got, err := majorUnits("145.00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Valid || !got.Decimal.Equal(decimal.RequireFromString("145.00")) {
		t.Fatalf("expected 145.00, got %v", got)
	}

	empty, err := majorUnits("")
	if err != nil {
		t.Fatalf("unexpected error for empty amount: %v", err)
	}
	if empty.Valid {
		t.Fatal("empty amount must map to null, not zero")
	}
}

func TestMinorUnitsDividesBy100(t *testing.T) {
	got, err := minorUnits("14500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Valid || !got.Decimal.Equal(decimal.RequireFromString("145.00")) {
		t.Fatalf("expected 145.00, got %v", got.Decimal)
	}

	// An odd cent amount must not lose precision.
	odd, err := minorUnits("9999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if odd.Decimal.String() != "99.99" {
		t.Fatalf("expected 99.99, got %s", odd.Decimal)
	}

	if _, err := minorUnits("145.00"); err == nil {
		t.Fatal("decimal string is not a valid cent amount")
	}
}

func mapCtx() MapContext {
	return MapContext{
		SKU:        "DD1391-100",
		SizeSystem: "US",
		Region:     "US",
		SnapshotAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix(),
	}
}

func TestMapStockXMarket(t *testing.T) {
	payload := []byte(`{
		"productId": "prod-1",
		"currencyCode": "USD",
		"variants": [
			{
				"variantId": "v-10",
				"sizeChart": {"displaySize": "10"},
				"market": {
					"lowestAskAmount": "145.00",
					"highestBidAmount": "120.00",
					"lastSaleAmount": "138.50",
					"salesLast72Hours": 7
				}
			},
			{
				"variantId": "v-11",
				"sizeChart": {"displaySize": "11"},
				"market": {"highestBidAmount": "110.00"}
			}
		]
	}`)

	records, err := MapStockXMarket(42, payload, mapCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected one record per variant, got %d", len(records))
	}

	r := records[0]
	if r.Provider != "stockx" || r.ProductID != "prod-1" || r.SizeKey != "10" {
		t.Fatalf("unexpected record identity: %+v", r)
	}
	if !r.LowestAsk.Decimal.Equal(decimal.RequireFromString("145.00")) {
		t.Fatalf("lowest ask must pass through unchanged, got %s", r.LowestAsk.Decimal)
	}
	if r.Condition != models.ConditionNew || r.Consigned {
		t.Fatalf("deadstock source must always be new/unconsigned: %+v", r)
	}
	if r.Volume72h == nil || *r.Volume72h != 7 {
		t.Fatalf("expected 72h volume 7, got %v", r.Volume72h)
	}
	if r.RawSnapshotID != 42 {
		t.Fatalf("record must carry raw snapshot provenance, got %d", r.RawSnapshotID)
	}

	// A side with no liquidity stays null rather than zero.
	second := records[1]
	if second.LowestAsk.Valid {
		t.Fatal("missing ask must map to null")
	}
	if !second.HighestBid.Decimal.Equal(decimal.RequireFromString("110.00")) {
		t.Fatalf("expected bid 110.00, got %s", second.HighestBid.Decimal)
	}
}

func TestMapStockXMarketDropsMalformedVariantOnly(t *testing.T) {
	payload := []byte(`{
		"productId": "prod-1",
		"currencyCode": "USD",
		"variants": [
			{"variantId": "v-good", "sizeChart": {"displaySize": "10"}, "market": {"lowestAskAmount": "145.00"}},
			{"variantId": "v-bad", "sizeChart": {"displaySize": "11"}, "market": {"lowestAskAmount": "not-a-number"}}
		]
	}`)

	records, err := MapStockXMarket(1, payload, mapCtx())
	if err != nil {
		t.Fatalf("one bad variant must not fail the payload, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the clean variant to survive, got %d records", len(records))
	}
	if records[0].VariantID == nil || *records[0].VariantID != "v-good" {
		t.Fatalf("wrong variant survived: %+v", records[0])
	}
}

func TestMapStockXMarketRejectsMalformedPayload(t *testing.T) {
	_, err := MapStockXMarket(1, []byte(`{"variants": []}`), mapCtx())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing productId, got %v", err)
	}
}

func TestMapAliasAvailabilityConvertsCentsAndFiltersConditions(t *testing.T) {
	payload := []byte(`{
		"catalog_id": "cat-1",
		"currency": "USD",
		"availability": [
			{
				"size": "10",
				"shoe_condition": "new_no_defects",
				"box_condition": "good_condition",
				"lowest_listing_price_cents": "14500",
				"highest_offer_price_cents": "12000",
				"last_sold_price_cents": "13850"
			},
			{
				"size": "10",
				"shoe_condition": "used",
				"box_condition": "good_condition",
				"lowest_listing_price_cents": "9000"
			},
			{
				"size": "10",
				"shoe_condition": "new_no_defects",
				"box_condition": "good_condition",
				"consigned": true,
				"lowest_listing_price_cents": "15500"
			}
		]
	}`)

	records, err := MapAliasAvailability(7, payload, mapCtx(), AliasMapperOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Used entry filtered; new consigned and new unconsigned are distinct keys.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	byConsigned := map[bool]models.CanonicalMarketRecord{}
	for _, r := range records {
		byConsigned[r.Consigned] = r
	}
	if !byConsigned[false].LowestAsk.Decimal.Equal(decimal.RequireFromString("145.00")) {
		t.Fatalf("cents must be divided by 100, got %s", byConsigned[false].LowestAsk.Decimal)
	}
	if !byConsigned[true].LowestAsk.Decimal.Equal(decimal.RequireFromString("155.00")) {
		t.Fatalf("consigned record mispriced: %s", byConsigned[true].LowestAsk.Decimal)
	}
}

func TestMapAliasAvailabilityIncludeUsed(t *testing.T) {
	payload := []byte(`{
		"catalog_id": "cat-1",
		"currency": "USD",
		"availability": [
			{"size": "9", "shoe_condition": "used", "box_condition": "badly_damaged", "lowest_listing_price_cents": "8000"}
		]
	}`)

	records, err := MapAliasAvailability(7, payload, mapCtx(), AliasMapperOptions{IncludeUsed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected used record to survive with IncludeUsed, got %d", len(records))
	}
	r := records[0]
	if r.Condition != models.ConditionUsed || r.PackagingCondition != models.PackagingDamaged {
		t.Fatalf("condition mapping wrong: %+v", r)
	}
}

func TestMapAliasAvailabilityDropsMalformedEntryOnly(t *testing.T) {
	payload := []byte(`{
		"catalog_id": "cat-1",
		"currency": "USD",
		"availability": [
			{"size": "9", "shoe_condition": "new_no_defects", "box_condition": "good_condition", "lowest_listing_price_cents": "145.00"},
			{"size": "10", "shoe_condition": "new_no_defects", "box_condition": "good_condition", "lowest_listing_price_cents": "14500"}
		]
	}`)

	records, err := MapAliasAvailability(7, payload, mapCtx(), AliasMapperOptions{})
	if err != nil {
		t.Fatalf("one bad entry must not fail the payload, got %v", err)
	}
	if len(records) != 1 || records[0].SizeKey != "10" {
		t.Fatalf("expected only the clean entry to survive, got %+v", records)
	}
}

func TestMapAliasOfferDepth(t *testing.T) {
	payload := []byte(`{
		"catalog_id": "cat-1",
		"size": "10",
		"currency": "USD",
		"bins": [
			{"price_cents": "12000", "count": 3},
			{"price_cents": "11500", "count": 1},
			{"price_cents": "oops", "count": 2}
		]
	}`)

	entries, err := MapAliasOfferDepth(9, payload, mapCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected the malformed bin dropped and one entry per clean bin, got %d", len(entries))
	}
	if !entries[0].Price.Equal(decimal.RequireFromString("120.00")) {
		t.Fatalf("bin price must be converted from cents, got %s", entries[0].Price)
	}
	if entries[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", entries[0].Quantity)
	}
}

func TestParseSizeNumeric(t *testing.T) {
	cases := []struct {
		label string
		want  float64
		ok    bool
	}{
		{"10.5", 10.5, true},
		{"10W", 10, true},
		{"9", 9, true},
		{"OS", 0, false},
	}
	for _, c := range cases {
		got, ok := parseSizeNumeric(c.label)
		if ok != c.ok || got != c.want {
			t.Errorf("parseSizeNumeric(%q) = %v,%v; want %v,%v", c.label, got, ok, c.want, c.ok)
		}
	}
}
