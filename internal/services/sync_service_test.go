package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/soletrack-project/backend/internal/models"
	"github.com/soletrack-project/backend/internal/providers"
	"github.com/soletrack-project/backend/internal/providers/stockx"
)

const stockxMarketBody = `{
	"productId": "prod-1",
	"currencyCode": "%s",
	"variants": [
		{
			"variantId": "v-10",
			"sizeChart": {"displaySize": "10"},
			"market": {"lowestAskAmount": "145.00", "highestBidAmount": "120.00"}
		},
		{
			"variantId": "v-105",
			"sizeChart": {"displaySize": "10.5"},
			"market": {"lowestAskAmount": "152.00"}
		}
	]
}`

// fakeStockXServer serves the market endpoint for prod-1 and counts calls
// per requested country.
func fakeStockXServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "prod-1") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(calls, 1)

		currency := "USD"
		switch r.URL.Query().Get("country") {
		case "UK":
			currency = "GBP"
		case "EU":
			currency = "EUR"
		case "JP":
			currency = "JPY"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Replace(stockxMarketBody, "%s", currency, 1)))
	}))
}

func newTestSyncService(t *testing.T, baseURL string) (*SyncService, *MatchingService) {
	t.Helper()
	db := newTestDB(t)

	sink := NewSnapshotLogger(db)
	retry := providers.RetryPolicy{BaseDelay: time.Millisecond, MaxRetries: 1}
	sx := stockx.NewClient(baseURL, "test-key", 5*time.Second, sink, retry)

	matching := NewMatchingService(db)
	store := NewMarketStoreService(db, nil)
	return NewSyncService(sx, nil, matching, store, time.Millisecond, 5*time.Second), matching
}

func seedCommittedMapping(t *testing.T, matching *MatchingService) *models.SizeMapping {
	t.Helper()
	mapping := &models.SizeMapping{
		Provider: "stockx", SKU: "DD1391-100", UKSize: 9,
		Brand: "nike", Gender: models.GenderMen,
		CatalogID: "prod-1", Status: models.MappingStatusUnresolved,
	}
	if err := matching.DB.Create(mapping).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return mapping
}

func TestSyncProductPrimaryRegion(t *testing.T) {
	var calls int32
	srv := fakeStockXServer(t, &calls)
	defer srv.Close()

	svc, matching := newTestSyncService(t, srv.URL)

	mapping := seedCommittedMapping(t, matching)
	resolved, err := svc.SyncProduct(context.Background(), "stockx", "DD1391-100", 9, "US")
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if resolved.ProviderSize != "10" || resolved.VariantID != "v-10" {
		t.Fatalf("variant resolution wrong: %+v", resolved)
	}

	// Primary region records are persisted synchronously.
	var records []models.CanonicalMarketRecord
	if err := matching.DB.Where("region = ?", "US").Find(&records).Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 US records (one per variant), got %d", len(records))
	}
	for _, r := range records {
		if r.SKU != mapping.SKU || r.Currency != "USD" {
			t.Fatalf("record identity wrong: %+v", r)
		}
		if r.RawSnapshotID == 0 {
			t.Fatal("records must reference their raw snapshot")
		}
	}
	if !records[0].LowestAsk.Decimal.Equal(decimal.RequireFromString("145.00")) {
		t.Fatalf("expected 145.00, got %s", records[0].LowestAsk.Decimal)
	}

	// Secondary regions (UK, EU, JP) run in the background; give them a beat.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var regions []string
		if err := matching.DB.Model(&models.CanonicalMarketRecord{}).
			Distinct("region").Pluck("region", &regions).Error; err != nil {
			t.Fatalf("pluck failed: %v", err)
		}
		if len(regions) == 4 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("secondary regions never landed")
}

func TestSyncProductRequiresCommittedMatch(t *testing.T) {
	var calls int32
	srv := fakeStockXServer(t, &calls)
	defer srv.Close()

	svc, _ := newTestSyncService(t, srv.URL)

	_, err := svc.SyncProduct(context.Background(), "stockx", "DD1391-100", 9, "US")
	if !errors.Is(err, ErrMappingRequired) {
		t.Fatalf("expected ErrMappingRequired, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("no provider call may happen before a committed catalog match")
	}
}

func TestSyncProductRegionPreference(t *testing.T) {
	var calls int32
	srv := fakeStockXServer(t, &calls)
	defer srv.Close()

	svc, matching := newTestSyncService(t, srv.URL)
	seedCommittedMapping(t, matching)

	// GB preference maps to the UK provider region and is fetched first.
	if _, err := svc.SyncProduct(context.Background(), "stockx", "DD1391-100", 9, "GB"); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	var ukCount int64
	if err := matching.DB.Model(&models.CanonicalMarketRecord{}).
		Where("region = ? AND currency = ?", "UK", "GBP").Count(&ukCount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if ukCount != 2 {
		t.Fatalf("UK region must be fetched synchronously for GB users, got %d records", ukCount)
	}
}

func TestSyncProductLogsRawSnapshots(t *testing.T) {
	var calls int32
	srv := fakeStockXServer(t, &calls)
	defer srv.Close()

	svc, matching := newTestSyncService(t, srv.URL)
	seedCommittedMapping(t, matching)

	if _, err := svc.SyncProduct(context.Background(), "stockx", "DD1391-100", 9, "US"); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	// At least the variant-resolution call and the primary market fetch.
	var snaps int64
	if err := matching.DB.Model(&models.RawSnapshot{}).Count(&snaps).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if snaps < 2 {
		t.Fatalf("every outbound call must leave a raw snapshot, got %d", snaps)
	}

	var snap models.RawSnapshot
	if err := matching.DB.First(&snap).Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap.Provider != "stockx" || snap.HTTPStatus != http.StatusOK || len(snap.Payload) == 0 {
		t.Fatalf("snapshot row incomplete: provider=%s status=%d payload=%d bytes",
			snap.Provider, snap.HTTPStatus, len(snap.Payload))
	}
}

func TestPrimaryRegionForFallsBackToProviderDefault(t *testing.T) {
	svc, _ := newTestSyncService(t, "http://127.0.0.1:0")

	region, err := svc.PrimaryRegionFor("stockx", "BR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if region != "US" {
		t.Fatalf("unlisted country must fall back to US, got %s", region)
	}

	region, err = svc.PrimaryRegionFor("stockx", "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if region != "EU" {
		t.Fatalf("DE must map to EU, got %s", region)
	}
}
