package ingest

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/ETAnderson/offersync/internal/domain"
)

func testNormalizer(t *testing.T) Normalizer {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return NewNormalizer(loc, 0)
}

const catalogPayload = `{
	"offers": [
		{
			"id": 11, "type": 1, "level": 2,
			"name": "  Big Mac  ",
			"imageDetail": "https://example.com/11.png",
			"qrCode": "111111111111", "checkoutCode": "C11", "price": "3.50",
			"dateFrom": "01/10/2026", "dateTo": "31/10/2026",
			"bigQrCode": "111111111112", "bigCheckoutCode": "C12", "bigPrice": 4.1
		},
		{
			"id": "12", "type": 7,
			"name": "Sundae",
			"imageDetail": "https://example.com/12.png",
			"qrCode": "121212121212", "checkoutCode": "C21", "price": 1,
			"dateFrom": "05/10/2026", "dateTo": "06/10/2026",
			"extraField": true
		}
	]
}`

func TestNormalizeCatalog_BuildsVariantsAndDateOnlyWindow(t *testing.T) {
	n := testNormalizer(t)

	res, err := normalizeCatalog(n, "loyalty", json.RawMessage(catalogPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(res.Offers))
	}

	bigMac := res.Offers[0]
	if bigMac.Name != "Big Mac" {
		t.Fatalf("expected trimmed name, got %q", bigMac.Name)
	}
	if bigMac.Normal.Price != 3.5 || bigMac.Normal.Code != "111111111111" {
		t.Fatalf("unexpected normal variant: %+v", bigMac.Normal)
	}
	if bigMac.Big == nil || bigMac.Big.Code != "111111111112" || bigMac.Big.Price != 4.1 {
		t.Fatalf("unexpected big variant: %+v", bigMac.Big)
	}
	if bigMac.Level == nil || *bigMac.Level != domain.LevelGold {
		t.Fatalf("expected gold level, got %v", bigMac.Level)
	}

	wantFrom := time.Date(2026, 10, 1, 0, 0, 0, 0, n.Location)
	wantTo := time.Date(2026, 10, 31, 23, 59, 59, 0, n.Location)
	if !bigMac.DateFrom.Equal(wantFrom) || !bigMac.DateTo.Equal(wantTo) {
		t.Fatalf("unexpected window %s - %s", bigMac.DateFrom, bigMac.DateTo)
	}

	sundae := res.Offers[1]
	if sundae.ID != 12 || sundae.Big != nil || sundae.Level != nil {
		t.Fatalf("unexpected sundae: %+v", sundae)
	}
	if sundae.Source != domain.SourceCatalog {
		t.Fatalf("expected catalog source, got %s", sundae.Source)
	}

	if len(res.Warnings.UnknownKeys) != 1 || res.Warnings.UnknownKeys[0] != "extraField" {
		t.Fatalf("unexpected warnings: %#v", res.Warnings)
	}
}

func TestNormalizeCatalog_PartialBigVariantIsMalformed(t *testing.T) {
	payload := `{"offers":[{
		"id": 1, "type": 1, "name": "X", "imageDetail": "i",
		"qrCode": "1", "checkoutCode": "c", "price": 1,
		"dateFrom": "01/10/2026", "dateTo": "02/10/2026",
		"bigQrCode": "2"
	}]}`

	_, err := normalizeCatalog(testNormalizer(t), "loyalty", json.RawMessage(payload))

	var malformed *MalformedOfferError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedOfferError, got %v", err)
	}
	if malformed.Issues[0].Path != "offers[0].bigQrCode" || malformed.Issues[0].Code != "partial_variant" {
		t.Fatalf("unexpected issues: %#v", malformed.Issues)
	}
}

func TestNormalizeCatalog_MissingFieldIsMalformed(t *testing.T) {
	payload := `{"offers":[{
		"id": 1, "type": 1, "name": "X", "imageDetail": "i",
		"checkoutCode": "c", "price": 1,
		"dateFrom": "01/10/2026", "dateTo": "02/10/2026"
	}]}`

	_, err := normalizeCatalog(testNormalizer(t), "loyalty", json.RawMessage(payload))

	var malformed *MalformedOfferError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedOfferError, got %v", err)
	}
	if malformed.Issues[0].Path != "offers[0].qrCode" {
		t.Fatalf("unexpected issues: %#v", malformed.Issues)
	}
}

func TestNormalizeCatalog_MissingOffersKey(t *testing.T) {
	_, err := normalizeCatalog(testNormalizer(t), "loyalty", json.RawMessage(`{"items":[]}`))

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestNormalizeCatalog_DropsInvertedWindow(t *testing.T) {
	payload := `{"offers":[{
		"id": 5, "type": 1, "name": "X", "imageDetail": "i",
		"qrCode": "1", "checkoutCode": "c", "price": 1,
		"dateFrom": "10/10/2026", "dateTo": "02/10/2026"
	}]}`

	res, err := normalizeCatalog(testNormalizer(t), "loyalty", json.RawMessage(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Offers) != 0 || len(res.Dropped) != 1 || res.Dropped[0].ID != 5 {
		t.Fatalf("expected offer 5 dropped, got %+v", res)
	}
}

func TestNormalizeCalendar_KeepsTimestampPrecision(t *testing.T) {
	payload := `{"offersPromotion":[{"offer":{
		"id": 40, "type": 3, "name": "Daily", "imageDetail": "i",
		"qrCode": "4", "checkoutCode": "c", "price": 0.99,
		"dateFrom": "17/10/2026 10:30:00", "dateTo": "17/10/2026"
	}}]}`

	n := testNormalizer(t)
	res, err := normalizeCalendar(n, "calendar", json.RawMessage(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := res.Offers[0]
	if o.Source != domain.SourceCalendar {
		t.Fatalf("expected calendar source, got %s", o.Source)
	}
	if !o.DateFrom.Equal(time.Date(2026, 10, 17, 10, 30, 0, 0, n.Location)) {
		t.Fatalf("unexpected dateFrom %s", o.DateFrom)
	}
	if !o.DateTo.Equal(time.Date(2026, 10, 17, 23, 59, 59, 0, n.Location)) {
		t.Fatalf("unexpected dateTo %s", o.DateTo)
	}
}

func TestNormalizer_CustomDeadline(t *testing.T) {
	n := NewNormalizer(time.UTC, 22*time.Hour)

	_, to, err := parseDateOnlyWindow(n, "01/10/2026", "01/10/2026")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !to.Equal(time.Date(2026, 10, 1, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected dateTo %s", to)
	}
}
