package ingest

import (
	"testing"
	"time"

	"github.com/ETAnderson/offersync/internal/domain"
)

func validBaseOffer() domain.Offer {
	return domain.Offer{
		ID:       101,
		Name:     "McMenu",
		Type:     domain.OfferTypeLoyalty,
		Source:   domain.SourceCatalog,
		Image:    "https://example.com/img/101.png",
		DateFrom: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2026, 10, 31, 23, 59, 59, 0, time.UTC),
		Normal: domain.Variant{
			Code:         "123456789012",
			CheckoutCode: "A1",
			Price:        2.5,
		},
	}
}

func TestValidateOffer_RequiredFields(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(o *domain.Offer)
		wantIssueKey string
	}{
		{"missing id", func(o *domain.Offer) { o.ID = 0 }, "id"},
		{"missing name", func(o *domain.Offer) { o.Name = "  " }, "name"},
		{"missing image", func(o *domain.Offer) { o.Image = "" }, "imageDetail"},
		{"missing code", func(o *domain.Offer) { o.Normal.Code = "" }, "qrCode"},
		{"missing big code", func(o *domain.Offer) { o.Big = &domain.Variant{Price: 1} }, "bigQrCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validBaseOffer()
			tt.mutate(&o)

			res := ValidateOffer(o)
			if res.IsValid() {
				t.Fatalf("expected invalid result")
			}

			if !hasIssuePath(res, tt.wantIssueKey) {
				t.Fatalf("expected issue for path %q, got %#v", tt.wantIssueKey, res.Issues)
			}
		})
	}
}

func TestValidateOffer_NegativePrice(t *testing.T) {
	o := validBaseOffer()
	o.Normal.Price = -1

	res := ValidateOffer(o)
	if !hasIssueCode(res, "negative_price") {
		t.Fatalf("expected negative_price, got %#v", res.Issues)
	}
}

func TestValidateOffer_Valid(t *testing.T) {
	if res := ValidateOffer(validBaseOffer()); !res.IsValid() {
		t.Fatalf("expected valid offer, got %#v", res.Issues)
	}
}

func hasIssuePath(res ValidationResult, path string) bool {
	for _, it := range res.Issues {
		if it.Path == path {
			return true
		}
	}
	return false
}

func hasIssueCode(res ValidationResult, code string) bool {
	for _, it := range res.Issues {
		if it.Code == code {
			return true
		}
	}
	return false
}
