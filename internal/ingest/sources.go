package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/ETAnderson/offersync/internal/domain"
)

// Source is one upstream listing.
type Source struct {
	Kind     domain.SourceKind
	Endpoint Endpoint
	// TolerateNoOffer turns the "no daily offer" API error into an empty result.
	TolerateNoOffer bool
}

type normalizeFunc func(n Normalizer, endpoint string, payload json.RawMessage) (ParseResult, error)

var normalizers = map[domain.SourceKind]normalizeFunc{
	domain.SourceCatalog:  normalizeCatalog,
	domain.SourceCalendar: normalizeCalendar,
}

// normalizeCatalog reads response.offers[] with date-only windows.
func normalizeCatalog(n Normalizer, endpoint string, payload json.RawMessage) (ParseResult, error) {
	var items []rawOffer
	if err := decodeField(endpoint, payload, "offers", &items); err != nil {
		return ParseResult{}, err
	}

	paths := make([]string, len(items))
	for i := range items {
		paths[i] = fmt.Sprintf("offers[%d]", i)
	}

	return parseOfferList(n, domain.SourceCatalog, items, paths, parseDateOnlyWindow)
}

type promotion struct {
	Offer rawOffer `json:"offer"`
}

// normalizeCalendar reads response.offersPromotion[].offer with timestamped windows.
func normalizeCalendar(n Normalizer, endpoint string, payload json.RawMessage) (ParseResult, error) {
	var promos []promotion
	if err := decodeField(endpoint, payload, "offersPromotion", &promos); err != nil {
		return ParseResult{}, err
	}

	items := make([]rawOffer, 0, len(promos))
	paths := make([]string, 0, len(promos))
	for i, p := range promos {
		if p.Offer == nil {
			return ParseResult{}, &MalformedResponseError{
				Endpoint: endpoint,
				Reason:   fmt.Sprintf("offersPromotion[%d] has no offer", i),
			}
		}
		items = append(items, p.Offer)
		paths = append(paths, fmt.Sprintf("offersPromotion[%d].offer", i))
	}

	return parseOfferList(n, domain.SourceCalendar, items, paths, parseTimestampWindow)
}

func decodeField(endpoint string, payload json.RawMessage, key string, dst any) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return &MalformedResponseError{Endpoint: endpoint, Reason: "response is not an object"}
	}

	raw, ok := obj[key]
	if !ok {
		return &MalformedResponseError{Endpoint: endpoint, Reason: "missing " + key}
	}
	if isJSONNull(raw) {
		return nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return &MalformedResponseError{Endpoint: endpoint, Reason: fmt.Sprintf("%s: %v", key, err)}
	}
	return nil
}
