package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ETAnderson/offersync/internal/domain"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04:05"
)

type UnknownKeyWarning struct {
	UnknownKeys []string `json:"unknown_keys"`
}

// DroppedOffer is an offer skipped during normalization without failing the run.
type DroppedOffer struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

type ParseResult struct {
	Offers   []domain.Offer
	Warnings UnknownKeyWarning
	Dropped  []DroppedOffer
}

// Normalizer turns upstream date strings into validity windows.
type Normalizer struct {
	Location *time.Location
	// Deadline is the offset from midnight used as the end of a date-only window.
	Deadline time.Duration
}

// DefaultDeadline ends a date-only window one second before the next day.
const DefaultDeadline = 24*time.Hour - time.Second

func NewNormalizer(loc *time.Location, deadline time.Duration) Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if deadline <= 0 || deadline >= 24*time.Hour {
		deadline = DefaultDeadline
	}
	return Normalizer{Location: loc, Deadline: deadline}
}

type rawOffer map[string]json.RawMessage

// windowParser parses the raw dateFrom/dateTo pair into a window.
type windowParser func(n Normalizer, from string, to string) (time.Time, time.Time, error)

func parseOfferList(n Normalizer, kind domain.SourceKind, items []rawOffer, paths []string, window windowParser) (ParseResult, error) {
	unknown := make(map[string]struct{})
	var issues []ValidationIssue

	out := ParseResult{Offers: make([]domain.Offer, 0, len(items))}

	for i, item := range items {
		o, itemUnknown, res := parseSingleOffer(n, kind, item, window)
		for k := range itemUnknown {
			unknown[k] = struct{}{}
		}

		if !res.IsValid() {
			issues = append(issues, prefixIssues(paths[i], res.Issues)...)
			continue
		}

		if o.DateFrom.After(o.DateTo) {
			out.Dropped = append(out.Dropped, DroppedOffer{ID: o.ID, Reason: "inverted_window"})
			continue
		}

		out.Offers = append(out.Offers, o)
	}

	if len(issues) > 0 {
		return ParseResult{}, &MalformedOfferError{Source: kind, Issues: issues}
	}

	out.Warnings = UnknownKeyWarning{UnknownKeys: setToSortedSlice(unknown)}
	return out, nil
}

func parseSingleOffer(n Normalizer, kind domain.SourceKind, item rawOffer, window windowParser) (domain.Offer, map[string]struct{}, ValidationResult) {
	var res ValidationResult

	known := knownOfferKeys()
	unknown := make(map[string]struct{})
	for key := range item {
		if _, ok := known[key]; !ok {
			unknown[strings.TrimSpace(key)] = struct{}{}
		}
	}

	o := domain.Offer{Source: kind}

	o.ID = requireInt(&res, item, "id")
	o.Type = domain.OfferType(requireInt(&res, item, "type"))
	if _, ok := item["level"]; ok && !isJSONNull(item["level"]) {
		lvl := int(requireInt(&res, item, "level"))
		o.Level = &lvl
	}

	o.Name = strings.TrimSpace(requireString(&res, item, "name"))
	o.Image = requireString(&res, item, "imageDetail")

	o.Normal = domain.Variant{
		Code:         requireString(&res, item, "qrCode"),
		CheckoutCode: requireString(&res, item, "checkoutCode"),
		Price:        requireFloat(&res, item, "price"),
	}

	big, err := parseBigVariant(&res, item)
	if err == nil {
		o.Big = big
	}

	from := requireString(&res, item, "dateFrom")
	to := requireString(&res, item, "dateTo")
	if from != "" && to != "" {
		df, dt, err := window(n, from, to)
		if err != nil {
			addIssue(&res, "dateFrom", "invalid_date", err.Error())
		} else {
			o.DateFrom, o.DateTo = df, dt
		}
	}

	if res.IsValid() {
		res.Issues = append(res.Issues, ValidateOffer(o).Issues...)
	}

	return o, unknown, res
}

var bigKeys = []string{"bigQrCode", "bigCheckoutCode", "bigPrice"}

// parseBigVariant returns nil when no big field is present. A partial block is an issue.
func parseBigVariant(res *ValidationResult, item rawOffer) (*domain.Variant, error) {
	present := 0
	for _, k := range bigKeys {
		if v, ok := item[k]; ok && !isJSONNull(v) {
			present++
		}
	}

	if present == 0 {
		return nil, nil
	}
	if present != len(bigKeys) {
		addIssue(res, "bigQrCode", "partial_variant", "bigQrCode, bigCheckoutCode and bigPrice must be present together")
		return nil, fmt.Errorf("partial big variant")
	}

	return &domain.Variant{
		Code:         requireString(res, item, "bigQrCode"),
		CheckoutCode: requireString(res, item, "bigCheckoutCode"),
		Price:        requireFloat(res, item, "bigPrice"),
	}, nil
}

func parseDateOnlyWindow(n Normalizer, from string, to string) (time.Time, time.Time, error) {
	df, err := time.ParseInLocation(dateLayout, strings.TrimSpace(from), n.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("dateFrom: %w", err)
	}
	dt, err := time.ParseInLocation(dateLayout, strings.TrimSpace(to), n.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("dateTo: %w", err)
	}
	return df, dt.Add(n.Deadline), nil
}

// parseTimestampWindow keeps second precision and falls back to date-only bounds per side.
func parseTimestampWindow(n Normalizer, from string, to string) (time.Time, time.Time, error) {
	df, err := parseTimestampOrDate(n, from, 0)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("dateFrom: %w", err)
	}
	dt, err := parseTimestampOrDate(n, to, n.Deadline)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("dateTo: %w", err)
	}
	return df, dt, nil
}

func parseTimestampOrDate(n Normalizer, v string, dateOffset time.Duration) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation(dateTimeLayout, v, n.Location); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, n.Location)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(dateOffset), nil
}

func knownOfferKeys() map[string]struct{} {
	return map[string]struct{}{
		"id":              {},
		"type":            {},
		"level":           {},
		"name":            {},
		"imageDetail":     {},
		"qrCode":          {},
		"checkoutCode":    {},
		"price":           {},
		"dateFrom":        {},
		"dateTo":          {},
		"bigQrCode":       {},
		"bigCheckoutCode": {},
		"bigPrice":        {},
	}
}

func requireString(res *ValidationResult, obj rawOffer, key string) string {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		addIssue(res, key, "required", "field is required")
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		addIssue(res, key, "invalid_type", "field must be a string")
		return ""
	}
	return s
}

// requireInt accepts JSON numbers and numeric strings.
func requireInt(res *ValidationResult, obj rawOffer, key string) int64 {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		addIssue(res, key, "required", "field is required")
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(unquoteNumber(raw), &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v
		}
	}
	addIssue(res, key, "invalid_type", "field must be an integer")
	return 0
}

// requireFloat accepts JSON numbers and numeric strings.
func requireFloat(res *ValidationResult, obj rawOffer, key string) float64 {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		addIssue(res, key, "required", "field is required")
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			addIssue(res, key, "invalid_type", "field must be a number")
			return 0
		}
		return v
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		addIssue(res, key, "invalid_type", "field must be a number")
		return 0
	}
	return v
}

func unquoteNumber(raw json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return json.RawMessage(strings.TrimSpace(s))
	}
	return raw
}

func setToSortedSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
