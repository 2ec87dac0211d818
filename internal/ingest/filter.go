package ingest

import (
	"time"

	"github.com/ETAnderson/offersync/internal/domain"
)

type FilterRules struct {
	// DateGatedSources lists the source kinds whose validity window must cover now.
	// Offers from other sources stay current for as long as upstream lists them.
	DateGatedSources []domain.SourceKind
	// Exclude drops offers whose name contains any of these, case-insensitively.
	Exclude       []string
	MinOfferCount int
}

func DefaultFilterRules() FilterRules {
	return FilterRules{
		DateGatedSources: []domain.SourceKind{domain.SourceCalendar},
		Exclude:          []string{"prueba"},
	}
}

type FilterSummary struct {
	Received int `json:"received"`
	Expired  int `json:"expired"`
	Excluded int `json:"excluded"`
	Kept     int `json:"kept"`
}

type FilterOutput struct {
	Offers  []domain.Offer
	Summary FilterSummary
	// BelowMinimum means the run must stop without touching any state.
	BelowMinimum bool
}

func Filter(c *domain.Catalog, now time.Time, rules FilterRules) FilterOutput {
	gated := make(map[domain.SourceKind]struct{}, len(rules.DateGatedSources))
	for _, k := range rules.DateGatedSources {
		gated[k] = struct{}{}
	}

	offers := c.Offers()
	out := FilterOutput{
		Offers:  make([]domain.Offer, 0, len(offers)),
		Summary: FilterSummary{Received: len(offers)},
	}

	for _, o := range offers {
		if _, ok := gated[o.Source]; ok && !o.ActiveAt(now) {
			out.Summary.Expired++
			continue
		}
		if o.NameMatchesAny(rules.Exclude) {
			out.Summary.Excluded++
			continue
		}
		out.Offers = append(out.Offers, o)
	}

	out.Summary.Kept = len(out.Offers)
	out.BelowMinimum = out.Summary.Kept < rules.MinOfferCount

	return out
}
