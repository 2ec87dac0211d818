package domain

import (
	"strings"
	"time"
)

type SourceKind string

const (
	SourceCatalog  SourceKind = "catalog"
	SourceCalendar SourceKind = "calendar"
)

type OfferType int

const (
	OfferTypeLoyalty  OfferType = 1
	OfferTypeFeatured OfferType = 7
)

// Loyalty tiers carried in Offer.Level for loyalty offers.
const (
	LevelBronze = 0
	LevelSilver = 1
	LevelGold   = 2
	LevelBlack  = 3
)

type Variant struct {
	Code         string  `json:"code"`
	CheckoutCode string  `json:"checkout_code"`
	Price        float64 `json:"price"`
}

type Offer struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Type   OfferType  `json:"type"`
	Level  *int       `json:"level,omitempty"`
	Source SourceKind `json:"source"`

	Image string `json:"image"`

	DateFrom time.Time `json:"date_from"`
	DateTo   time.Time `json:"date_to"`

	Normal Variant  `json:"normal"`
	Big    *Variant `json:"big,omitempty"`
}

// LevelIn reports whether the offer is a loyalty offer whose level is one of levels.
func (o Offer) LevelIn(levels []int) bool {
	if o.Type != OfferTypeLoyalty || o.Level == nil {
		return false
	}
	for _, l := range levels {
		if *o.Level == l {
			return true
		}
	}
	return false
}

// IsLevel is LevelIn for a single tier.
func (o Offer) IsLevel(level int) bool {
	return o.LevelIn([]int{level})
}

// ActiveAt reports whether now falls inside [DateFrom, DateTo].
func (o Offer) ActiveAt(now time.Time) bool {
	return !now.Before(o.DateFrom) && !now.After(o.DateTo)
}

// Codes returns every redemption code of the offer, normal first.
func (o Offer) Codes() []string {
	out := []string{o.Normal.Code}
	if o.Big != nil {
		out = append(out, o.Big.Code)
	}
	return out
}

func (o Offer) NameMatchesAny(patterns []string) bool {
	name := strings.ToLower(o.Name)
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}
