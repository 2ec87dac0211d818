package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ETAnderson/offersync/internal/domain"
)

// DefaultNoDailyOfferMessage is how upstream reports that no calendar offer runs today.
const DefaultNoDailyOfferMessage = "KO (message was: Daily offer not found)"

type Fetcher interface {
	Fetch(ctx context.Context, ep Endpoint) (json.RawMessage, error)
}

type SourceSummary struct {
	Kind     domain.SourceKind `json:"kind"`
	Received int               `json:"received"`
	Dropped  int               `json:"dropped"`
	NoOffer  bool              `json:"no_offer,omitempty"`
}

type FetchSummary struct {
	Sources  []SourceSummary `json:"sources"`
	Received int             `json:"received"`
	Dropped  int             `json:"dropped"`
	Merged   int             `json:"merged"`
}

type FetchOutput struct {
	Catalog  *domain.Catalog
	Summary  FetchSummary
	Warnings UnknownKeyWarning
	Dropped  []DroppedOffer
}

type Processor struct {
	Fetcher    Fetcher
	Normalizer Normalizer
	Sources    []Source

	NoDailyOfferMessage string
}

func NewProcessor(f Fetcher, n Normalizer, sources ...Source) Processor {
	return Processor{
		Fetcher:             f,
		Normalizer:          n,
		Sources:             sources,
		NoDailyOfferMessage: DefaultNoDailyOfferMessage,
	}
}

// FetchCatalog fetches every source in order and merges them by id, later sources winning.
// Any error aborts the whole fetch; no partial catalog is returned.
func (p Processor) FetchCatalog(ctx context.Context) (FetchOutput, error) {
	if p.Fetcher == nil {
		return FetchOutput{}, errors.New("fetcher is nil")
	}

	out := FetchOutput{
		Catalog: domain.NewCatalog(),
		Summary: FetchSummary{
			Sources: make([]SourceSummary, 0, len(p.Sources)),
		},
	}
	unknown := make(map[string]struct{})

	for _, src := range p.Sources {
		sum := SourceSummary{Kind: src.Kind}

		normalize, ok := normalizers[src.Kind]
		if !ok {
			return FetchOutput{}, fmt.Errorf("unknown source kind %q", src.Kind)
		}

		payload, err := p.Fetcher.Fetch(ctx, src.Endpoint)
		if err != nil {
			if src.TolerateNoOffer && p.isNoDailyOffer(err) {
				sum.NoOffer = true
				out.Summary.Sources = append(out.Summary.Sources, sum)
				continue
			}
			return FetchOutput{}, fmt.Errorf("fetch %s offers: %w", src.Kind, err)
		}

		res, err := normalize(p.Normalizer, src.Endpoint.URL, payload)
		if err != nil {
			return FetchOutput{}, fmt.Errorf("normalize %s offers: %w", src.Kind, err)
		}

		for _, o := range res.Offers {
			out.Catalog.Put(o)
		}
		for _, k := range res.Warnings.UnknownKeys {
			unknown[string(src.Kind)+"."+k] = struct{}{}
		}
		out.Dropped = append(out.Dropped, res.Dropped...)

		sum.Received = len(res.Offers)
		sum.Dropped = len(res.Dropped)
		out.Summary.Sources = append(out.Summary.Sources, sum)
		out.Summary.Received += sum.Received
		out.Summary.Dropped += sum.Dropped
	}

	out.Summary.Merged = out.Catalog.Len()
	out.Warnings = UnknownKeyWarning{UnknownKeys: setToSortedSlice(unknown)}

	return out, nil
}

func (p Processor) isNoDailyOffer(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := p.NoDailyOfferMessage
	if msg == "" {
		msg = DefaultNoDailyOfferMessage
	}
	return apiErr.Msg == msg
}
