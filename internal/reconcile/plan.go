package reconcile

import (
	"github.com/ETAnderson/offersync/internal/domain"
	"github.com/ETAnderson/offersync/internal/state"
)

// Plan partitions a run's work. ToPublish and ToUpdate keep catalog order; ToRetire is ascending.
type Plan struct {
	ToPublish []domain.Offer
	ToUpdate  []domain.Offer
	ToRetire  []int64
}

// NewPlan compares the current offers against the published state.
// Offers whose stored message is gone are published again.
func NewPlan(current []domain.Offer, s *state.Store) Plan {
	p := Plan{
		ToPublish: make([]domain.Offer, 0, len(current)),
		ToUpdate:  make([]domain.Offer, 0, len(current)),
	}

	seen := make(map[int64]struct{}, len(current))
	for _, o := range current {
		seen[o.ID] = struct{}{}

		m, ok := s.Get(o.ID)
		if ok && m.MessageID != nil {
			p.ToUpdate = append(p.ToUpdate, o)
			continue
		}
		p.ToPublish = append(p.ToPublish, o)
	}

	for _, id := range s.IDs() {
		if _, ok := seen[id]; !ok {
			p.ToRetire = append(p.ToRetire, id)
		}
	}

	return p
}

func (p Plan) updating() map[int64]struct{} {
	out := make(map[int64]struct{}, len(p.ToUpdate))
	for _, o := range p.ToUpdate {
		out[o.ID] = struct{}{}
	}
	return out
}
