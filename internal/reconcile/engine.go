package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ETAnderson/offersync/internal/channels"
	"github.com/ETAnderson/offersync/internal/domain"
	"github.com/ETAnderson/offersync/internal/export"
	"github.com/ETAnderson/offersync/internal/state"
)

const DefaultMaxKeys = 3

// Renderer turns an offer into message text and buttons.
type Renderer interface {
	Text(ctx context.Context, o domain.Offer) (string, error)
	Markup(o domain.Offer, authKey string) channels.Markup
	ExpiredText() string
}

type Exporter interface {
	Write(ctx context.Context, p export.Payload) error
}

type Policy struct {
	MaxKeys int
	// RequiredLevels are the loyalty levels whose redemption links need a valid auth key.
	RequiredLevels []int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxKeys:        DefaultMaxKeys,
		RequiredLevels: []int{domain.LevelSilver, domain.LevelGold},
	}
}

type Outcome struct {
	OfferID int64                `json:"offer_id"`
	Action  domain.ActionKind    `json:"action"`
	Status  domain.OutcomeStatus `json:"status"`
	Message string               `json:"message,omitempty"`
}

type Counts struct {
	Published int `json:"published"`
	Updated   int `json:"updated"`
	Retired   int `json:"retired"`
	Failed    int `json:"failed"`
	Lost      int `json:"lost"`
	Deferred  int `json:"deferred"`
}

type Result struct {
	Planned  PlanSummary `json:"planned"`
	Outcomes []Outcome   `json:"outcomes"`
	Counts   Counts      `json:"counts"`
}

type PlanSummary struct {
	Publish int `json:"publish"`
	Update  int `json:"update"`
	Retire  int `json:"retire"`
}

// Engine applies one run's offers to the channel and the published state.
type Engine struct {
	Publisher channels.Publisher
	Renderer  Renderer
	Exporter  Exporter
	NewKey    KeyGenerator
	Policy    Policy
	Logger    *zap.Logger
}

type issuedKey struct {
	key     string
	evicted []string
}

// Run executes bookkeeping, then publish/update, then retirement.
// Channel failures are recorded as outcomes; only key generation and export failures are returned.
func (e Engine) Run(ctx context.Context, current []domain.Offer, s *state.Store) (Result, error) {
	if e.Publisher == nil {
		return Result{}, errors.New("publisher is nil")
	}
	if e.Renderer == nil {
		return Result{}, errors.New("renderer is nil")
	}
	if e.NewKey == nil {
		e.NewKey = RandomKey
	}
	if e.Policy.MaxKeys <= 0 {
		e.Policy.MaxKeys = DefaultMaxKeys
	}
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}

	plan := NewPlan(current, s)
	res := Result{
		Planned: PlanSummary{
			Publish: len(plan.ToPublish),
			Update:  len(plan.ToUpdate),
			Retire:  len(plan.ToRetire),
		},
		Outcomes: make([]Outcome, 0, len(current)+len(plan.ToRetire)),
	}

	issued, payload, err := e.bookkeeping(current, s)
	if err != nil {
		return Result{}, err
	}

	if e.Exporter != nil {
		if err := e.Exporter.Write(ctx, payload); err != nil {
			return Result{}, err
		}
	}

	updating := plan.updating()
	audible := true
	for _, o := range current {
		var out Outcome
		if _, ok := updating[o.ID]; ok {
			out = e.update(ctx, o, s, issued[o.ID])
		} else {
			out = e.publish(ctx, o, s, issued[o.ID], !audible)
			if out.Status == domain.OutcomeOK {
				audible = false
			}
		}
		res.record(out)
	}

	for _, id := range plan.ToRetire {
		res.record(e.retire(ctx, id, s))
	}

	for _, out := range res.Outcomes {
		if out.Status == domain.OutcomeOK {
			continue
		}
		e.Logger.Warn("offer action not applied",
			zap.Int64("offer_id", out.OfferID),
			zap.String("action", string(out.Action)),
			zap.String("status", string(out.Status)),
			zap.String("message", out.Message),
		)
	}

	return res, nil
}

// bookkeeping issues one key per current offer and builds the export payload.
func (e Engine) bookkeeping(current []domain.Offer, s *state.Store) (map[int64]issuedKey, export.Payload, error) {
	issued := make(map[int64]issuedKey, len(current))
	payload := export.NewPayload()

	for _, o := range current {
		s.GetOrCreate(o.ID)

		key, err := e.NewKey()
		if err != nil {
			return nil, export.Payload{}, fmt.Errorf("generate auth key: %w", err)
		}
		evicted := s.IssueKey(o.ID, key, e.Policy.MaxKeys)
		issued[o.ID] = issuedKey{key: key, evicted: evicted}

		m, _ := s.Get(o.ID)
		payload.Add(export.Record{
			ID:           o.ID,
			Type:         o.Type,
			Name:         o.Name,
			Image:        o.Image,
			AuthKeys:     m.AuthKeys,
			RequiresAuth: o.LevelIn(e.Policy.RequiredLevels),
		}, o.Codes()...)
	}

	return issued, payload, nil
}

func (e Engine) publish(ctx context.Context, o domain.Offer, s *state.Store, k issuedKey, silent bool) Outcome {
	out := Outcome{OfferID: o.ID, Action: domain.ActionPublish}

	text, err := e.Renderer.Text(ctx, o)
	if err != nil {
		s.RollbackKey(o.ID, k.key, k.evicted)
		return out.failed(err.Error())
	}

	resp, err := e.Publisher.Create(ctx, text, e.Renderer.Markup(o, k.key), silent)
	if err != nil || !resp.OK {
		s.RollbackKey(o.ID, k.key, k.evicted)
		return out.failed(describe(resp, err))
	}

	s.SetPublished(o.ID, resp.MessageID, text)
	out.Status = domain.OutcomeOK
	return out
}

func (e Engine) update(ctx context.Context, o domain.Offer, s *state.Store, k issuedKey) Outcome {
	out := Outcome{OfferID: o.ID, Action: domain.ActionUpdate}

	m, _ := s.Get(o.ID)
	if m.MessageID == nil {
		s.RollbackKey(o.ID, k.key, k.evicted)
		return out.failed("no message to update")
	}

	text, err := e.Renderer.Text(ctx, o)
	if err != nil {
		s.RollbackKey(o.ID, k.key, k.evicted)
		return out.failed(err.Error())
	}
	markup := e.Renderer.Markup(o, k.key)

	var resp channels.Response
	textChanged := text != m.Text
	if textChanged {
		resp, err = e.Publisher.UpdateText(ctx, *m.MessageID, text, markup)
	} else {
		resp, err = e.Publisher.UpdateMarkup(ctx, *m.MessageID, markup)
	}

	switch {
	case err == nil && (resp.OK || resp.NotModified()):
		if textChanged {
			s.SetText(o.ID, text)
		}
		out.Status = domain.OutcomeOK
		return out

	case err == nil && resp.NotFound():
		s.ClearMessage(o.ID)
		out.Status = domain.OutcomeLost
		out.Message = resp.Description
		return out

	default:
		s.RollbackKey(o.ID, k.key, k.evicted)
		return out.failed(describe(resp, err))
	}
}

func (e Engine) retire(ctx context.Context, id int64, s *state.Store) Outcome {
	out := Outcome{OfferID: id, Action: domain.ActionRetire}

	m, ok := s.Get(id)
	if !ok {
		out.Status = domain.OutcomeOK
		return out
	}
	if m.MessageID == nil {
		s.Delete(id)
		out.Status = domain.OutcomeOK
		out.Message = "never published"
		return out
	}

	resp, err := e.Publisher.Delete(ctx, *m.MessageID)
	if err == nil && (resp.OK || resp.NotFound()) {
		s.Delete(id)
		out.Status = domain.OutcomeOK
		return out
	}

	// Messages past the channel's deletion window can only be edited.
	resp, err = e.Publisher.UpdateText(ctx, *m.MessageID, e.Renderer.ExpiredText(), channels.EmptyMarkup())
	if err == nil && (resp.OK || resp.NotModified() || resp.NotFound()) {
		s.Delete(id)
		out.Status = domain.OutcomeOK
		return out
	}

	out.Status = domain.OutcomeDeferred
	out.Message = describe(resp, err)
	return out
}

func (o Outcome) failed(msg string) Outcome {
	o.Status = domain.OutcomeError
	o.Message = msg
	return o
}

func (r *Result) record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)

	switch o.Status {
	case domain.OutcomeOK:
		switch o.Action {
		case domain.ActionPublish:
			r.Counts.Published++
		case domain.ActionUpdate:
			r.Counts.Updated++
		case domain.ActionRetire:
			r.Counts.Retired++
		}
	case domain.OutcomeLost:
		r.Counts.Lost++
	case domain.OutcomeDeferred:
		r.Counts.Deferred++
	default:
		r.Counts.Failed++
	}
}

func describe(resp channels.Response, err error) string {
	if err != nil {
		return err.Error()
	}
	if resp.Description != "" {
		return resp.Description
	}
	return "request failed"
}
