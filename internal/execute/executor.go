package execute

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ETAnderson/offersync/internal/channels"
	"github.com/ETAnderson/offersync/internal/domain"
	"github.com/ETAnderson/offersync/internal/ingest"
	"github.com/ETAnderson/offersync/internal/reconcile"
	"github.com/ETAnderson/offersync/internal/state"
	"github.com/ETAnderson/offersync/internal/tracing"
	"github.com/ETAnderson/offersync/internal/worker"
)

var (
	ErrNoSource     = errors.New("catalog source is nil")
	ErrNoBackend    = errors.New("state backend is nil")
	ErrNoReconciler = errors.New("reconciler is nil")
)

type CatalogSource interface {
	FetchCatalog(ctx context.Context) (ingest.FetchOutput, error)
}

type Reconciler interface {
	Run(ctx context.Context, current []domain.Offer, s *state.Store) (reconcile.Result, error)
}

// Resetter clears per-run caches before a pass.
type Resetter interface {
	Reset()
}

// Report summarizes one sync pass.
type Report struct {
	RunID  string               `json:"run_id"`
	Status domain.RunStatus     `json:"status"`
	Fetch  ingest.FetchSummary  `json:"fetch"`
	Filter ingest.FilterSummary `json:"filter"`
	Result reconcile.Result     `json:"result"`
	Saved  bool                 `json:"saved"`
}

// Executor runs the fetch, filter, reconcile and save phases of a sync.
type Executor struct {
	Source     CatalogSource
	Rules      ingest.FilterRules
	Backend    state.Backend
	Reconciler Reconciler

	// Optional.
	Caches          []Resetter
	Members         channels.MemberCounter
	MemberCountFile string
	Tracer          *tracing.Tracer
	Logger          *zap.Logger
	Now             func() time.Time
}

// Execute implements worker.RunExecutor.
func (e Executor) Execute(ctx context.Context) error {
	_, err := e.Sync(ctx)
	return err
}

// Sync performs one pass. A catalog below the configured minimum ends the pass
// without loading or saving state.
func (e Executor) Sync(ctx context.Context) (Report, error) {
	rep := Report{RunID: worker.RunID(ctx), Status: domain.RunStatusFailed}

	if e.Source == nil {
		return rep, ErrNoSource
	}
	if e.Backend == nil {
		return rep, ErrNoBackend
	}
	if e.Reconciler == nil {
		return rep, ErrNoReconciler
	}

	log := worker.Logger(ctx, e.Logger)
	now := e.now()

	ctx, span := e.Tracer.StartSpan(ctx, "sync.run", attribute.String("run_id", rep.RunID))
	defer span.End()

	for _, c := range e.Caches {
		c.Reset()
	}

	fetched, err := e.fetch(ctx)
	if err != nil {
		tracing.Fail(span, err)
		return rep, err
	}
	rep.Fetch = fetched.Summary
	if len(fetched.Warnings.UnknownKeys) > 0 {
		log.Warn("upstream returned unknown keys", zap.Strings("keys", fetched.Warnings.UnknownKeys))
	}
	for _, d := range fetched.Dropped {
		log.Warn("offer dropped", zap.Int64("offer_id", d.ID), zap.String("reason", d.Reason))
	}

	_, filterSpan := e.Tracer.StartSpan(ctx, "sync.filter")
	filtered := ingest.Filter(fetched.Catalog, now, e.Rules)
	filterSpan.End()
	rep.Filter = filtered.Summary

	if filtered.BelowMinimum {
		rep.Status = domain.RunStatusBelowMinimum
		log.Warn("catalog below minimum, skipping run",
			zap.Int("kept", filtered.Summary.Kept),
			zap.Int("min_offer_count", e.Rules.MinOfferCount),
		)
		return rep, nil
	}

	store, err := state.Load(ctx, e.Backend)
	if err != nil {
		err = fmt.Errorf("load state: %w", err)
		tracing.Fail(span, err)
		return rep, err
	}

	rctx, recSpan := e.Tracer.StartSpan(ctx, "sync.reconcile", attribute.Int("offers", len(filtered.Offers)))
	res, err := e.Reconciler.Run(rctx, filtered.Offers, store)
	rep.Result = res
	if err != nil {
		tracing.Fail(recSpan, err)
		recSpan.End()
		tracing.Fail(span, err)
		return rep, err
	}
	recSpan.End()

	sctx, saveSpan := e.Tracer.StartSpan(ctx, "sync.save")
	saved, err := store.Save(sctx, e.Backend)
	saveSpan.End()
	if err != nil {
		err = fmt.Errorf("save state: %w", err)
		tracing.Fail(span, err)
		return rep, err
	}
	rep.Saved = saved
	rep.Status = domain.RunStatusCompleted

	e.recordMembers(ctx, log, now)

	log.Info("sync completed",
		zap.Int("received", rep.Fetch.Received),
		zap.Int("kept", rep.Filter.Kept),
		zap.Int("published", res.Counts.Published),
		zap.Int("updated", res.Counts.Updated),
		zap.Int("retired", res.Counts.Retired),
		zap.Int("failed", res.Counts.Failed),
		zap.Int("lost", res.Counts.Lost),
		zap.Int("deferred", res.Counts.Deferred),
		zap.Bool("saved", saved),
	)

	return rep, nil
}

func (e Executor) fetch(ctx context.Context) (ingest.FetchOutput, error) {
	ctx, span := e.Tracer.StartSpan(ctx, "sync.fetch")
	defer span.End()

	out, err := e.Source.FetchCatalog(ctx)
	if err != nil {
		err = fmt.Errorf("fetch catalog: %w", err)
		tracing.Fail(span, err)
		return ingest.FetchOutput{}, err
	}
	if out.Catalog == nil {
		out.Catalog = domain.NewCatalog()
	}
	span.SetAttributes(attribute.Int("offers", out.Catalog.Len()))
	return out, nil
}

// recordMembers appends "timestamp,count" (RFC 3339, UTC) to the statistics file. Failures are logged only.
func (e Executor) recordMembers(ctx context.Context, log *zap.Logger, now time.Time) {
	if e.Members == nil || e.MemberCountFile == "" {
		return
	}

	n, err := e.Members.MemberCount(ctx)
	if err != nil {
		log.Warn("member count failed", zap.Error(err))
		return
	}

	if err := appendMemberCount(e.MemberCountFile, now, n); err != nil {
		log.Warn("member count not recorded", zap.String("path", e.MemberCountFile), zap.Error(err))
	}
}

func appendMemberCount(path string, at time.Time, count int) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{at.UTC().Format(time.RFC3339), strconv.Itoa(count)}); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (e Executor) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
