package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ETAnderson/offersync/internal/channels"
	"github.com/ETAnderson/offersync/internal/channels/dryrun"
	"github.com/ETAnderson/offersync/internal/channels/telegram"
	"github.com/ETAnderson/offersync/internal/config"
	"github.com/ETAnderson/offersync/internal/domain"
	"github.com/ETAnderson/offersync/internal/execute"
	"github.com/ETAnderson/offersync/internal/export"
	"github.com/ETAnderson/offersync/internal/ingest"
	"github.com/ETAnderson/offersync/internal/logging"
	"github.com/ETAnderson/offersync/internal/reconcile"
	"github.com/ETAnderson/offersync/internal/render"
	"github.com/ETAnderson/offersync/internal/signing"
	"github.com/ETAnderson/offersync/internal/state"
	"github.com/ETAnderson/offersync/internal/tracing"
	"github.com/ETAnderson/offersync/internal/worker"
)

var version = "dev"

func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch offers and reconcile the channel once, or repeatedly with --every",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context())
		},
	}

	cmd.Flags().Duration("every", 0, "Repeat the sync at this interval (0 runs once)")
	if err := viper.BindPFlag("sync.every", cmd.Flags().Lookup("every")); err != nil {
		panic(err)
	}

	return cmd
}

func runSync(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.Init(signalCtx, tracing.Config{
		Enabled:     appConfig.Tracing.Enabled,
		Endpoint:    appConfig.Tracing.Endpoint,
		Environment: appConfig.Tracing.Environment,
		Version:     version,
	})
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	storeRes, err := openBackend(signalCtx, appConfig.Database)
	if err != nil {
		logger.Error("state backend init failed", zap.Error(err))
		return err
	}
	defer storeRes.Close() //nolint:errcheck

	exec, err := buildExecutor(appConfig, storeRes.Backend, tracer, logger)
	if err != nil {
		logger.Error("sync setup failed", zap.Error(err))
		return err
	}

	logger.Info("offersync starting",
		zap.String("channel", appConfig.Publish.Channel),
		zap.String("backend", appConfig.Database.Backend),
		zap.Duration("every", appConfig.Every),
	)

	runner := worker.Runner{
		Executor: exec,
		Every:    appConfig.Every,
		Logger:   logger,
	}

	err = runner.Run(signalCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sync failed", zap.Error(err))
		return err
	}
	return nil
}

func buildExecutor(appConfig config.AppConfig, backend state.Backend, tracer *tracing.Tracer, logger *zap.Logger) (execute.Executor, error) {
	upstreamHTTP, err := ingest.NewHTTPClient(ingest.ClientConfig{
		ProxyURL:     appConfig.Upstream.Proxy,
		CertPath:     appConfig.Upstream.Cert,
		CertPassword: appConfig.Upstream.CertPassword,
		Timeout:      appConfig.Upstream.Timeout,
		UserAgent:    appConfig.Upstream.UserAgent,
	})
	if err != nil {
		return execute.Executor{}, err
	}

	sources := []ingest.Source{{
		Kind:     domain.SourceCatalog,
		Endpoint: ingest.Endpoint{URL: appConfig.Upstream.LoyaltyOffersURL},
	}}
	if appConfig.Upstream.CalendarOffersURL != "" {
		sources = append(sources, ingest.Source{
			Kind:            domain.SourceCalendar,
			Endpoint:        ingest.Endpoint{URL: appConfig.Upstream.CalendarOffersURL},
			TolerateNoOffer: true,
		})
	}

	processor := ingest.NewProcessor(
		ingest.NewClient(upstreamHTTP, appConfig.Upstream.UserAgent),
		ingest.Normalizer{Location: appConfig.Location, Deadline: appConfig.Deadline},
		sources...,
	)
	processor.NoDailyOfferMessage = appConfig.Upstream.NoDailyOfferMessage

	strs, err := render.LoadStrings(appConfig.StringsPath)
	if err != nil {
		return execute.Executor{}, err
	}

	var caches []execute.Resetter
	opts := render.Options{
		ExchangeURL:      appConfig.Publish.ExchangeURL,
		ButtonlessLevels: appConfig.Publish.ButtonlessLevels,
	}
	if appConfig.ImagesFolder != "" {
		composer := render.NewImageComposer(upstreamHTTP, appConfig.ImagesFolder, appConfig.ImagesURL)
		opts.Images = composer
		caches = append(caches, composer)
	}

	renderer, err := render.NewRenderer(strs, opts)
	if err != nil {
		return execute.Executor{}, err
	}

	registry := channels.NewRegistry(
		telegram.New(nil, appConfig.Bot.APIURL, appConfig.Bot.Token, appConfig.Bot.Channel),
		dryrun.New(logger),
	)
	publisher, ok := registry.Get(appConfig.Publish.Channel)
	if !ok {
		return execute.Executor{}, fmt.Errorf("unknown publish channel %q", appConfig.Publish.Channel)
	}

	writer := export.Writer{Path: appConfig.ExportPath}
	if appConfig.SigningKeyPath != "" {
		key, err := signing.LoadRSAPrivateKeyFile(appConfig.SigningKeyPath)
		if err != nil {
			return execute.Executor{}, err
		}
		writer.SigningKey = key
	}

	rules := ingest.FilterRules{
		Exclude:       appConfig.Filter.Exclude,
		MinOfferCount: appConfig.Filter.MinOfferCount,
	}
	for _, s := range appConfig.Filter.DateGatedSources {
		rules.DateGatedSources = append(rules.DateGatedSources, domain.SourceKind(s))
	}

	exec := execute.Executor{
		Source:  processor,
		Rules:   rules,
		Backend: backend,
		Reconciler: reconcile.Engine{
			Publisher: publisher,
			Renderer:  renderer,
			Exporter:  writer,
			Policy: reconcile.Policy{
				MaxKeys:        appConfig.Publish.MaxKeys,
				RequiredLevels: appConfig.Publish.RequiredLevels,
			},
			Logger: logger.With(zap.String("component", "reconcile")),
		},
		Caches:          caches,
		MemberCountFile: appConfig.MemberCountFile,
		Tracer:          tracer,
		Logger:          logger.With(zap.String("component", "sync")),
	}
	if counter, ok := publisher.(channels.MemberCounter); ok {
		exec.Members = counter
	}

	return exec, nil
}
