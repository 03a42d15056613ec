package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"prodtrans/internal/adapter/repo"
	"prodtrans/internal/catalog"
	"prodtrans/internal/domain"
	"prodtrans/internal/fields"
	"prodtrans/internal/infra"
	"prodtrans/internal/infra/credentials"
	"prodtrans/internal/providers/intento"
	"prodtrans/internal/translate"
)

type sweepWorker struct {
	ctx      context.Context
	feed     *catalog.Client
	svc      *translate.Service
	cache    domain.CacheRepository
	logger   infra.Logger
	interval time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.CatalogBaseURL == "" {
		logger.Fatal().Msg("worker: CATALOG_BASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	cache := repo.NewTranslationRepository(runner)
	if err := cache.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to ensure translation schema")
	}

	apiKey := strings.TrimSpace(cfg.IntentoAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		if err := credStore.EnsureSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("worker: failed to ensure credentials schema")
		}
		keyFromStore, err := credStore.IntentoAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load intento api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("worker: no Intento API key configured, translations will fail")
	}

	gateway, err := intento.NewClient(intento.Options{
		APIKey:        apiKey,
		BaseURL:       cfg.IntentoBaseURL,
		OperationsURL: cfg.IntentoOperationsURL,
		RoutingURL:    cfg.IntentoRoutingURL,
		Provider:      cfg.TranslationProvider,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure translation gateway")
	}

	policy := fields.Default()
	if cfg.FieldsConfigPath != "" {
		policy, err = fields.Load(cfg.FieldsConfigPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to load field rules")
		}
	}

	jobs := translate.NewRunner(gateway, translate.RunnerConfig{
		Quiescence:   cfg.PollQuiescence,
		BaseDelay:    cfg.PollDelay,
		MaxAttempts:  cfg.PollMaxAttempts,
		TokenCeiling: cfg.SyncTokenCeiling,
	}, &logger)

	svc := translate.NewService(cache, jobs, policy, translate.ServiceConfig{
		TargetLocale:    cfg.TargetLocale,
		Sync:            cfg.TranslationSync,
		Provider:        cfg.TranslationProvider,
		Routing:         cfg.TranslationRouting,
		UnitConcurrency: cfg.UnitConcurrency,
		RecordTimeout:   cfg.RecordTimeout,
	}, &logger)

	feed, err := catalog.NewClient(catalog.Options{
		BaseURL:      cfg.CatalogBaseURL,
		ClientID:     cfg.CatalogClientID,
		ClientSecret: cfg.CatalogClientSecret,
		Tenant:       cfg.CatalogTenant,
		PageSize:     cfg.CatalogPageSize,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure catalog feed")
	}

	worker := &sweepWorker{
		ctx:      ctx,
		feed:     feed,
		svc:      svc,
		cache:    cache,
		logger:   logger,
		interval: cfg.WorkerPollInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *sweepWorker) Run() error {
	w.logger.Info().Dur("interval", w.interval).Msg("worker: started")
	for {
		w.sweep()
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// watermark returns the newest source-modified time committed to the cache.
// Records modified after it are due for translation.
func (w *sweepWorker) watermark() time.Time {
	stats, err := w.cache.Stats(w.ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("worker: failed to read cache stats")
		return time.Time{}
	}
	if stats.LatestModified == nil {
		return time.Time{}
	}
	return *stats.LatestModified
}

func (w *sweepWorker) sweep() {
	started := time.Now()
	since := w.watermark()

	records, err := w.feed.FetchModifiedSince(w.ctx, since)
	if err != nil {
		w.logger.Error().Err(err).Time("since", since).Msg("worker: catalog fetch failed")
		return
	}

	var translated, cached, failed int
	for _, record := range records {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		res, err := w.svc.TranslateRecord(w.ctx, translate.RecordRequest{Record: record})
		if err != nil {
			failed++
			id, _ := record.Identity()
			w.logger.Error().Err(err).
				Str("tenant", id.Tenant).
				Str("catalog_number", id.CatalogNumber).
				Msg("worker: record translation failed")
			continue
		}
		if res.CacheHit {
			cached++
		} else {
			translated++
		}
	}

	w.logger.Info().
		Int("records", len(records)).
		Int("translated", translated).
		Int("cached", cached).
		Int("failed", failed).
		Dur("elapsed", time.Since(started)).
		Msg("worker: sweep finished")
}
