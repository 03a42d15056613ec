package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"prodtrans/internal/adapter/repo"
	"prodtrans/internal/fields"
	"prodtrans/internal/http/handlers"
	httpapi "prodtrans/internal/http/httpapi"
	"prodtrans/internal/infra"
	"prodtrans/internal/infra/credentials"
	"prodtrans/internal/infra/geoip"
	"prodtrans/internal/middleware"
	"prodtrans/internal/providers/intento"
	"prodtrans/internal/translate"
)

func main() {
	// Load .env when present.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	cache := repo.NewTranslationRepository(runner)
	if err := cache.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure translation schema")
	}

	creds := credentials.NewStore(runner)
	if err := creds.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure credentials schema")
	}

	// Environment wins; the credential store is the fallback.
	apiKey := cfg.IntentoAPIKey
	if apiKey == "" {
		stored, err := creds.IntentoAPIKey(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read provider token")
		}
		apiKey = stored
	}
	if apiKey == "" {
		logger.Warn().Msg("no Intento API key configured; translation requests will fail")
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
		logger.Fatal().Err(err).Msg("failed to build translation gateway")
	}

	policy := fields.Default()
	if cfg.FieldsConfigPath != "" {
		policy, err = fields.Load(cfg.FieldsConfigPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load field rules")
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

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	}
	defer resolver.Close()
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	app := handlers.NewApp(svc, cache, gateway, &logger)

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		DefaultLocale:   cfg.TargetLocale,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
