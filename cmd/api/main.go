package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarvides/restyle-backend/api/routes"
	"github.com/omarvides/restyle-backend/internal/billing"
	"github.com/omarvides/restyle-backend/internal/entitlements"
	"github.com/omarvides/restyle-backend/internal/generations"
	"github.com/omarvides/restyle-backend/internal/profiles"
	"github.com/omarvides/restyle-backend/internal/showcase"
	lemonsqueezywebhook "github.com/omarvides/restyle-backend/internal/webhooks/lemonsqueezy"
	"github.com/omarvides/restyle-backend/pkg/config"
	"github.com/omarvides/restyle-backend/pkg/db"
	"github.com/omarvides/restyle-backend/pkg/lemonsqueezy"
	"github.com/omarvides/restyle-backend/pkg/logger"
	"github.com/omarvides/restyle-backend/pkg/metrics"
	"github.com/omarvides/restyle-backend/pkg/migrate"
	"github.com/omarvides/restyle-backend/pkg/redis"
	"github.com/omarvides/restyle-backend/pkg/replicate"
	"github.com/omarvides/restyle-backend/pkg/storage/supabase"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	storageClient, err := supabase.NewClient(ctx, cfg.Storage, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	modelClient, err := replicate.NewClient(ctx, cfg.Model, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap model client", err)
		os.Exit(1)
	}

	lsClient, err := lemonsqueezy.NewClient(ctx, cfg.LemonSqueezy, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap billing client", err)
		os.Exit(1)
	}

	generationMetrics := metrics.NewGenerationMetrics(prometheus.DefaultRegisterer)

	profileRepo := profiles.NewRepository(dbClient.DB())
	generationRepo := generations.NewRepository(dbClient.DB())
	showcaseRepo := showcase.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())

	entitlementService, err := entitlements.NewService(entitlements.ServiceParams{
		Profiles:   profileRepo,
		Counter:    generationRepo,
		Logger:     logg,
		DailyLimit: cfg.Generation.DailyFreeLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create entitlement service", err)
		os.Exit(1)
	}

	generationService, err := generations.NewService(generations.ServiceParams{
		Repo:          generationRepo,
		Profiles:      profileRepo,
		Entitlements:  entitlementService,
		Model:         modelClient,
		Store:         storageClient,
		Metrics:       generationMetrics,
		Logger:        logg,
		MaxVariations: cfg.Generation.MaxVariations,
	})
	if err != nil {
		logg.Error(ctx, "failed to create generation service", err)
		os.Exit(1)
	}

	profileService, err := profiles.NewService(profileRepo)
	if err != nil {
		logg.Error(ctx, "failed to create profile service", err)
		os.Exit(1)
	}

	showcaseService, err := showcase.NewService(showcaseRepo)
	if err != nil {
		logg.Error(ctx, "failed to create showcase service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(lsClient)
	if err != nil {
		logg.Error(ctx, "failed to create billing service", err)
		os.Exit(1)
	}

	webhookService, err := lemonsqueezywebhook.NewService(lemonsqueezywebhook.ServiceParams{
		ProfileRepo:       profileRepo,
		BillingRepo:       billingRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
		SubscriberCredits: cfg.Generation.SubscriberCredits,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := lemonsqueezywebhook.NewIdempotencyGuard(redisClient, cfg.Generation.WebhookEventTTL, "lemonsqueezy-webhook")
	if err != nil {
		logg.Error(ctx, "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		Redis:              redisClient,
		Storage:            storageClient,
		Metrics:            promhttp.Handler(),
		ShowcaseService:    showcaseService,
		ProfileService:     profileService,
		GenerationService:  generationService,
		BillingService:     billingService,
		LemonSqueezyClient: lsClient,
		WebhookService:     webhookService,
		WebhookGuard:       webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(runCtx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}
