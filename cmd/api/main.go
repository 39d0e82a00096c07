package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wibucomic/backend/internal/aggregator"
	"github.com/wibucomic/backend/internal/config"
	"github.com/wibucomic/backend/internal/database"
	"github.com/wibucomic/backend/internal/fetch"
	apihttp "github.com/wibucomic/backend/internal/http"
	"github.com/wibucomic/backend/internal/notifications"
	"github.com/wibucomic/backend/internal/recommend"
	"github.com/wibucomic/backend/internal/repository"
	"github.com/wibucomic/backend/internal/scheduler"
	"github.com/wibucomic/backend/internal/sources/defaults"
	"github.com/wibucomic/backend/internal/trends"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedDefaultData {
		if err := database.SeedDefaults(db); err != nil {
			slog.Error("failed to seed defaults", "error", err)
			os.Exit(1)
		}
	}

	fetcher := fetch.NewClient(fetch.Config{
		MaxConcurrent:  cfg.FetchMaxConcurrent,
		RequestTimeout: cfg.FetchTimeout,
		MaxRetries:     cfg.FetchMaxRetries,
		CacheTTL:       cfg.FetchCacheTTL,
	})

	registry, registryErr := defaults.NewRegistry(cfg.YAMLSourcesPath, fetcher)
	if registryErr != nil {
		slog.Warn("source registry loaded with warnings", "error", registryErr)
	}

	comics := repository.NewComicRepository(db)
	bookmarks := repository.NewBookmarkRepository(db)
	settings := repository.NewSettingsRepository(db)

	catalog := aggregator.NewService(registry, logger)
	recommender := recommend.NewService(recommend.NewClient(recommend.Config{
		Endpoint: cfg.RecommendEndpoint,
		Model:    cfg.RecommendModel,
		APIKey:   cfg.RecommendAPIKey,
	}), bookmarks, logger)

	app := apihttp.NewServerWithDeps(cfg, db, apihttp.Deps{
		Registry:   registry,
		Aggregator: catalog,
		Recommend:  recommender,
	})

	var notifier notifications.Notifier = notifications.NewLogNotifier(logger)
	if cfg.WebhookURL != "" {
		webhook, err := notifications.NewWebhookNotifier(cfg.WebhookURL)
		if err != nil {
			slog.Warn("webhook notifier disabled", "error", err)
		} else {
			notifier = notifications.NewMultiNotifier(notifications.NewLogNotifier(logger), webhook)
		}
	}

	pollingMinutes, err := settings.GetInt("polling_minutes", cfg.PollingMinutes)
	if err != nil {
		slog.Warn("failed to read polling interval setting", "error", err)
		pollingMinutes = cfg.PollingMinutes
	}

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	poller := scheduler.NewPoller(
		comics,
		bookmarks,
		catalog,
		notifier,
		scheduler.PollerConfig{
			Interval: time.Duration(pollingMinutes) * time.Minute,
		},
		logger,
	)
	if cfg.PollingEnabled {
		poller.Start(pollerCtx)
	}

	var trendSyncer *trends.Syncer
	if cfg.TrendsEnabled {
		if resolver, ok := registry.Get("mangadex"); ok {
			trendSyncer = trends.NewSyncer(fetcher, resolver, repository.NewTrendRepository(db), trends.SyncerConfig{
				Interval: time.Duration(cfg.TrendsMinutes) * time.Minute,
			}, logger)
			trendSyncer.Start(pollerCtx)
		} else {
			slog.Warn("trends sync disabled, mangadex source not registered")
		}
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	pollerCancel()
	if cfg.PollingEnabled {
		poller.StopWait(2 * time.Second)
	}
	if trendSyncer != nil {
		trendSyncer.StopWait(2 * time.Second)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
