package http

import (
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wibucomic/backend/internal/aggregator"
	"github.com/wibucomic/backend/internal/config"
	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/http/handlers"
	"github.com/wibucomic/backend/internal/recommend"
	"github.com/wibucomic/backend/internal/repository"
	"github.com/wibucomic/backend/internal/sources"
	"github.com/wibucomic/backend/internal/sources/defaults"
)

// Deps carries the wired services the HTTP layer exposes. Fields left nil
// are built from cfg with default wiring.
type Deps struct {
	Registry   *sources.Registry
	Aggregator *aggregator.Service
	Recommend  *recommend.Service
}

func NewServer(cfg config.Config, db *sql.DB) *fiber.App {
	return NewServerWithDeps(cfg, db, Deps{})
}

func NewServerWithDeps(cfg config.Config, db *sql.DB, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	comics := repository.NewComicRepository(db)
	userBookmarks := repository.NewBookmarkRepository(db)
	progress := repository.NewProgressRepository(db)
	trending := repository.NewTrendRepository(db)

	if deps.Registry == nil {
		fetcher := fetch.NewClient(fetch.Config{
			MaxConcurrent:  cfg.FetchMaxConcurrent,
			RequestTimeout: cfg.FetchTimeout,
			MaxRetries:     cfg.FetchMaxRetries,
			CacheTTL:       cfg.FetchCacheTTL,
		})
		registry, err := defaults.NewRegistry(cfg.YAMLSourcesPath, fetcher)
		if err != nil {
			slog.Warn("yaml sources loaded with warnings", "error", err)
		}
		deps.Registry = registry
	}
	if deps.Aggregator == nil {
		deps.Aggregator = aggregator.NewService(deps.Registry, slog.Default())
	}
	if deps.Recommend == nil {
		client := recommend.NewClient(recommend.Config{
			Endpoint: cfg.RecommendEndpoint,
			Model:    cfg.RecommendModel,
			APIKey:   cfg.RecommendAPIKey,
		})
		deps.Recommend = recommend.NewService(client, userBookmarks, slog.Default())
	}

	health := handlers.NewHealthHandler(db)
	sourceHandlers := handlers.NewSourcesHandler(deps.Registry)
	catalog := handlers.NewCatalogHandler(deps.Aggregator)
	bookmarks := handlers.NewBookmarksHandler(comics, userBookmarks)
	readingProgress := handlers.NewProgressHandler(comics, progress)
	recommendations := handlers.NewRecommendationsHandler(deps.Recommend)
	trends := handlers.NewTrendingHandler(trending)

	app.Get("/health", health.Check)

	api := app.Group("/api")
	api.Get("/health", health.Check)
	api.Get("/sources", sourceHandlers.List)
	api.Get("/search", catalog.Search)
	api.Get("/popular", catalog.Popular)
	api.Get("/trending", trends.List)
	api.Get("/manga/:source", catalog.GetManga)
	api.Get("/manga/:source/chapters", catalog.GetChapters)
	api.Get("/manga/:source/pages", catalog.GetPages)
	api.Get("/users/:userId/bookmarks", bookmarks.List)
	api.Post("/users/:userId/bookmarks", bookmarks.Create)
	api.Delete("/users/:userId/bookmarks/:comicId", bookmarks.Delete)
	api.Get("/users/:userId/progress", readingProgress.List)
	api.Get("/users/:userId/progress/:comicId", readingProgress.Get)
	api.Put("/users/:userId/progress/:comicId", readingProgress.Save)
	api.Post("/recommendations", recommendations.Create)

	return app
}
