package handlers_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wibucomic/backend/internal/aggregator"
	"github.com/wibucomic/backend/internal/config"
	"github.com/wibucomic/backend/internal/database"
	apihttp "github.com/wibucomic/backend/internal/http"
	"github.com/wibucomic/backend/internal/recommend"
	"github.com/wibucomic/backend/internal/repository"
	"github.com/wibucomic/backend/internal/sources"
)

// fakeConnector serves a fixed catalog so handler tests never touch the
// network.
type fakeConnector struct {
	source   sources.Source
	catalog  []sources.Manga
	chapters map[string][]sources.Chapter
	pages    map[string][]sources.Page
}

func (f *fakeConnector) Source() sources.Source { return f.source }

func (f *fakeConnector) Search(_ context.Context, query string, limit int) ([]sources.Manga, error) {
	_ = query
	if limit > 0 && limit < len(f.catalog) {
		return f.catalog[:limit], nil
	}
	return f.catalog, nil
}

func (f *fakeConnector) GetManga(_ context.Context, id string) (*sources.Manga, error) {
	for _, manga := range f.catalog {
		if manga.ID == id {
			found := manga
			return &found, nil
		}
	}
	return nil, sources.ErrNotFound
}

func (f *fakeConnector) GetChapters(_ context.Context, mangaID string) ([]sources.Chapter, error) {
	chapters, ok := f.chapters[mangaID]
	if !ok {
		return nil, sources.ErrNotFound
	}
	return chapters, nil
}

func (f *fakeConnector) GetPages(_ context.Context, chapterID string) ([]sources.Page, error) {
	pages, ok := f.pages[chapterID]
	if !ok {
		return nil, sources.ErrNotFound
	}
	return pages, nil
}

func (f *fakeConnector) GetPopular(_ context.Context, limit int) ([]sources.Manga, error) {
	return f.Search(context.Background(), "", limit)
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		source: sources.Source{Key: "fake", Name: "Fake Source", BaseURL: "https://fake.example", HasAPI: true, Language: "en"},
		catalog: []sources.Manga{
			{ID: "/manga/1", SourceKey: "fake", Title: "The Knight", Status: sources.StatusOngoing, Genres: []string{"Action"}},
			{ID: "/manga/2", SourceKey: "fake", Title: "Slow Days", Status: sources.StatusCompleted},
		},
		chapters: map[string][]sources.Chapter{
			"/manga/1": {
				{ID: "/chapters/1-10", MangaID: "/manga/1", SourceKey: "fake", Number: "10", PublishedAt: time.Now().UTC()},
				{ID: "/chapters/1-11", MangaID: "/manga/1", SourceKey: "fake", Number: "11", PublishedAt: time.Now().UTC()},
			},
		},
		pages: map[string][]sources.Page{
			"/chapters/1-10": {
				{PageNumber: 1, ImageURL: "https://cdn.fake.example/1.png"},
				{PageNumber: 2, ImageURL: "https://cdn.fake.example/2.png"},
			},
		},
	}
}

func setupTestApp(t *testing.T) (*sql.DB, *fiber.App, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.ApplyMigrations(db, "../../../migrations"); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	if err := database.SeedDefaults(db); err != nil {
		_ = db.Close()
		t.Fatalf("seed defaults: %v", err)
	}

	registry := sources.NewRegistry()
	if err := registry.Register(newFakeConnector()); err != nil {
		_ = db.Close()
		t.Fatalf("register fake connector: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recommendService := recommend.NewService(
		recommend.NewClient(recommend.Config{}),
		repository.NewBookmarkRepository(db),
		logger,
	)

	cfg := config.Config{AppName: "test-app"}
	app := apihttp.NewServerWithDeps(cfg, db, apihttp.Deps{
		Registry:   registry,
		Aggregator: aggregator.NewService(registry, logger),
		Recommend:  recommendService,
	})

	cleanup := func() {
		_ = app.Shutdown()
		_ = db.Close()
	}

	return db, app, cleanup
}
