package mangapill

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/sources"
)

const searchFixture = `<!DOCTYPE html>
<html><body>
<nav><a href="/manga/1/front-page-promo">Promo</a></nav>
<div class="grid">
  <a href="/manga/2085/solo-leveling"><img data-src="/covers/2085.jpg">Solo Leveling</a>
  <a href="/manga/3041/solo-leveling-ragnarok"><img src="/covers/3041.jpg">Solo Leveling: Ragnarok</a>
  <a href="/manga/9001/solo-leveling-novel">Solo Leveling (Novel)</a>
  <a href="/manga/550/unrelated-series">Unrelated Series</a>
</div>
</body></html>`

const mangaFixture = `<!DOCTYPE html>
<html><head><meta property="og:image" content="https://cdn.mangapill.com/covers/2085.jpg"></head><body>
<h1>Solo Leveling</h1>
<p class="text-sm">Ten years ago the gates opened.</p>
<a href="/search?status=finished">finished</a>
<a href="/search?genre=Action">Action</a>
<a href="/search?genre=Fantasy">Fantasy</a>
<div id="chapters">
  <a href="/chapters/2085-10179000/solo-leveling-chapter-179">Chapter 179</a>
  <a href="/chapters/2085-10010500/solo-leveling-chapter-10.5">Chapter 10.5</a>
  <a href="/chapters/2085-10010000/solo-leveling-chapter-10">Chapter 10</a>
</div>
</body></html>`

const pagesFixture = `<!DOCTYPE html>
<html><body>
<img data-src="https://cdn.mangapill.com/2085/179/1.jpg">
<img data-src="https://cdn.mangapill.com/2085/179/2.jpg">
</body></html>`

const pagesBackgroundFixture = `<!DOCTYPE html>
<html><body>
<div style="background-image: url('https://cdn.mangapill.com/2085/10/1.jpg')"></div>
<div style="background-image: url('https://cdn.mangapill.com/2085/10/2.jpg')"></div>
</body></html>`

func newTestConnector(t *testing.T, handler http.Handler) *Connector {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewConnectorWithBaseURL(server.URL, fetch.NewClient(fetch.Config{}))
}

func TestSearchFiltersAndRanks(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("q") != "solo leveling" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(searchFixture))
	}))

	results, err := connector.Search(context.Background(), "solo leveling", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	// Both share a perfect containment score; the shorter title wins.
	if results[0].Title != "Solo Leveling" {
		t.Errorf("expected exact title first, got %q", results[0].Title)
	}
	if results[0].ID != "/manga/2085/solo-leveling" {
		t.Errorf("unexpected id %q", results[0].ID)
	}
	if results[0].CoverImage == nil {
		t.Fatal("expected cover image from data-src")
	}
	for _, manga := range results {
		if manga.SourceKey != "mangapill" {
			t.Errorf("unexpected source key %q", manga.SourceKey)
		}
	}
}

func TestGetMangaParsesDetail(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mangaFixture))
	}))

	manga, err := connector.GetManga(context.Background(), "/manga/2085/solo-leveling")
	if err != nil {
		t.Fatalf("GetManga: %v", err)
	}
	if manga.Title != "Solo Leveling" {
		t.Errorf("title = %q", manga.Title)
	}
	if manga.Description == nil || *manga.Description != "Ten years ago the gates opened." {
		t.Errorf("description = %v", manga.Description)
	}
	if manga.CoverImage == nil || *manga.CoverImage != "https://cdn.mangapill.com/covers/2085.jpg" {
		t.Errorf("cover = %v", manga.CoverImage)
	}
	if manga.Status != sources.StatusCompleted {
		t.Errorf("status = %q", manga.Status)
	}
	if len(manga.Genres) != 2 || manga.Genres[0] != "Action" {
		t.Errorf("genres = %v", manga.Genres)
	}
}

func TestGetMangaMissingTitleIsNotFound(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))

	_, err := connector.GetManga(context.Background(), "/manga/404/gone")
	if !errors.Is(err, sources.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetChaptersAscending(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mangaFixture))
	}))

	chapters, err := connector.GetChapters(context.Background(), "/manga/2085/solo-leveling")
	if err != nil {
		t.Fatalf("GetChapters: %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(chapters))
	}
	wantNumbers := []string{"10", "10.5", "179"}
	for i, chapter := range chapters {
		if chapter.Number != wantNumbers[i] {
			t.Errorf("chapter[%d].Number = %q, want %q", i, chapter.Number, wantNumbers[i])
		}
		if chapter.SourceKey != "mangapill" {
			t.Errorf("chapter[%d].SourceKey = %q", i, chapter.SourceKey)
		}
	}
	if chapters[2].ID != "/chapters/2085-10179000/solo-leveling-chapter-179" {
		t.Errorf("unexpected last chapter id %q", chapters[2].ID)
	}
}

func TestGetPagesFromDataSrc(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pagesFixture))
	}))

	pages, err := connector.GetPages(context.Background(), "/chapters/2085-10179000/solo-leveling-chapter-179")
	if err != nil {
		t.Fatalf("GetPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for i, page := range pages {
		if page.PageNumber != i+1 {
			t.Errorf("page[%d].PageNumber = %d", i, page.PageNumber)
		}
	}
	if pages[0].ImageURL != "https://cdn.mangapill.com/2085/179/1.jpg" {
		t.Errorf("unexpected page url %q", pages[0].ImageURL)
	}
}

func TestGetPagesBackgroundImageFallback(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pagesBackgroundFixture))
	}))

	pages, err := connector.GetPages(context.Background(), "/chapters/2085-10010000/solo-leveling-chapter-10")
	if err != nil {
		t.Fatalf("GetPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages from background images, got %d", len(pages))
	}
	if pages[1].ImageURL != "https://cdn.mangapill.com/2085/10/2.jpg" {
		t.Errorf("unexpected page url %q", pages[1].ImageURL)
	}
}

func TestGetPopularReadsHomepageGrid(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchFixture))
	}))

	results, err := connector.GetPopular(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetPopular: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(results))
	}
	if results[0].Title != "Solo Leveling" {
		t.Errorf("unexpected first title %q", results[0].Title)
	}
}

func TestInvalidIDsRejected(t *testing.T) {
	connector := NewConnectorWithBaseURL("https://example.com", fetch.NewClient(fetch.Config{}))

	if _, err := connector.GetManga(context.Background(), "2085"); err == nil {
		t.Error("expected error for bare numeric id")
	}
	if _, err := connector.GetPages(context.Background(), "/manga/2085/solo-leveling"); err == nil {
		t.Error("expected error for manga path passed as chapter id")
	}
}
