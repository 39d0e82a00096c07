package mangaread

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/sources"
)

const searchFixture = `<!DOCTYPE html>
<html><body>
<div class="tab-content-wrap">
  <div class="row c-tabs-item__content">
    <div class="tab-thumb c-image-hover">
      <a href="https://www.mangaread.org/manga/solo-leveling/" title="Solo Leveling">
        <img data-src="https://www.mangaread.org/wp-content/uploads/sl.jpg">
      </a>
    </div>
  </div>
  <div class="row c-tabs-item__content">
    <div class="tab-thumb c-image-hover">
      <a href="https://www.mangaread.org/manga/martial-peak/" title="Martial Peak">
        <img src="https://www.mangaread.org/wp-content/uploads/mp.jpg">
      </a>
    </div>
  </div>
</div>
</body></html>`

const mangaFixture = `<!DOCTYPE html>
<html><body>
<div class="summary_image"><img data-src="https://www.mangaread.org/wp-content/uploads/sl.jpg"></div>
<div class="post-title"><h1>Solo Leveling</h1></div>
<div class="author-content"><a href="/manga-author/chugong/">Chugong</a></div>
<div class="genres-content"><a href="/manga-genre/action/">Action</a><a href="/manga-genre/fantasy/">Fantasy</a></div>
<div class="post-status">
  <div class="post-content_item">
    <div class="summary-heading"><h5>Status</h5></div>
    <div class="summary-content">Completed</div>
  </div>
</div>
<div class="summary__content"><p>The weakest hunter of all mankind.</p></div>
<ul class="main version-chap">
  <li class="wp-manga-chapter">
    <a href="https://www.mangaread.org/manga/solo-leveling/chapter-179/">Chapter 179</a>
    <span class="chapter-release-date">January 2, 2023</span>
  </li>
  <li class="wp-manga-chapter">
    <a href="https://www.mangaread.org/manga/solo-leveling/chapter-1/">Chapter 1</a>
    <span class="chapter-release-date">March 4, 2018</span>
  </li>
</ul>
</body></html>`

const pagesFixture = `<!DOCTYPE html>
<html><body>
<div class="reading-content">
  <img src="
https://www.mangaread.org/wp-content/uploads/ch179/001.jpg
" class="wp-manga-chapter-img">
  <img src=" https://www.mangaread.org/wp-content/uploads/ch179/002.jpg " class="wp-manga-chapter-img">
</div>
</body></html>`

func newTestConnector(t *testing.T, handler http.Handler) *Connector {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewConnectorWithBaseURL(server.URL, fetch.NewClient(fetch.Config{}))
}

func TestSearchExtractsSlugPaths(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("post_type") != "wp-manga" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(searchFixture))
	}))

	results, err := connector.Search(context.Background(), "solo leveling", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result after relevance filter, got %d: %+v", len(results), results)
	}
	if results[0].ID != "mrd:/manga/solo-leveling" {
		t.Errorf("expected path-based id, got %q", results[0].ID)
	}
	if results[0].CoverImage == nil {
		t.Error("expected cover image")
	}
}

func TestSearchRejectsOffSiteLinks(t *testing.T) {
	fixture := `<div class="tab-content-wrap"><div class="tab-thumb c-image-hover">
<a href="https://spam.example.com/manga/solo-leveling/" title="Solo Leveling"></a>
</div></div>`
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixture))
	}))

	results, err := connector.Search(context.Background(), "solo leveling", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected off-site link to be dropped, got %+v", results)
	}
}

func TestGetMangaParsesDetail(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mangaFixture))
	}))

	manga, err := connector.GetManga(context.Background(), "mrd:/manga/solo-leveling")
	if err != nil {
		t.Fatalf("GetManga: %v", err)
	}
	if manga.Title != "Solo Leveling" {
		t.Errorf("title = %q", manga.Title)
	}
	if manga.Author == nil || *manga.Author != "Chugong" {
		t.Errorf("author = %v", manga.Author)
	}
	if manga.Status != sources.StatusCompleted {
		t.Errorf("status = %q", manga.Status)
	}
	if manga.Description == nil || *manga.Description != "The weakest hunter of all mankind." {
		t.Errorf("description = %v", manga.Description)
	}
}

func TestGetMangaMissingTitleIsNotFound(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>404</p></body></html>"))
	}))

	_, err := connector.GetManga(context.Background(), "mrd:/manga/gone")
	if !errors.Is(err, sources.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetChaptersAscendingWithReleaseDates(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mangaFixture))
	}))

	chapters, err := connector.GetChapters(context.Background(), "mrd:/manga/solo-leveling")
	if err != nil {
		t.Fatalf("GetChapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Number != "1" || chapters[1].Number != "179" {
		t.Errorf("unexpected order: %q, %q", chapters[0].Number, chapters[1].Number)
	}
	if chapters[0].ID != "mrd:/manga/solo-leveling/chapter-1" {
		t.Errorf("unexpected chapter id %q", chapters[0].ID)
	}
	want := time.Date(2018, time.March, 4, 0, 0, 0, 0, time.UTC)
	if !chapters[0].PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", chapters[0].PublishedAt, want)
	}
}

func TestGetPagesTrimsImageURLs(t *testing.T) {
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pagesFixture))
	}))

	pages, err := connector.GetPages(context.Background(), "mrd:/manga/solo-leveling/chapter-179")
	if err != nil {
		t.Fatalf("GetPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].ImageURL != "https://www.mangaread.org/wp-content/uploads/ch179/001.jpg" {
		t.Errorf("expected whitespace trimmed from url, got %q", pages[0].ImageURL)
	}
	if pages[1].PageNumber != 2 {
		t.Errorf("pages[1].PageNumber = %d", pages[1].PageNumber)
	}
}

func TestGetPopularReadsArchiveGrid(t *testing.T) {
	fixture := `<div class="page-listing">
<div class="page-item-detail">
  <img data-src="/wp-content/uploads/sl.jpg">
  <div class="post-title"><h3><a href="/manga/solo-leveling/">Solo Leveling</a></h3></div>
</div>
<div class="page-item-detail">
  <div class="post-title"><h3><a href="/manga/martial-peak/">Martial Peak</a></h3></div>
</div>
</div>`
	var requestedQuery string
	connector := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedQuery = r.URL.RawQuery
		w.Write([]byte(fixture))
	}))

	results, err := connector.GetPopular(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetPopular: %v", err)
	}
	if requestedQuery != "m_orderby=views" {
		t.Errorf("query = %q", requestedQuery)
	}
	if len(results) != 1 {
		t.Fatalf("expected limit 1, got %d", len(results))
	}
	if results[0].ID != "mrd:/manga/solo-leveling" {
		t.Errorf("unexpected id %q", results[0].ID)
	}
}

func TestInvalidIDsRejected(t *testing.T) {
	connector := NewConnectorWithBaseURL("https://example.com", fetch.NewClient(fetch.Config{}))
	if _, err := connector.GetManga(context.Background(), "solo-leveling"); err == nil {
		t.Error("expected error for unprefixed id")
	}
	if _, err := connector.GetChapters(context.Background(), "mrd:solo-leveling"); err == nil {
		t.Error("expected error for id missing /manga/ path")
	}
}
