package mangadex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/sources"
)

func jsonResponse(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newTestConnector(t *testing.T, mux *http.ServeMux) (*Connector, func()) {
	t.Helper()
	server := httptest.NewServer(mux)
	conn := NewConnectorWithBaseURL(server.URL, fetch.NewClient(fetch.Config{}))
	return conn, server.Close
}

func TestSearchNormalizesMangaPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("title") != "solo leveling" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		jsonResponse(w, `{
			"data": [{
				"id": "abcd-1234",
				"attributes": {
					"title": {"en": "Solo Leveling"},
					"description": {"en": "Hunters and gates."},
					"status": "completed",
					"tags": [
						{"attributes": {"name": {"en": "Action"}}},
						{"attributes": {"name": {"en": "Fantasy"}}},
						{"attributes": {"name": {"en": "Adventure"}}},
						{"attributes": {"name": {"en": "Drama"}}},
						{"attributes": {"name": {"en": "Webtoon"}}},
						{"attributes": {"name": {"en": "Overflow"}}}
					],
					"updatedAt": "2024-03-01T10:00:00Z"
				},
				"relationships": [
					{"id": "c1", "type": "cover_art", "attributes": {"fileName": "cover.jpg"}},
					{"id": "a1", "type": "author", "attributes": {"name": "Chugong"}}
				]
			}]
		}`)
	})

	conn, closeServer := newTestConnector(t, mux)
	defer closeServer()

	results, err := conn.Search(context.Background(), "solo leveling", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	manga := results[0]
	if manga.ID != "abcd-1234" || manga.SourceKey != "mangadex" {
		t.Fatalf("unexpected identity: %s/%s", manga.SourceKey, manga.ID)
	}
	if manga.Title != "Solo Leveling" {
		t.Fatalf("unexpected title %q", manga.Title)
	}
	if manga.Status != sources.StatusCompleted {
		t.Fatalf("unexpected status %q", manga.Status)
	}
	if manga.Author == nil || *manga.Author != "Chugong" {
		t.Fatalf("unexpected author %v", manga.Author)
	}
	if manga.CoverImage == nil || *manga.CoverImage != "https://uploads.mangadex.org/covers/abcd-1234/cover.jpg.512.jpg" {
		t.Fatalf("unexpected cover %v", manga.CoverImage)
	}
	if len(manga.Genres) != 5 {
		t.Fatalf("expected genres capped at 5, got %d", len(manga.Genres))
	}
	if manga.UpdatedAt == nil {
		t.Fatal("expected updatedAt to be set")
	}
}

func TestGetMangaNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"error"}`))
	})

	conn, closeServer := newTestConnector(t, mux)
	defer closeServer()

	_, err := conn.GetManga(context.Background(), "missing")
	if !errors.Is(err, sources.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetChaptersKeepsFeedOrderAndDefaults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga/abcd-1234/feed", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, `{
			"data": [
				{"id": "ch1", "attributes": {"chapter": "1", "title": "Awakening", "publishAt": "2023-01-01T00:00:00Z", "translatedLanguage": "en"},
				 "relationships": [{"id": "g1", "type": "scanlation_group", "attributes": {"name": "Asura"}}]},
				{"id": "ch2", "attributes": {"chapter": "", "title": "", "publishAt": "2023-02-01T00:00:00Z", "translatedLanguage": "en"},
				 "relationships": []}
			]
		}`)
	})

	conn, closeServer := newTestConnector(t, mux)
	defer closeServer()

	chapters, err := conn.GetChapters(context.Background(), "abcd-1234")
	if err != nil {
		t.Fatalf("get chapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Number != "1" || chapters[0].Scanlator != "Asura" {
		t.Fatalf("unexpected first chapter: %+v", chapters[0])
	}
	if chapters[1].Number != "0" {
		t.Fatalf("expected missing chapter number to default to 0, got %q", chapters[1].Number)
	}
	if chapters[1].Title != nil {
		t.Fatalf("expected empty title to stay nil, got %v", chapters[1].Title)
	}
	if sources.ParseNumber(chapters[0].Number) > sources.ParseNumber(chapters[1].Number) &&
		sources.ParseNumber(chapters[1].Number) != 0 {
		t.Fatal("expected non-decreasing chapter numbers")
	}
}

func TestGetPagesBuildsContiguousSequence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/at-home/server/ch1", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, `{
			"baseUrl": "https://node.mangadex.network",
			"chapter": {"hash": "h123", "data": ["p1.jpg", "p2.jpg", "p3.jpg"]}
		}`)
	})

	conn, closeServer := newTestConnector(t, mux)
	defer closeServer()

	pages, err := conn.GetPages(context.Background(), "ch1")
	if err != nil {
		t.Fatalf("get pages: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for index, page := range pages {
		if page.PageNumber != index+1 {
			t.Fatalf("expected dense 1-based numbering, got %d at index %d", page.PageNumber, index)
		}
	}
	if pages[0].ImageURL != "https://node.mangadex.network/data/h123/p1.jpg" {
		t.Fatalf("unexpected image url %q", pages[0].ImageURL)
	}
}
