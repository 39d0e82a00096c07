package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wibucomic/backend/internal/models"
	"github.com/wibucomic/backend/internal/repository"
)

func TestTrendingEndpointListsMostMentionedFirst(t *testing.T) {
	db, app, cleanup := setupTestApp(t)
	defer cleanup()

	trends := repository.NewTrendRepository(db)
	for _, trend := range []models.TrendingManga{
		{SourceKey: "mangadex", SourceMangaID: "bk-01", Title: "Berserk", MentionCount: 12, AverageScore: 80, MentionSource: "reddit"},
		{SourceKey: "mangadex", SourceMangaID: "sl-01", Title: "Solo Leveling", MentionCount: 5, AverageScore: 64, MentionSource: "reddit"},
	} {
		if err := trends.UpsertTrend(trend); err != nil {
			t.Fatalf("seed trend: %v", err)
		}
	}

	status, payload := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/trending", nil))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	items := payload["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 trends, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["title"] != "Berserk" || first["mentionCount"].(float64) != 12 {
		t.Fatalf("unexpected first trend: %v", first)
	}

	status, limited := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/trending?limit=1", nil))
	if status != http.StatusOK || limited["total"].(float64) != 1 {
		t.Fatalf("expected limit respected, got %d %v", status, limited)
	}
}
