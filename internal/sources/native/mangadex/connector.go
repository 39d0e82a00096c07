package mangadex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/sources"
)

const uploadsBaseURL = "https://uploads.mangadex.org"

// Connector is the API-backed source. All calls are unauthenticated GETs
// against the official JSON API with its data/relationships envelope.
type Connector struct {
	source  sources.Source
	fetcher *fetch.Client
}

func NewConnector(fetcher *fetch.Client) *Connector {
	return NewConnectorWithBaseURL("https://api.mangadex.org", fetcher)
}

func NewConnectorWithBaseURL(apiBaseURL string, fetcher *fetch.Client) *Connector {
	return &Connector{
		source: sources.Source{
			Key:      "mangadex",
			Name:     "MangaDex",
			BaseURL:  strings.TrimRight(apiBaseURL, "/"),
			HasAPI:   true,
			Language: "en",
		},
		fetcher: fetcher,
	}
}

func (c *Connector) Source() sources.Source {
	return c.source
}

func (c *Connector) Search(ctx context.Context, query string, limit int) ([]sources.Manga, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit = clampLimit(limit, 20)

	values := url.Values{}
	values.Set("title", trimmed)
	values.Set("limit", fmt.Sprintf("%d", limit))
	values.Add("contentRating[]", "safe")
	values.Add("contentRating[]", "suggestive")
	values.Add("includes[]", "cover_art")
	values.Add("includes[]", "author")

	var payload mangaListResponse
	if err := c.fetcher.GetJSON(ctx, c.source.BaseURL+"/manga?"+values.Encode(), fetch.Options{}, &payload); err != nil {
		return nil, fmt.Errorf("mangadex search: %w", err)
	}

	results := make([]sources.Manga, 0, len(payload.Data))
	for _, item := range payload.Data {
		results = append(results, c.normalizeManga(item))
	}
	return results, nil
}

func (c *Connector) GetManga(ctx context.Context, id string) (*sources.Manga, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, fmt.Errorf("manga id is required")
	}

	values := url.Values{}
	values.Add("includes[]", "cover_art")
	values.Add("includes[]", "author")

	var payload mangaDetailResponse
	err := c.fetcher.GetJSON(ctx, c.source.BaseURL+"/manga/"+url.PathEscape(trimmed)+"?"+values.Encode(), fetch.Options{}, &payload)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == 404 {
			return nil, fmt.Errorf("mangadex manga %s: %w", trimmed, sources.ErrNotFound)
		}
		return nil, fmt.Errorf("mangadex get manga: %w", err)
	}

	manga := c.normalizeManga(payload.Data)
	return &manga, nil
}

func (c *Connector) GetChapters(ctx context.Context, mangaID string) ([]sources.Chapter, error) {
	trimmed := strings.TrimSpace(mangaID)
	if trimmed == "" {
		return nil, fmt.Errorf("manga id is required")
	}

	values := url.Values{}
	values.Set("limit", "500")
	values.Add("translatedLanguage[]", "en")
	values.Set("order[chapter]", "asc")

	var payload chapterFeedResponse
	err := c.fetcher.GetJSON(ctx, c.source.BaseURL+"/manga/"+url.PathEscape(trimmed)+"/feed?"+values.Encode(), fetch.Options{}, &payload)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == 404 {
			return nil, fmt.Errorf("mangadex feed %s: %w", trimmed, sources.ErrNotFound)
		}
		return nil, fmt.Errorf("mangadex get chapters: %w", err)
	}

	chapters := make([]sources.Chapter, 0, len(payload.Data))
	for _, item := range payload.Data {
		number := strings.TrimSpace(item.Attributes.Chapter)
		if number == "" {
			number = "0"
		}

		chapter := sources.Chapter{
			ID:        item.ID,
			MangaID:   trimmed,
			SourceKey: c.source.Key,
			Number:    number,
		}
		if title := strings.TrimSpace(item.Attributes.Title); title != "" {
			chapter.Title = &title
		}
		if item.Attributes.PublishAt != nil {
			chapter.PublishedAt = item.Attributes.PublishAt.UTC()
		}
		if language := strings.TrimSpace(item.Attributes.TranslatedLanguage); language != "" {
			chapter.Language = &language
		}
		chapter.Scanlator = scanlatorFromRelationships(item.Relationships)

		chapters = append(chapters, chapter)
	}

	return chapters, nil
}

func (c *Connector) GetPages(ctx context.Context, chapterID string) ([]sources.Page, error) {
	trimmed := strings.TrimSpace(chapterID)
	if trimmed == "" {
		return nil, fmt.Errorf("chapter id is required")
	}

	var payload atHomeResponse
	err := c.fetcher.GetJSON(ctx, c.source.BaseURL+"/at-home/server/"+url.PathEscape(trimmed), fetch.Options{}, &payload)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == 404 {
			return nil, fmt.Errorf("mangadex chapter %s: %w", trimmed, sources.ErrNotFound)
		}
		return nil, fmt.Errorf("mangadex get pages: %w", err)
	}

	pages := make([]sources.Page, 0, len(payload.Chapter.Data))
	for index, fileName := range payload.Chapter.Data {
		pages = append(pages, sources.Page{
			PageNumber: index + 1,
			ImageURL:   payload.BaseURL + "/data/" + payload.Chapter.Hash + "/" + fileName,
		})
	}
	return pages, nil
}

func (c *Connector) GetPopular(ctx context.Context, limit int) ([]sources.Manga, error) {
	limit = clampLimit(limit, 20)

	values := url.Values{}
	values.Set("limit", fmt.Sprintf("%d", limit))
	values.Set("order[followedCount]", "desc")
	values.Add("contentRating[]", "safe")
	values.Add("contentRating[]", "suggestive")
	values.Add("includes[]", "cover_art")
	values.Add("includes[]", "author")

	var payload mangaListResponse
	if err := c.fetcher.GetJSON(ctx, c.source.BaseURL+"/manga?"+values.Encode(), fetch.Options{}, &payload); err != nil {
		return nil, fmt.Errorf("mangadex popular: %w", err)
	}

	results := make([]sources.Manga, 0, len(payload.Data))
	for _, item := range payload.Data {
		results = append(results, c.normalizeManga(item))
	}
	return results, nil
}

func (c *Connector) normalizeManga(item mangaPayload) sources.Manga {
	manga := sources.Manga{
		ID:        item.ID,
		SourceKey: c.source.Key,
		Title:     pickBestTitle(item.Attributes.Title),
		Status:    normalizeStatus(item.Attributes.Status),
	}
	if manga.Title == "" {
		manga.Title = "Untitled"
	}

	if description := pickBestTitle(item.Attributes.Description); description != "" {
		manga.Description = &description
	}

	for _, relationship := range item.Relationships {
		switch relationship.Type {
		case "cover_art":
			if fileName := strings.TrimSpace(relationship.Attributes.FileName); fileName != "" && manga.CoverImage == nil {
				coverURL := uploadsBaseURL + "/covers/" + item.ID + "/" + fileName + ".512.jpg"
				manga.CoverImage = &coverURL
			}
		case "author":
			if name := strings.TrimSpace(relationship.Attributes.Name); name != "" && manga.Author == nil {
				manga.Author = &name
			}
		}
	}

	genres := make([]string, 0, len(item.Attributes.Tags))
	for _, tag := range item.Attributes.Tags {
		if name := strings.TrimSpace(tag.Attributes.Name["en"]); name != "" {
			genres = append(genres, name)
		}
	}
	manga.Genres = sources.CapGenres(genres)

	if item.Attributes.UpdatedAt != nil {
		updatedAt := item.Attributes.UpdatedAt.UTC()
		manga.UpdatedAt = &updatedAt
	}

	return manga
}

func scanlatorFromRelationships(relationships []relationshipPayload) string {
	for _, relationship := range relationships {
		if relationship.Type == "scanlation_group" {
			if name := strings.TrimSpace(relationship.Attributes.Name); name != "" {
				return name
			}
		}
	}
	return ""
}

func normalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed":
		return sources.StatusCompleted
	case "ongoing":
		return sources.StatusOngoing
	default:
		return sources.StatusUnknown
	}
}

func pickBestTitle(titleMap map[string]string) string {
	if titleMap == nil {
		return ""
	}
	for _, key := range []string{"en", "ja-ro", "ja", "pt-br", "es"} {
		if value := strings.TrimSpace(titleMap[key]); value != "" {
			return value
		}
	}
	for _, value := range titleMap {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func clampLimit(limit int, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 50 {
		return 50
	}
	return limit
}

type mangaPayload struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string `json:"title"`
		Description map[string]string `json:"description"`
		Status      string            `json:"status"`
		Tags        []struct {
			Attributes struct {
				Name map[string]string `json:"name"`
			} `json:"attributes"`
		} `json:"tags"`
		UpdatedAt *time.Time `json:"updatedAt"`
	} `json:"attributes"`
	Relationships []relationshipPayload `json:"relationships"`
}

type relationshipPayload struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		FileName string `json:"fileName"`
		Name     string `json:"name"`
	} `json:"attributes"`
}

type mangaListResponse struct {
	Data []mangaPayload `json:"data"`
}

type mangaDetailResponse struct {
	Data mangaPayload `json:"data"`
}

type chapterFeedResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Chapter            string     `json:"chapter"`
			Title              string     `json:"title"`
			PublishAt          *time.Time `json:"publishAt"`
			TranslatedLanguage string     `json:"translatedLanguage"`
		} `json:"attributes"`
		Relationships []relationshipPayload `json:"relationships"`
	} `json:"data"`
}

type atHomeResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash string   `json:"hash"`
		Data []string `json:"data"`
	} `json:"chapter"`
}
