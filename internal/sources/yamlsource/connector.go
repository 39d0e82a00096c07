package yamlsource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/sources"
)

// Connector serves the catalog contract from a config-described JSON API.
type Connector struct {
	config  Config
	fetcher *fetch.Client
}

func NewConnector(cfg Config, fetcher *fetch.Client) (*Connector, error) {
	if err := cfg.normalizeAndValidate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	return &Connector{config: cfg, fetcher: fetcher}, nil
}

func (c *Connector) Source() sources.Source {
	return sources.Source{
		Key:      c.config.Key,
		Name:     c.config.Name,
		BaseURL:  c.config.BaseURL,
		HasAPI:   true,
		Language: c.config.Language,
	}
}

func (c *Connector) Search(ctx context.Context, query string, limit int) ([]sources.Manga, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		limit = 10
	}

	values := url.Values{}
	values.Set(c.config.Search.QueryParam, trimmed)
	values.Set(c.config.Search.LimitParam, strconv.Itoa(limit))
	endpoint := c.config.BaseURL + ensurePathPrefix(c.config.Search.Path) + "?" + values.Encode()

	return c.fetchMangaList(ctx, endpoint, c.config.Response.SearchItemsPath, limit)
}

// GetManga resolves a single entry when the config declares a detail path;
// without one the endpoint is assumed to only serve listings.
func (c *Connector) GetManga(ctx context.Context, id string) (*sources.Manga, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, fmt.Errorf("id is required")
	}
	if strings.TrimSpace(c.config.Manga.Path) == "" {
		return nil, fmt.Errorf("source %s: %w", c.config.Key, sources.ErrNotFound)
	}

	endpoint := c.config.BaseURL + expandPath(c.config.Manga.Path, trimmed)

	var payload map[string]any
	if err := c.fetcher.GetJSON(ctx, endpoint, fetch.Options{}, &payload); err != nil {
		return nil, c.wrapFetchErr("get manga", err)
	}

	itemMap, ok := getByPath(payload, c.config.Response.MangaItemPath).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("source %s: manga payload item is invalid", c.config.Key)
	}

	manga, err := c.mapManga(itemMap)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", c.config.Key, err)
	}
	return &manga, nil
}

func (c *Connector) GetChapters(ctx context.Context, mangaID string) ([]sources.Chapter, error) {
	trimmed := strings.TrimSpace(mangaID)
	if trimmed == "" {
		return nil, fmt.Errorf("manga id is required")
	}

	endpoint := c.config.BaseURL + expandPath(c.config.Chapters.Path, trimmed)

	var payload map[string]any
	if err := c.fetcher.GetJSON(ctx, endpoint, fetch.Options{}, &payload); err != nil {
		return nil, c.wrapFetchErr("get chapters", err)
	}

	itemList, ok := getByPath(payload, c.config.Response.ChapterItemsPath).([]any)
	if !ok {
		return nil, fmt.Errorf("source %s: chapter payload items are invalid", c.config.Key)
	}

	chapters := make([]sources.Chapter, 0, len(itemList))
	for _, rawItem := range itemList {
		itemMap, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		chapter, err := c.mapChapter(itemMap, trimmed)
		if err != nil {
			continue
		}
		chapters = append(chapters, chapter)
	}
	// Upstream ordering is whatever the API serves, often newest-first.
	sort.SliceStable(chapters, func(i, j int) bool {
		return sources.ParseNumber(chapters[i].Number) < sources.ParseNumber(chapters[j].Number)
	})
	return chapters, nil
}

func (c *Connector) GetPages(ctx context.Context, chapterID string) ([]sources.Page, error) {
	trimmed := strings.TrimSpace(chapterID)
	if trimmed == "" {
		return nil, fmt.Errorf("chapter id is required")
	}

	endpoint := c.config.BaseURL + expandPath(c.config.Pages.Path, trimmed)

	var payload map[string]any
	if err := c.fetcher.GetJSON(ctx, endpoint, fetch.Options{}, &payload); err != nil {
		return nil, c.wrapFetchErr("get pages", err)
	}

	itemList, ok := getByPath(payload, c.config.Response.PageItemsPath).([]any)
	if !ok {
		return nil, fmt.Errorf("source %s: page payload items are invalid", c.config.Key)
	}

	pages := make([]sources.Page, 0, len(itemList))
	for _, rawItem := range itemList {
		var imageURL string
		switch value := rawItem.(type) {
		case string:
			imageURL = strings.TrimSpace(value)
		case map[string]any:
			imageURL, _ = toString(value[c.config.Response.ImageURLField])
			imageURL = strings.TrimSpace(imageURL)
		}
		if imageURL == "" {
			continue
		}
		pages = append(pages, sources.Page{
			PageNumber: len(pages) + 1,
			ImageURL:   imageURL,
		})
	}
	return pages, nil
}

func (c *Connector) GetPopular(ctx context.Context, limit int) ([]sources.Manga, error) {
	if limit <= 0 {
		limit = 10
	}
	if strings.TrimSpace(c.config.Popular.Path) == "" {
		return []sources.Manga{}, nil
	}

	values := url.Values{}
	values.Set(c.config.Popular.LimitParam, strconv.Itoa(limit))
	endpoint := c.config.BaseURL + ensurePathPrefix(c.config.Popular.Path) + "?" + values.Encode()

	return c.fetchMangaList(ctx, endpoint, c.config.Response.PopularItemsPath, limit)
}

func (c *Connector) fetchMangaList(ctx context.Context, endpoint string, itemsPath string, limit int) ([]sources.Manga, error) {
	var payload map[string]any
	if err := c.fetcher.GetJSON(ctx, endpoint, fetch.Options{}, &payload); err != nil {
		return nil, c.wrapFetchErr("list", err)
	}

	itemList, ok := getByPath(payload, itemsPath).([]any)
	if !ok {
		return nil, fmt.Errorf("source %s: payload items are invalid", c.config.Key)
	}

	results := make([]sources.Manga, 0, len(itemList))
	for _, rawItem := range itemList {
		itemMap, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		manga, err := c.mapManga(itemMap)
		if err != nil {
			continue
		}
		results = append(results, manga)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (c *Connector) mapManga(item map[string]any) (sources.Manga, error) {
	id, ok := toString(item[c.config.Response.IDField])
	if !ok || strings.TrimSpace(id) == "" {
		return sources.Manga{}, fmt.Errorf("missing id field")
	}
	title, ok := toString(item[c.config.Response.TitleField])
	if !ok || strings.TrimSpace(title) == "" {
		return sources.Manga{}, fmt.Errorf("missing title field")
	}

	manga := sources.Manga{
		ID:        strings.TrimSpace(id),
		SourceKey: c.config.Key,
		Title:     strings.TrimSpace(title),
		Status:    sources.StatusUnknown,
	}

	if description, ok := toString(item[c.config.Response.DescriptionField]); ok && strings.TrimSpace(description) != "" {
		trimmed := strings.TrimSpace(description)
		manga.Description = &trimmed
	}
	if cover, ok := toString(item[c.config.Response.CoverField]); ok && strings.TrimSpace(cover) != "" {
		trimmed := strings.TrimSpace(cover)
		manga.CoverImage = &trimmed
	}
	if author, ok := toString(item[c.config.Response.AuthorField]); ok && strings.TrimSpace(author) != "" {
		trimmed := strings.TrimSpace(author)
		manga.Author = &trimmed
	}
	if status, ok := toString(item[c.config.Response.StatusField]); ok {
		manga.Status = normalizeStatus(status)
	}
	if rawGenres, ok := item[c.config.Response.GenresField].([]any); ok {
		genres := make([]string, 0, len(rawGenres))
		for _, rawGenre := range rawGenres {
			if genre, ok := toString(rawGenre); ok && strings.TrimSpace(genre) != "" {
				genres = append(genres, strings.TrimSpace(genre))
			}
		}
		manga.Genres = sources.CapGenres(genres)
	}

	return manga, nil
}

func (c *Connector) mapChapter(item map[string]any, mangaID string) (sources.Chapter, error) {
	id, ok := toString(item[c.config.Response.IDField])
	if !ok || strings.TrimSpace(id) == "" {
		return sources.Chapter{}, fmt.Errorf("missing id field")
	}

	chapter := sources.Chapter{
		ID:        strings.TrimSpace(id),
		MangaID:   mangaID,
		SourceKey: c.config.Key,
		Number:    "0",
	}

	if number, ok := toString(item[c.config.Response.NumberField]); ok && strings.TrimSpace(number) != "" {
		chapter.Number = strings.TrimSpace(number)
	}
	if title, ok := toString(item[c.config.Response.ChapterTitleField]); ok && strings.TrimSpace(title) != "" {
		trimmed := strings.TrimSpace(title)
		chapter.Title = &trimmed
	}
	if publishedAt, ok := toTime(item[c.config.Response.PublishedAtField]); ok {
		chapter.PublishedAt = publishedAt
	} else {
		chapter.PublishedAt = time.Now().UTC()
	}
	if c.config.Language != "" {
		language := c.config.Language
		chapter.Language = &language
	}

	return chapter, nil
}

func (c *Connector) wrapFetchErr(op string, err error) error {
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == 404 {
		return fmt.Errorf("source %s %s: %w", c.config.Key, op, sources.ErrNotFound)
	}
	return fmt.Errorf("source %s %s: %w", c.config.Key, op, err)
}

func normalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case sources.StatusOngoing, "releasing", "publishing":
		return sources.StatusOngoing
	case sources.StatusCompleted, "finished":
		return sources.StatusCompleted
	default:
		return sources.StatusUnknown
	}
}

func ensurePathPrefix(rawPath string) string {
	rawPath = strings.TrimSpace(rawPath)
	if rawPath == "" {
		return ""
	}
	if strings.HasPrefix(rawPath, "/") {
		return rawPath
	}
	return "/" + rawPath
}

func expandPath(template string, id string) string {
	return ensurePathPrefix(strings.ReplaceAll(template, "{id}", url.PathEscape(id)))
}

func getByPath(input map[string]any, dottedPath string) any {
	dottedPath = strings.TrimSpace(dottedPath)
	if dottedPath == "" {
		return input
	}

	current := any(input)
	for _, segment := range strings.Split(dottedPath, ".") {
		asMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = asMap[segment]
	}
	return current
}

func toString(input any) (string, bool) {
	switch value := input.(type) {
	case string:
		return value, true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case int:
		return strconv.Itoa(value), true
	default:
		return "", false
	}
}

func toTime(input any) (time.Time, bool) {
	switch value := input.(type) {
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			parsed, err := time.Parse(layout, trimmed)
			if err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	case float64:
		return fromUnixTimestamp(int64(value))
	case int:
		return fromUnixTimestamp(int64(value))
	case int64:
		return fromUnixTimestamp(value)
	default:
		return time.Time{}, false
	}
}

func fromUnixTimestamp(value int64) (time.Time, bool) {
	if value <= 0 {
		return time.Time{}, false
	}
	if value > 1_000_000_000_000 {
		value = value / 1000
	}
	return time.Unix(value, 0).UTC(), true
}
