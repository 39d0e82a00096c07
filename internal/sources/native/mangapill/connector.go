package mangapill

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/scrape"
	"github.com/wibucomic/backend/internal/searchutil"
	"github.com/wibucomic/backend/internal/sources"
)

// Connector scrapes mangapill.com. Manga and chapter IDs are the site's URL
// paths ("/manga/2085/solo-leveling", "/chapters/2085-10050000/...").
type Connector struct {
	source  sources.Source
	fetcher *fetch.Client
}

func NewConnector(fetcher *fetch.Client) *Connector {
	return NewConnectorWithBaseURL("https://mangapill.com", fetcher)
}

func NewConnectorWithBaseURL(baseURL string, fetcher *fetch.Client) *Connector {
	return &Connector{
		source: sources.Source{
			Key:      "mangapill",
			Name:     "MangaPill",
			BaseURL:  strings.TrimRight(baseURL, "/"),
			HasAPI:   false,
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
	if limit <= 0 {
		limit = 20
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+"/search?q="+url.QueryEscape(trimmed), fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangapill search: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangapill search: %w", err)
	}

	// Search results live in the grid container; scoping to it keeps
	// nav and footer links out of the candidate set.
	container := doc.Find("div.grid").First()
	if container.Length() == 0 {
		return []sources.Manga{}, nil
	}

	type candidate struct {
		manga sources.Manga
		score float64
	}

	candidates := make([]candidate, 0)
	seenTitles := map[string]struct{}{}

	container.Find(`a[href^="/manga/"]`).Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		title := scrape.CleanText(anchor.Text())
		if title == "" {
			title = scrape.CleanText(anchor.AttrOr("title", ""))
		}
		if href == "" || title == "" {
			return
		}
		if strings.Contains(strings.ToLower(title), "novel") {
			return
		}
		if _, seen := seenTitles[title]; seen {
			return
		}

		score := searchutil.Score(trimmed, title)
		if score <= searchutil.Threshold {
			return
		}

		seenTitles[title] = struct{}{}
		candidates = append(candidates, candidate{
			manga: c.summaryFromAnchor(href, title, anchor),
			score: score,
		})
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return len(candidates[i].manga.Title) < len(candidates[j].manga.Title)
	})

	results := make([]sources.Manga, 0, len(candidates))
	for _, item := range candidates {
		results = append(results, item.manga)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (c *Connector) GetManga(ctx context.Context, id string) (*sources.Manga, error) {
	mangaPath, err := validateMangaID(id)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+mangaPath, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangapill get manga: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangapill get manga: %w", err)
	}

	title := scrape.CleanText(doc.Find("h1").First().Text())
	if title == "" {
		return nil, fmt.Errorf("mangapill manga %s: %w", mangaPath, sources.ErrNotFound)
	}

	manga := sources.Manga{
		ID:        mangaPath,
		SourceKey: c.source.Key,
		Title:     title,
		Status:    sources.StatusUnknown,
	}

	if description := scrape.CleanText(doc.Find("p.text-sm").First().Text()); description != "" {
		manga.Description = &description
	}

	cover := doc.Find(`meta[property="og:image"]`).AttrOr("content", "")
	if cover == "" {
		cover = scrape.ImageURL(doc.Find("img").First())
	}
	if cover = scrape.AbsoluteURL(c.source.BaseURL, cover); cover != "" {
		manga.CoverImage = &cover
	}

	if statusText := doc.Find(`a[href*="status="]`).First().Text(); statusText != "" {
		manga.Status = scrape.ParseStatus(statusText)
	}

	genres := make([]string, 0, 5)
	doc.Find(`a[href*="genre="]`).Each(func(_ int, node *goquery.Selection) {
		if genre := scrape.CleanText(node.Text()); genre != "" {
			genres = append(genres, genre)
		}
	})
	manga.Genres = sources.CapGenres(genres)

	return &manga, nil
}

func (c *Connector) GetChapters(ctx context.Context, mangaID string) ([]sources.Chapter, error) {
	mangaPath, err := validateMangaID(mangaID)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+mangaPath, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangapill get chapters: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangapill get chapters: %w", err)
	}

	chapters := make([]sources.Chapter, 0)
	seen := map[string]struct{}{}

	doc.Find(`a[href^="/chapters/"]`).Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		label := scrape.CleanText(anchor.Text())
		if href == "" || label == "" {
			return
		}
		if _, exists := seen[href]; exists {
			return
		}
		seen[href] = struct{}{}

		chapter := sources.Chapter{
			ID:          href,
			MangaID:     mangaPath,
			SourceKey:   c.source.Key,
			Number:      scrape.ChapterNumber(label, href),
			PublishedAt: publishedAtNear(anchor),
		}
		chapter.Title = &label

		chapters = append(chapters, chapter)
	})

	// Upstream lists newest first; callers rely on ascending order.
	reverseChapters(chapters)
	return chapters, nil
}

func (c *Connector) GetPages(ctx context.Context, chapterID string) ([]sources.Page, error) {
	chapterPath := strings.TrimSpace(chapterID)
	if !strings.HasPrefix(chapterPath, "/chapters/") {
		return nil, fmt.Errorf("invalid mangapill chapter id %q", chapterID)
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+chapterPath, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangapill get pages: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangapill get pages: %w", err)
	}

	imageURLs := make([]string, 0)
	doc.Find("img[data-src]").Each(func(_ int, img *goquery.Selection) {
		if src := scrape.ImageURL(img); src != "" {
			imageURLs = append(imageURLs, src)
		}
	})
	if len(imageURLs) == 0 {
		imageURLs = scrape.BackgroundImageURLs(doc.Selection)
	}
	if len(imageURLs) == 0 {
		return nil, fmt.Errorf("mangapill chapter %s: no pages extracted", chapterPath)
	}

	pages := make([]sources.Page, 0, len(imageURLs))
	for index, imageURL := range imageURLs {
		pages = append(pages, sources.Page{
			PageNumber: index + 1,
			ImageURL:   scrape.AbsoluteURL(c.source.BaseURL, imageURL),
		})
	}
	return pages, nil
}

func (c *Connector) GetPopular(ctx context.Context, limit int) ([]sources.Manga, error) {
	if limit <= 0 {
		limit = 20
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+"/", fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangapill popular: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangapill popular: %w", err)
	}

	container := doc.Find("div.grid").First()
	if container.Length() == 0 {
		return []sources.Manga{}, nil
	}

	results := make([]sources.Manga, 0, limit)
	seen := map[string]struct{}{}
	container.Find(`a[href^="/manga/"]`).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, _ := anchor.Attr("href")
		title := scrape.CleanText(anchor.Text())
		if href == "" || title == "" {
			return true
		}
		if _, exists := seen[href]; exists {
			return true
		}
		seen[href] = struct{}{}

		results = append(results, c.summaryFromAnchor(href, title, anchor))
		return len(results) < limit
	})

	return results, nil
}

func (c *Connector) summaryFromAnchor(href string, title string, anchor *goquery.Selection) sources.Manga {
	manga := sources.Manga{
		ID:        href,
		SourceKey: c.source.Key,
		Title:     title,
		Status:    sources.StatusUnknown,
	}
	if cover := scrape.AbsoluteURL(c.source.BaseURL, scrape.ImageURL(anchor.Find("img").First())); cover != "" {
		manga.CoverImage = &cover
	}
	return manga
}

func validateMangaID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if !strings.HasPrefix(trimmed, "/manga/") {
		return "", fmt.Errorf("invalid mangapill manga id %q", id)
	}
	return trimmed, nil
}

func publishedAtNear(anchor *goquery.Selection) time.Time {
	if value := anchor.AttrOr("data-published", ""); value != "" {
		if parsed := scrape.ParseTimeAttr(value); !parsed.IsZero() {
			return parsed
		}
	}
	if timeNode := anchor.Parent().Find("time").First(); timeNode.Length() > 0 {
		if parsed := scrape.ParseTimeAttr(timeNode.AttrOr("datetime", timeNode.Text())); !parsed.IsZero() {
			return parsed
		}
	}
	return time.Now().UTC()
}

func reverseChapters(chapters []sources.Chapter) {
	for left, right := 0, len(chapters)-1; left < right; left, right = left+1, right-1 {
		chapters[left], chapters[right] = chapters[right], chapters[left]
	}
}
