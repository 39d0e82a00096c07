package mangaread

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

// IDPrefix marks IDs minted by this connector.
const IDPrefix = "mrd:"

// Connector scrapes mangaread.org, a stock WordPress Madara install. IDs
// carry the "mrd:" prefix followed by the site URL path
// ("mrd:/manga/solo-leveling", "mrd:/manga/solo-leveling/chapter-10").
type Connector struct {
	source  sources.Source
	fetcher *fetch.Client
}

func NewConnector(fetcher *fetch.Client) *Connector {
	return NewConnectorWithBaseURL("https://www.mangaread.org", fetcher)
}

func NewConnectorWithBaseURL(baseURL string, fetcher *fetch.Client) *Connector {
	return &Connector{
		source: sources.Source{
			Key:      "mangaread",
			Name:     "MangaRead",
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

	searchURL := c.source.BaseURL + "/?s=" + url.QueryEscape(trimmed) + "&post_type=wp-manga"
	body, err := c.fetcher.GetHTML(ctx, searchURL, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangaread search: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangaread search: %w", err)
	}

	container := doc.Find(".tab-content-wrap").First()
	if container.Length() == 0 {
		return []sources.Manga{}, nil
	}

	type candidate struct {
		manga sources.Manga
		score float64
	}

	candidates := make([]candidate, 0)
	seen := map[string]struct{}{}

	container.Find(".tab-thumb.c-image-hover a").Each(func(_ int, anchor *goquery.Selection) {
		href := anchor.AttrOr("href", "")
		title := scrape.CleanText(anchor.AttrOr("title", ""))
		if href == "" || title == "" || !strings.Contains(href, "/manga/") {
			return
		}
		mangaPath, ok := sitePath(c.source.BaseURL, href)
		if !ok {
			return
		}
		if _, exists := seen[mangaPath]; exists {
			return
		}

		score := searchutil.Score(trimmed, title)
		if score <= searchutil.Threshold {
			return
		}

		seen[mangaPath] = struct{}{}
		manga := sources.Manga{
			ID:        IDPrefix + mangaPath,
			SourceKey: c.source.Key,
			Title:     title,
			Status:    sources.StatusUnknown,
		}
		if cover := scrape.AbsoluteURL(c.source.BaseURL, scrape.ImageURL(anchor.Find("img").First())); cover != "" {
			manga.CoverImage = &cover
		}
		candidates = append(candidates, candidate{manga: manga, score: score})
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
	mangaPath, err := stripPrefix(id)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+mangaPath, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangaread get manga: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangaread get manga: %w", err)
	}

	title := scrape.CleanText(doc.Find(".post-title h1").First().Text())
	if title == "" {
		return nil, fmt.Errorf("mangaread manga %s: %w", mangaPath, sources.ErrNotFound)
	}

	manga := sources.Manga{
		ID:        IDPrefix + mangaPath,
		SourceKey: c.source.Key,
		Title:     title,
		Status:    sources.StatusUnknown,
	}

	if description := scrape.CleanText(doc.Find(".summary__content").First().Text()); description != "" {
		manga.Description = &description
	}
	if cover := scrape.AbsoluteURL(c.source.BaseURL, scrape.ImageURL(doc.Find(".summary_image img").First())); cover != "" {
		manga.CoverImage = &cover
	}
	if author := scrape.CleanText(doc.Find(".author-content a").First().Text()); author != "" {
		manga.Author = &author
	}

	genres := make([]string, 0, 5)
	doc.Find(".genres-content a").Each(func(_ int, node *goquery.Selection) {
		if genre := scrape.CleanText(node.Text()); genre != "" {
			genres = append(genres, genre)
		}
	})
	manga.Genres = sources.CapGenres(genres)

	doc.Find(".post-status .post-content_item").Each(func(_ int, item *goquery.Selection) {
		heading := strings.ToLower(scrape.CleanText(item.Find(".summary-heading").Text()))
		if strings.Contains(heading, "status") {
			manga.Status = scrape.ParseStatus(item.Find(".summary-content").Text())
		}
	})

	return &manga, nil
}

func (c *Connector) GetChapters(ctx context.Context, mangaID string) ([]sources.Chapter, error) {
	mangaPath, err := stripPrefix(mangaID)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+mangaPath, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangaread get chapters: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangaread get chapters: %w", err)
	}

	chapters := make([]sources.Chapter, 0)
	seen := map[string]struct{}{}

	doc.Find("li.wp-manga-chapter").Each(func(_ int, item *goquery.Selection) {
		anchor := item.Find("a").First()
		href := anchor.AttrOr("href", "")
		label := scrape.CleanText(anchor.Text())
		if href == "" || label == "" {
			return
		}
		chapterPath, ok := sitePath(c.source.BaseURL, href)
		if !ok {
			return
		}
		if _, exists := seen[chapterPath]; exists {
			return
		}
		seen[chapterPath] = struct{}{}

		chapter := sources.Chapter{
			ID:          IDPrefix + chapterPath,
			MangaID:     IDPrefix + mangaPath,
			SourceKey:   c.source.Key,
			Number:      scrape.ChapterNumber(label, chapterPath),
			PublishedAt: releaseDate(item),
		}
		chapter.Title = &label

		chapters = append(chapters, chapter)
	})

	// Madara lists newest first.
	reverseChapters(chapters)
	return chapters, nil
}

func (c *Connector) GetPages(ctx context.Context, chapterID string) ([]sources.Page, error) {
	chapterPath, err := stripPrefix(chapterID)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+chapterPath, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangaread get pages: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangaread get pages: %w", err)
	}

	imageURLs := make([]string, 0)
	doc.Find("img.wp-manga-chapter-img").Each(func(_ int, img *goquery.Selection) {
		// Madara pads src attributes with whitespace.
		if src := strings.TrimSpace(scrape.ImageURL(img)); src != "" {
			imageURLs = append(imageURLs, src)
		}
	})
	if len(imageURLs) == 0 {
		imageURLs = scrape.BackgroundImageURLs(doc.Selection)
	}
	if len(imageURLs) == 0 {
		return nil, fmt.Errorf("mangaread chapter %s: no pages extracted", chapterPath)
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

// GetPopular reads the views-ordered archive, which uses the standard
// Madara grid rather than the search tab layout.
func (c *Connector) GetPopular(ctx context.Context, limit int) ([]sources.Manga, error) {
	if limit <= 0 {
		limit = 20
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+"/manga/?m_orderby=views", fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangaread popular: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangaread popular: %w", err)
	}

	results := make([]sources.Manga, 0, limit)
	seen := map[string]struct{}{}

	doc.Find(".page-item-detail").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		anchor := item.Find(".post-title a").First()
		href := anchor.AttrOr("href", "")
		title := scrape.CleanText(anchor.Text())
		if href == "" || title == "" {
			return true
		}
		mangaPath, ok := sitePath(c.source.BaseURL, href)
		if !ok {
			return true
		}
		if _, exists := seen[mangaPath]; exists {
			return true
		}
		seen[mangaPath] = struct{}{}

		manga := sources.Manga{
			ID:        IDPrefix + mangaPath,
			SourceKey: c.source.Key,
			Title:     title,
			Status:    sources.StatusUnknown,
		}
		if cover := scrape.AbsoluteURL(c.source.BaseURL, scrape.ImageURL(item.Find("img").First())); cover != "" {
			manga.CoverImage = &cover
		}
		results = append(results, manga)
		return len(results) < limit
	})

	return results, nil
}

func stripPrefix(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if !strings.HasPrefix(trimmed, IDPrefix) {
		return "", fmt.Errorf("invalid mangaread id %q", id)
	}
	path := strings.TrimPrefix(trimmed, IDPrefix)
	if !strings.HasPrefix(path, "/manga/") {
		return "", fmt.Errorf("invalid mangaread id %q", id)
	}
	return strings.TrimRight(path, "/"), nil
}

// sitePath reduces an absolute or relative link to its URL path and rejects
// links pointing off-site.
func sitePath(baseURL string, href string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil || parsed.Path == "" {
		return "", false
	}
	if parsed.IsAbs() {
		base, err := url.Parse(baseURL)
		if err != nil || parsed.Host != base.Host {
			return "", false
		}
	}
	return strings.TrimRight(parsed.Path, "/"), true
}

func releaseDate(item *goquery.Selection) time.Time {
	node := item.Find(".chapter-release-date").First()
	if node.Length() > 0 {
		if parsed := scrape.ParseTimeAttr(scrape.CleanText(node.Text())); !parsed.IsZero() {
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
