package mangareader

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

// IDPrefix marks manga and chapter IDs minted by this connector so mixed ID
// sets stay attributable to their source.
const IDPrefix = "mr:"

// Connector scrapes mangareader.to. IDs carry the "mr:" prefix followed by
// the site URL path ("mr:/solo-leveling-3", "mr:/read/solo-leveling-3/en/chapter-10").
type Connector struct {
	source  sources.Source
	fetcher *fetch.Client
}

func NewConnector(fetcher *fetch.Client) *Connector {
	return NewConnectorWithBaseURL("https://mangareader.to", fetcher)
}

func NewConnectorWithBaseURL(baseURL string, fetcher *fetch.Client) *Connector {
	return &Connector{
		source: sources.Source{
			Key:      "mangareader",
			Name:     "MangaReader",
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

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+"/search?keyword="+url.QueryEscape(trimmed), fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangareader search: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangareader search: %w", err)
	}

	type candidate struct {
		manga sources.Manga
		score float64
	}

	candidates := make([]candidate, 0)
	c.eachListEntry(doc, func(manga sources.Manga) bool {
		score := searchutil.Score(trimmed, manga.Title)
		if score <= searchutil.Threshold {
			return true
		}
		candidates = append(candidates, candidate{manga: manga, score: score})
		return true
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
		return nil, fmt.Errorf("mangareader get manga: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangareader get manga: %w", err)
	}

	title := scrape.CleanText(doc.Find("h2.manga-name").First().Text())
	if title == "" {
		return nil, fmt.Errorf("mangareader manga %s: %w", mangaPath, sources.ErrNotFound)
	}

	manga := sources.Manga{
		ID:        IDPrefix + mangaPath,
		SourceKey: c.source.Key,
		Title:     title,
		Status:    sources.StatusUnknown,
	}

	if description := scrape.CleanText(doc.Find(".description").First().Text()); description != "" {
		manga.Description = &description
	}
	if cover := scrape.AbsoluteURL(c.source.BaseURL, scrape.ImageURL(doc.Find(".manga-poster img").First())); cover != "" {
		manga.CoverImage = &cover
	}

	genres := make([]string, 0, 5)
	doc.Find(".genres a").Each(func(_ int, node *goquery.Selection) {
		if genre := scrape.CleanText(node.Text()); genre != "" {
			genres = append(genres, genre)
		}
	})
	manga.Genres = sources.CapGenres(genres)

	doc.Find(".anisc-info .item").Each(func(_ int, item *goquery.Selection) {
		head := strings.ToLower(scrape.CleanText(item.Find(".item-head").Text()))
		if strings.HasPrefix(head, "status") {
			manga.Status = scrape.ParseStatus(item.Find(".name").Text())
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
		return nil, fmt.Errorf("mangareader get chapters: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangareader get chapters: %w", err)
	}

	chapters := make([]sources.Chapter, 0)
	seen := map[string]struct{}{}

	doc.Find(`a[href^="/read/"]`).Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		if href == "" || !strings.Contains(href, "/chapter-") {
			return
		}
		if _, exists := seen[href]; exists {
			return
		}
		label := scrape.CleanText(anchor.Text())
		if label == "" {
			label = scrape.CleanText(anchor.AttrOr("title", ""))
		}
		if label == "" {
			return
		}
		seen[href] = struct{}{}

		chapter := sources.Chapter{
			ID:          IDPrefix + href,
			MangaID:     IDPrefix + mangaPath,
			SourceKey:   c.source.Key,
			Number:      scrape.ChapterNumber(label, href),
			PublishedAt: time.Now().UTC(),
		}
		chapter.Title = &label
		if language := languageFromPath(href); language != "" {
			chapter.Language = &language
		}

		chapters = append(chapters, chapter)
	})

	reverseChapters(chapters)
	return chapters, nil
}

func (c *Connector) GetPages(ctx context.Context, chapterID string) ([]sources.Page, error) {
	chapterPath, err := stripPrefix(chapterID)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(chapterPath, "/read/") {
		return nil, fmt.Errorf("invalid mangareader chapter id %q", chapterID)
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+chapterPath, fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangareader get pages: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangareader get pages: %w", err)
	}

	imageURLs := make([]string, 0)
	doc.Find("[data-url]").Each(func(_ int, node *goquery.Selection) {
		if src := strings.TrimSpace(node.AttrOr("data-url", "")); src != "" {
			imageURLs = append(imageURLs, src)
		}
	})
	if len(imageURLs) == 0 {
		imageURLs = scrape.BackgroundImageURLs(doc.Selection)
	}
	if len(imageURLs) == 0 {
		return nil, fmt.Errorf("mangareader chapter %s: no pages extracted", chapterPath)
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

// GetPopular reads the most-viewed listing, which shares the search page
// markup.
func (c *Connector) GetPopular(ctx context.Context, limit int) ([]sources.Manga, error) {
	if limit <= 0 {
		limit = 20
	}

	body, err := c.fetcher.GetHTML(ctx, c.source.BaseURL+"/most-viewed", fetch.Options{})
	if err != nil {
		return nil, fmt.Errorf("mangareader popular: %w", err)
	}

	doc, err := scrape.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("mangareader popular: %w", err)
	}

	results := make([]sources.Manga, 0, limit)
	c.eachListEntry(doc, func(manga sources.Manga) bool {
		results = append(results, manga)
		return len(results) < limit
	})
	return results, nil
}

// eachListEntry walks entries of the manga_list-sbs listing container,
// calling visit for each. visit returns false to stop early.
func (c *Connector) eachListEntry(doc *goquery.Document, visit func(sources.Manga) bool) {
	container := doc.Find(".manga_list-sbs").First()
	if container.Length() == 0 {
		return
	}

	seenTitles := map[string]struct{}{}
	container.Find("h3.manga-name").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		anchor := heading.Find("a").First()
		href := anchor.AttrOr("href", "")
		title := scrape.CleanText(anchor.AttrOr("title", ""))
		if title == "" {
			title = scrape.CleanText(anchor.Text())
		}
		if href == "" || title == "" {
			return true
		}
		if _, exists := seenTitles[title]; exists {
			return true
		}
		seenTitles[title] = struct{}{}

		manga := sources.Manga{
			ID:        IDPrefix + href,
			SourceKey: c.source.Key,
			Title:     title,
			Status:    sources.StatusUnknown,
		}
		item := heading.Closest(".item")
		if item.Length() == 0 {
			item = heading.Parent()
		}
		if cover := scrape.AbsoluteURL(c.source.BaseURL, scrape.ImageURL(item.Find("img").First())); cover != "" {
			manga.CoverImage = &cover
		}
		return visit(manga)
	})
}

func stripPrefix(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if !strings.HasPrefix(trimmed, IDPrefix) {
		return "", fmt.Errorf("invalid mangareader id %q", id)
	}
	path := strings.TrimPrefix(trimmed, IDPrefix)
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("invalid mangareader id %q", id)
	}
	return path, nil
}

// languageFromPath pulls the language segment out of reader paths shaped
// like /read/{slug}/{lang}/chapter-{n}.
func languageFromPath(href string) string {
	segments := strings.Split(strings.Trim(href, "/"), "/")
	if len(segments) == 4 && segments[0] == "read" && strings.HasPrefix(segments[3], "chapter-") {
		return segments[2]
	}
	return ""
}

func reverseChapters(chapters []sources.Chapter) {
	for left, right := 0, len(chapters)-1; left < right; left, right = left+1, right-1 {
		chapters[left], chapters[right] = chapters[right], chapters[left]
	}
}
