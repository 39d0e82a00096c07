// Package scrape holds the HTML extraction primitives shared by the scraped
// source connectors. Extraction is DOM-based: each connector scopes to a
// results container first, then applies per-field selectors inside it, which
// keeps false positives down compared to whole-page matching.
package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	chapterNumberPattern   = regexp.MustCompile(`(?i)chapter[\s_-]*(\d+(?:\.\d+)?)`)
	trailingNumberPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*$`)
	backgroundImagePattern = regexp.MustCompile(`url\(['"]?(https?://[^)'"]+)['"]?\)`)
)

func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ChapterNumber extracts the decimal chapter number from a chapter label
// ("Vol.1 Chapter 10.5") or, failing that, from the chapter URL path.
// Unknown numbers come back as "0".
func ChapterNumber(label string, href string) string {
	if match := chapterNumberPattern.FindStringSubmatch(label); len(match) >= 2 {
		return match[1]
	}
	if match := chapterNumberPattern.FindStringSubmatch(href); len(match) >= 2 {
		return match[1]
	}
	if match := trailingNumberPattern.FindStringSubmatch(strings.TrimSpace(label)); len(match) >= 2 {
		return match[1]
	}
	return "0"
}

// BackgroundImageURLs collects CSS background-image URLs from style
// attributes under sel. The secondary page-extraction pattern for templates
// that lazy-render images into div backgrounds.
func BackgroundImageURLs(sel *goquery.Selection) []string {
	urls := make([]string, 0)
	sel.Find("[style]").Each(func(_ int, node *goquery.Selection) {
		style, _ := node.Attr("style")
		for _, match := range backgroundImagePattern.FindAllStringSubmatch(style, -1) {
			urls = append(urls, match[1])
		}
	})
	return urls
}

// ImageURL returns the first usable image source of an img node, preferring
// lazy-load attributes over src.
func ImageURL(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-url", "src"} {
		if value, ok := img.Attr(attr); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// CleanText collapses whitespace runs in an extracted text node.
func CleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// ParseStatus maps free-text status labels onto the shared status values.
func ParseStatus(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "completed"), strings.Contains(lower, "finished"):
		return "completed"
	case strings.Contains(lower, "ongoing"), strings.Contains(lower, "releasing"), strings.Contains(lower, "publishing"):
		return "ongoing"
	default:
		return "unknown"
	}
}

// AbsoluteURL resolves raw against baseURL; already-absolute URLs pass
// through unchanged.
func AbsoluteURL(baseURL string, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return trimmed
	}
	return base.ResolveReference(parsed).String()
}

// ParseTimeAttr parses the datetime formats seen on chapter listings. The
// zero time means the value could not be read.
func ParseTimeAttr(raw string) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "Jan 2, 2006", "January 2, 2006"} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
