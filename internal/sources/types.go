package sources

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Status values a normalized manga can carry.
const (
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusUnknown   = "unknown"
)

const maxGenres = 5

// ErrNotFound marks a manga or chapter the upstream does not know, either a
// 404 from an API source or a missing DOM fragment on a scraped page.
var ErrNotFound = errors.New("not found")

// Source identifies one upstream provider. Instances are immutable and
// defined at startup, one per supported upstream.
type Source struct {
	Key      string `json:"id"`
	Name     string `json:"name"`
	BaseURL  string `json:"baseUrl"`
	HasAPI   bool   `json:"hasAPI"`
	Language string `json:"language"`
}

// Manga is a source-agnostic summary. ID is source-scoped: it only means
// something paired with SourceKey, and equal IDs under different sources are
// unrelated entities.
type Manga struct {
	ID          string     `json:"id"`
	SourceKey   string     `json:"source"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	CoverImage  *string    `json:"coverImage"`
	Author      *string    `json:"author"`
	Status      string     `json:"status"`
	Genres      []string   `json:"genres"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Chapter belongs to exactly one (manga, source) pair. Number is a decimal
// string ("10", "10.5"); use ParseNumber for ordering.
type Chapter struct {
	ID          string    `json:"id"`
	MangaID     string    `json:"mangaId"`
	SourceKey   string    `json:"source"`
	Number      string    `json:"number"`
	Title       *string   `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Language    *string   `json:"language,omitempty"`
	Scanlator   string    `json:"scanlator,omitempty"`
}

// Page is one image of a chapter. PageNumber sequences are 1-based and
// gap-free in discovery order.
type Page struct {
	PageNumber int    `json:"pageNumber"`
	ImageURL   string `json:"imageUrl"`
}

// Connector is the uniform contract every upstream implements, hiding
// whether it is backed by a JSON API or by HTML extraction.
type Connector interface {
	Source() Source
	Search(ctx context.Context, query string, limit int) ([]Manga, error)
	GetManga(ctx context.Context, id string) (*Manga, error)
	GetChapters(ctx context.Context, mangaID string) ([]Chapter, error)
	GetPages(ctx context.Context, chapterID string) ([]Page, error)
	GetPopular(ctx context.Context, limit int) ([]Manga, error)
}

// ParseNumber turns a chapter number string into its sort key. Missing or
// unparsable numbers sort as 0, which collides with a literal chapter zero;
// the upstream data does not allow distinguishing the two.
func ParseNumber(raw string) float64 {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}

// CapGenres trims a genre list to the shared cap, preserving the
// source-provided order.
func CapGenres(genres []string) []string {
	if len(genres) <= maxGenres {
		return genres
	}
	return genres[:maxGenres]
}
