package models

import "time"

// Comic is a locally persisted manga reference. The (SourceKey,
// SourceMangaID) pair ties it back to the upstream entity; the local ID is
// what bookmarks and reading progress key on.
type Comic struct {
	ID                 int64      `json:"id"`
	SourceKey          string     `json:"source"`
	SourceMangaID      string     `json:"sourceMangaId"`
	Title              string     `json:"title"`
	Description        *string    `json:"description,omitempty"`
	CoverImage         *string    `json:"coverImage,omitempty"`
	Author             *string    `json:"author,omitempty"`
	Status             string     `json:"status"`
	Genres             []string   `json:"genres"`
	LatestKnownChapter *float64   `json:"latestKnownChapter,omitempty"`
	LatestReleaseAt    *time.Time `json:"latestReleaseAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type Bookmark struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	ComicID   int64     `json:"comicId"`
	Comic     *Comic    `json:"comic,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReadingProgress struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	ComicID     int64     `json:"comicId"`
	ChapterID   string    `json:"chapterId"`
	ChapterNum  string    `json:"chapterNumber"`
	CurrentPage int       `json:"currentPage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TrendingManga is one mined community-trend entry resolved against an
// upstream catalog. MentionSource records where the mentions came from.
type TrendingManga struct {
	ID            int64     `json:"id"`
	SourceKey     string    `json:"source"`
	SourceMangaID string    `json:"sourceMangaId"`
	Title         string    `json:"title"`
	MentionCount  int       `json:"mentionCount"`
	AverageScore  float64   `json:"averageScore"`
	MentionSource string    `json:"mentionSource"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
