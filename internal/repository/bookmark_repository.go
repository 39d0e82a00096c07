package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/wibucomic/backend/internal/models"
)

type BookmarkRepository struct {
	db *sql.DB
}

func NewBookmarkRepository(db *sql.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Add bookmarks a comic for a user. Adding an existing bookmark is a no-op;
// the stored row comes back either way.
func (r *BookmarkRepository) Add(userID string, comicID int64) (*models.Bookmark, error) {
	if _, err := r.db.Exec(`
		INSERT OR IGNORE INTO bookmarks (user_id, comic_id)
		VALUES (?, ?)
	`, userID, comicID); err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}

	row := r.db.QueryRow(`
		SELECT id, user_id, comic_id, created_at
		FROM bookmarks
		WHERE user_id = ? AND comic_id = ?
	`, userID, comicID)

	var item models.Bookmark
	if err := row.Scan(&item.ID, &item.UserID, &item.ComicID, &item.CreatedAt); err != nil {
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	return &item, nil
}

func (r *BookmarkRepository) Remove(userID string, comicID int64) (bool, error) {
	result, err := r.db.Exec(`
		DELETE FROM bookmarks
		WHERE user_id = ? AND comic_id = ?
	`, userID, comicID)
	if err != nil {
		return false, fmt.Errorf("remove bookmark: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("bookmark remove rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListByUser returns the user's bookmarks newest-first with the comic
// embedded.
func (r *BookmarkRepository) ListByUser(userID string) ([]models.Bookmark, error) {
	rows, err := r.db.Query(`
		SELECT b.id, b.user_id, b.comic_id, b.created_at,
			c.id, c.source_key, c.source_manga_id, c.title, c.description, c.cover_image,
			c.author, c.status, c.genres, c.latest_known_chapter, c.latest_release_at,
			c.created_at, c.updated_at
		FROM bookmarks b
		JOIN comics c ON c.id = b.comic_id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC, b.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	items := make([]models.Bookmark, 0)
	for rows.Next() {
		var item models.Bookmark
		var comic models.Comic
		var genres string
		err := rows.Scan(&item.ID, &item.UserID, &item.ComicID, &item.CreatedAt,
			&comic.ID, &comic.SourceKey, &comic.SourceMangaID, &comic.Title,
			&comic.Description, &comic.CoverImage, &comic.Author, &comic.Status,
			&genres, &comic.LatestKnownChapter, &comic.LatestReleaseAt,
			&comic.CreatedAt, &comic.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		if err := json.Unmarshal([]byte(genres), &comic.Genres); err != nil {
			return nil, fmt.Errorf("decode genres: %w", err)
		}
		item.Comic = &comic
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}

	return items, nil
}

// BookmarkedComics returns each distinct bookmarked comic once, for the
// release poller.
func (r *BookmarkRepository) BookmarkedComics() ([]models.Comic, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT c.id, c.source_key, c.source_manga_id, c.title, c.description,
			c.cover_image, c.author, c.status, c.genres, c.latest_known_chapter,
			c.latest_release_at, c.created_at, c.updated_at
		FROM comics c
		JOIN bookmarks b ON b.comic_id = c.id
		ORDER BY c.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list bookmarked comics: %w", err)
	}
	defer rows.Close()

	items := make([]models.Comic, 0)
	for rows.Next() {
		item, err := scanComicRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmarked comic: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarked comics: %w", err)
	}

	return items, nil
}
