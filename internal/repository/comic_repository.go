package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/wibucomic/backend/internal/models"
)

type ComicRepository struct {
	db *sql.DB
}

func NewComicRepository(db *sql.DB) *ComicRepository {
	return &ComicRepository{db: db}
}

const comicColumns = `id, source_key, source_manga_id, title, description, cover_image,
	author, status, genres, latest_known_chapter, latest_release_at, created_at, updated_at`

// Upsert stores the comic identified by (source_key, source_manga_id),
// refreshing its descriptive fields when it already exists, and returns the
// stored row with its local ID.
func (r *ComicRepository) Upsert(comic models.Comic) (*models.Comic, error) {
	genres, err := encodeGenres(comic.Genres)
	if err != nil {
		return nil, fmt.Errorf("encode genres: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO comics (source_key, source_manga_id, title, description, cover_image, author, status, genres)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_key, source_manga_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			cover_image = excluded.cover_image,
			author = excluded.author,
			status = excluded.status,
			genres = excluded.genres,
			updated_at = CURRENT_TIMESTAMP
	`, comic.SourceKey, comic.SourceMangaID, comic.Title, comic.Description,
		comic.CoverImage, comic.Author, comic.Status, genres)
	if err != nil {
		return nil, fmt.Errorf("upsert comic: %w", err)
	}

	return r.GetBySource(comic.SourceKey, comic.SourceMangaID)
}

func (r *ComicRepository) GetByID(id int64) (*models.Comic, error) {
	row := r.db.QueryRow(`SELECT `+comicColumns+` FROM comics WHERE id = ?`, id)
	return scanComic(row, "get comic by id")
}

func (r *ComicRepository) GetBySource(sourceKey string, sourceMangaID string) (*models.Comic, error) {
	row := r.db.QueryRow(`
		SELECT `+comicColumns+`
		FROM comics
		WHERE source_key = ? AND source_manga_id = ?
	`, sourceKey, sourceMangaID)
	return scanComic(row, "get comic by source")
}

func (r *ComicRepository) List() ([]models.Comic, error) {
	rows, err := r.db.Query(`SELECT ` + comicColumns + ` FROM comics ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list comics: %w", err)
	}
	defer rows.Close()

	items := make([]models.Comic, 0)
	for rows.Next() {
		item, err := scanComicRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comic: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comics: %w", err)
	}

	return items, nil
}

// UpdateLatestChapter records the newest known chapter for change
// detection; returns whether the stored value actually moved.
func (r *ComicRepository) UpdateLatestChapter(id int64, chapter float64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE comics
		SET latest_known_chapter = ?,
			latest_release_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (latest_known_chapter IS NULL OR latest_known_chapter < ?)
	`, chapter, id, chapter)
	if err != nil {
		return false, fmt.Errorf("update latest chapter: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("latest chapter rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComic(row *sql.Row, op string) (*models.Comic, error) {
	item, err := scanComicRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return item, nil
}

func scanComicRow(scanner rowScanner) (*models.Comic, error) {
	var item models.Comic
	var genres string
	err := scanner.Scan(&item.ID, &item.SourceKey, &item.SourceMangaID, &item.Title,
		&item.Description, &item.CoverImage, &item.Author, &item.Status, &genres,
		&item.LatestKnownChapter, &item.LatestReleaseAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &item.Genres); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	return &item, nil
}

func encodeGenres(genres []string) (string, error) {
	if genres == nil {
		genres = []string{}
	}
	encoded, err := json.Marshal(genres)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
