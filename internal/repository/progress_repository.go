package repository

import (
	"database/sql"
	"fmt"

	"github.com/wibucomic/backend/internal/models"
)

type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Upsert records where a user is in a comic. One row per (user, comic);
// moving to another chapter overwrites the old position.
func (r *ProgressRepository) Upsert(progress models.ReadingProgress) (*models.ReadingProgress, error) {
	if progress.CurrentPage < 1 {
		progress.CurrentPage = 1
	}

	_, err := r.db.Exec(`
		INSERT INTO reading_progress (user_id, comic_id, chapter_id, chapter_number, current_page)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, comic_id) DO UPDATE SET
			chapter_id = excluded.chapter_id,
			chapter_number = excluded.chapter_number,
			current_page = excluded.current_page,
			updated_at = CURRENT_TIMESTAMP
	`, progress.UserID, progress.ComicID, progress.ChapterID, progress.ChapterNum, progress.CurrentPage)
	if err != nil {
		return nil, fmt.Errorf("upsert reading progress: %w", err)
	}

	return r.Get(progress.UserID, progress.ComicID)
}

func (r *ProgressRepository) Get(userID string, comicID int64) (*models.ReadingProgress, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, comic_id, chapter_id, chapter_number, current_page, created_at, updated_at
		FROM reading_progress
		WHERE user_id = ? AND comic_id = ?
	`, userID, comicID)

	var item models.ReadingProgress
	err := row.Scan(&item.ID, &item.UserID, &item.ComicID, &item.ChapterID,
		&item.ChapterNum, &item.CurrentPage, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get reading progress: %w", err)
	}
	return &item, nil
}

func (r *ProgressRepository) ListByUser(userID string) ([]models.ReadingProgress, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, comic_id, chapter_id, chapter_number, current_page, created_at, updated_at
		FROM reading_progress
		WHERE user_id = ?
		ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reading progress: %w", err)
	}
	defer rows.Close()

	items := make([]models.ReadingProgress, 0)
	for rows.Next() {
		var item models.ReadingProgress
		err := rows.Scan(&item.ID, &item.UserID, &item.ComicID, &item.ChapterID,
			&item.ChapterNum, &item.CurrentPage, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan reading progress: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading progress: %w", err)
	}

	return items, nil
}
