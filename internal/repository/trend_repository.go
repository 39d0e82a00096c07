package repository

import (
	"database/sql"
	"fmt"

	"github.com/wibucomic/backend/internal/models"
)

type TrendRepository struct {
	db *sql.DB
}

func NewTrendRepository(db *sql.DB) *TrendRepository {
	return &TrendRepository{db: db}
}

// UpsertTrend stores a mined trend entry keyed by its resolved upstream
// identity, replacing stale mention data from a previous sync.
func (r *TrendRepository) UpsertTrend(trend models.TrendingManga) error {
	_, err := r.db.Exec(`
		INSERT INTO trending_manga (source_key, source_manga_id, title, mention_count, average_score, mention_source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_key, source_manga_id) DO UPDATE SET
			title = excluded.title,
			mention_count = excluded.mention_count,
			average_score = excluded.average_score,
			mention_source = excluded.mention_source,
			last_updated = CURRENT_TIMESTAMP
	`, trend.SourceKey, trend.SourceMangaID, trend.Title, trend.MentionCount,
		trend.AverageScore, trend.MentionSource)
	if err != nil {
		return fmt.Errorf("upsert trend %s/%s: %w", trend.SourceKey, trend.SourceMangaID, err)
	}
	return nil
}

// ListTop returns the most mentioned entries, busiest first.
func (r *TrendRepository) ListTop(limit int) ([]models.TrendingManga, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, source_key, source_manga_id, title, mention_count, average_score, mention_source, last_updated
		FROM trending_manga
		ORDER BY mention_count DESC, title ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list trends: %w", err)
	}
	defer rows.Close()

	trends := make([]models.TrendingManga, 0, limit)
	for rows.Next() {
		var trend models.TrendingManga
		if err := rows.Scan(&trend.ID, &trend.SourceKey, &trend.SourceMangaID, &trend.Title,
			&trend.MentionCount, &trend.AverageScore, &trend.MentionSource, &trend.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		trends = append(trends, trend)
	}
	return trends, rows.Err()
}
