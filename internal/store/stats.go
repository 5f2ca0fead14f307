package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/quest/internal/models"
)

// Stats computes library counters. ReadToday counts articles read on the
// calendar day of now, in now's location.
func (db *DB) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	var s models.Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN json_array_length(doc, '$.summaryIds') > 0 THEN 1 ELSE 0 END), 0)
		FROM articles
	`).Scan(&s.TotalArticles, &s.UnreadArticles, &s.ArticlesEnhanced)
	if err != nil {
		return s, fmt.Errorf("store: article stats: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM summaries`).Scan(&s.TotalSummaries); err != nil {
		return s, fmt.Errorf("store: summary stats: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio_files`).Scan(&s.TotalPodcasts); err != nil {
		return s, fmt.Errorf("store: audio stats: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT json_extract(doc, '$.timestamps.dateRead') FROM articles
		WHERE json_extract(doc, '$.timestamps.dateRead') IS NOT NULL
	`)
	if err != nil {
		return s, fmt.Errorf("store: read dates: %w", err)
	}
	defer rows.Close()

	y, m, d := now.Date()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return s, err
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			continue
		}
		ty, tm, td := t.In(now.Location()).Date()
		if ty == y && tm == m && td == d {
			s.ReadToday++
		}
	}
	return s, rows.Err()
}
