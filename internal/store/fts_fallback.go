//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the article document.
	return nil
}

func ftsUpsert(_ context.Context, _ execer, _, _, _ string) error { return nil }

func ftsDelete(_ context.Context, _ execer, _ string) error { return nil }

func searchClause(q string) (string, []any) {
	like := "%" + q + "%"
	return `(json_extract(doc, '$.title') LIKE ? OR json_extract(doc, '$.content') LIKE ?)`, []any{like, like}
}

// SearchArticles performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) SearchArticles(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	where, args := searchClause(query)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, json_extract(doc, '$.title'), substr(json_extract(doc, '$.content'), 1, 200)
		FROM articles
		WHERE `+where+`
		ORDER BY date_added DESC
		LIMIT ?
	`, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
