//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
			id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, ex execer, id, title, content string) error {
	_, _ = ex.ExecContext(ctx, `DELETE FROM articles_fts WHERE id = ?`, id)
	_, err := ex.ExecContext(ctx, `INSERT INTO articles_fts (id, title, content) VALUES (?, ?, ?)`, id, title, content)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, ex execer, id string) error {
	_, err := ex.ExecContext(ctx, `DELETE FROM articles_fts WHERE id = ?`, id)
	return err
}

// searchClause restricts an articles query to rows matching q.
func searchClause(q string) (string, []any) {
	return `id IN (SELECT id FROM articles_fts WHERE articles_fts MATCH ?)`, []any{q}
}

// SearchArticles performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) SearchArticles(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id,
		       title,
		       snippet(articles_fts, 2, '<b>', '</b>', '...', 64)
		FROM articles_fts
		WHERE articles_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
