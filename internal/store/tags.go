package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

// adjustTagTx applies delta to one tag inside tx. Missing tags start at zero,
// counts never drop below zero and a tag that reaches zero is deleted.
// It returns the resulting count.
func adjustTagTx(ctx context.Context, tx *sql.Tx, name string, delta int) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT usage_count FROM tags WHERE name = ?`, name).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("store: read tag %q: %w", name, err)
	}
	count = max(count+delta, 0)
	if count == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE name = ?`, name); err != nil {
			return 0, fmt.Errorf("store: delete tag %q: %w", name, err)
		}
		return 0, nil
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tags (name, usage_count) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET usage_count = excluded.usage_count
	`, name, count)
	if err != nil {
		return 0, fmt.Errorf("store: upsert tag %q: %w", name, err)
	}
	return count, nil
}

// adjustTagsTx decrements every removed tag and increments every added tag
// inside tx, so the counts commit together with the membership change.
func adjustTagsTx(ctx context.Context, tx *sql.Tx, removed, added []string) error {
	for _, t := range removed {
		if _, err := adjustTagTx(ctx, tx, t, -1); err != nil {
			return err
		}
	}
	for _, t := range added {
		if _, err := adjustTagTx(ctx, tx, t, 1); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTagUsage applies delta to the usage count of name. It returns nil
// when the tag no longer exists afterwards.
func (db *DB) UpdateTagUsage(ctx context.Context, name string, delta int) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag name is required: %w", apperr.ErrInvalidInput)
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	count, err := adjustTagTx(ctx, tx, name, delta)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit tag: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	return &models.Tag{Name: name, UsageCount: count}, nil
}

// GetAllTags returns every tag, most used first.
func (db *DB) GetAllTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, usage_count FROM tags ORDER BY usage_count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("store: all tags: %w", err)
	}
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.Name, &t.UsageCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
