package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/quest/internal/models"
)

// LogAudit appends an audit record. A nil Success is recorded as true.
func (db *DB) LogAudit(ctx context.Context, d models.AuditDraft) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		Timestamp: db.now().UTC(),
		Action:    d.Action,
		Provider:  d.Provider,
		Model:     d.Model,
		ArticleID: d.ArticleID,
		Details:   d.Details,
		Success:   d.Success == nil || *d.Success,
		Error:     d.Error,
	}
	doc, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("store: encode audit: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO audit_log (id, timestamp, action, provider, doc) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, formatTime(entry.Timestamp), entry.Action, string(entry.Provider), string(doc))
	if err != nil {
		return nil, fmt.Errorf("store: insert audit: %w", err)
	}
	return entry, nil
}

// GetAuditLogs returns up to limit records, newest first. Records written in
// the same instant keep insertion order reversed.
func (db *DB) GetAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		return []models.AuditLog{}, nil
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc FROM audit_log ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: audit logs: %w", err)
	}
	defer rows.Close()

	out := []models.AuditLog{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var entry models.AuditLog
		if err := json.Unmarshal([]byte(doc), &entry); err != nil {
			return nil, fmt.Errorf("store: decode audit: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ClearAuditLogs removes every audit record.
func (db *DB) ClearAuditLogs(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM audit_log`); err != nil {
		return fmt.Errorf("store: clear audit: %w", err)
	}
	return nil
}
