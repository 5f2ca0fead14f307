package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

// SaveSummary inserts s, filling id, kind, provider and generation time when
// empty, then appends its id to the owning article's summary list. A missing
// owning article is tolerated.
func (db *DB) SaveSummary(ctx context.Context, s models.Summary) (*models.Summary, error) {
	if strings.TrimSpace(s.ArticleID) == "" {
		return nil, fmt.Errorf("summary article id is required: %w", apperr.ErrInvalidInput)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Kind == "" {
		s.Kind = models.SummaryConcise
	}
	if s.Provider == "" {
		s.Provider = models.ProviderOpenAI
	}
	if s.GeneratedDate.IsZero() {
		s.GeneratedDate = db.now()
	}

	doc, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("store: encode summary: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO summaries (id, article_id, generated_date, provider, kind, doc)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.ArticleID, formatTime(s.GeneratedDate), string(s.Provider), string(s.Kind), string(doc))
	if err != nil {
		var sqErr sqlite3.Error
		if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
			return nil, fmt.Errorf("summary %s: %w", s.ID, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("store: insert summary: %w", err)
	}

	_, err = db.mutateArticle(ctx, s.ArticleID, func(_ *sql.Tx, a *models.Article) error {
		if !slices.Contains(a.SummaryIDs, s.ID) {
			a.SummaryIDs = append(a.SummaryIDs, s.ID)
		}
		return nil
	})
	if err != nil {
		return &s, err
	}
	return &s, nil
}

func (db *DB) querySummaries(ctx context.Context, query string, args ...any) ([]models.Summary, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query summaries: %w", err)
	}
	defer rows.Close()

	out := []models.Summary{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var s models.Summary
		if err := json.Unmarshal([]byte(doc), &s); err != nil {
			return nil, fmt.Errorf("store: decode summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSummary returns the summary with id, or nil when absent.
func (db *DB) GetSummary(ctx context.Context, id string) (*models.Summary, error) {
	list, err := db.querySummaries(ctx, `SELECT doc FROM summaries WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// GetSummariesForArticle returns the summaries owned by articleID, oldest first.
func (db *DB) GetSummariesForArticle(ctx context.Context, articleID string) ([]models.Summary, error) {
	return db.querySummaries(ctx, `SELECT doc FROM summaries WHERE article_id = ? ORDER BY generated_date`, articleID)
}

// GetAllSummaries returns every summary, newest first.
func (db *DB) GetAllSummaries(ctx context.Context) ([]models.Summary, error) {
	return db.querySummaries(ctx, `SELECT doc FROM summaries ORDER BY generated_date DESC`)
}
