package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

const (
	defaultTitle       = "Untitled"
	defaultReadingTime = "0 min"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// domainOf derives the display domain from a page URL.
func domainOf(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("store: derive domain from %q: %w", raw, apperr.ErrInvalidURL)
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), nil
}

// normalizeTags trims names, drops empties and removes duplicates, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func putArticle(ctx context.Context, ex execer, a *models.Article) error {
	a.SummaryIDs = nonNil(a.SummaryIDs)
	a.Organization.Tags = nonNil(a.Organization.Tags)
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("store: encode article: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO articles (id, clean_url, domain, date_added, category, is_read, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			clean_url  = excluded.clean_url,
			domain     = excluded.domain,
			date_added = excluded.date_added,
			category   = excluded.category,
			is_read    = excluded.is_read,
			doc        = excluded.doc
	`, a.ID, a.CleanURL, a.Domain, formatTime(a.Timestamps.DateAdded), a.Organization.Category,
		a.Organization.IsRead, string(doc))
	if err != nil {
		return fmt.Errorf("store: put article: %w", err)
	}
	return ftsUpsert(ctx, ex, a.ID, a.Title, a.Content)
}

func scanArticle(row interface{ Scan(...any) error }) (*models.Article, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		return nil, err
	}
	var a models.Article
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("store: decode article: %w", err)
	}
	a.SummaryIDs = nonNil(a.SummaryIDs)
	a.Organization.Tags = nonNil(a.Organization.Tags)
	return &a, nil
}

func getArticle(ctx context.Context, q queryer, query string, arg any) (*models.Article, error) {
	a, err := scanArticle(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get article: %w", err)
	}
	return a, nil
}

// SaveArticle stores a new article. When an article with the same clean URL
// already exists it is returned unchanged and created is false.
func (db *DB) SaveArticle(ctx context.Context, d models.ArticleDraft) (a *models.Article, created bool, err error) {
	domain, err := domainOf(d.ActualURL)
	if err != nil {
		return nil, false, err
	}
	cleanURL := d.CleanURL
	if cleanURL == "" {
		cleanURL = d.ActualURL
	}

	now := db.now()
	a = &models.Article{
		ID:           uuid.NewString(),
		CleanURL:     cleanURL,
		ActualURL:    d.ActualURL,
		Title:        strings.TrimSpace(d.Title),
		Domain:       domain,
		Content:      d.Content,
		Favicon:      d.Favicon,
		Metadata:     d.Metadata,
		Organization: d.Organization,
		Timestamps:   models.Timestamps{DateAdded: now, LastAccessed: now},
		Workflow:     d.Workflow,
	}
	if a.Title == "" {
		a.Title = defaultTitle
	}
	if a.Metadata.ReadingTime == "" {
		a.Metadata.ReadingTime = defaultReadingTime
	}
	if a.Organization.Category == "" {
		a.Organization.Category = models.DefaultCategory
	}
	a.Organization.Tags = normalizeTags(a.Organization.Tags)
	if a.Organization.IsRead {
		a.Timestamps.DateRead = &now
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := getArticle(ctx, tx, `SELECT doc FROM articles WHERE clean_url = ? LIMIT 1`, cleanURL)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if err := putArticle(ctx, tx, a); err != nil {
		return nil, false, err
	}
	if err := adjustTagsTx(ctx, tx, nil, a.Organization.Tags); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("store: commit article: %w", err)
	}
	return a, true, nil
}

// GetArticle returns the article with id, or nil when absent.
func (db *DB) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	return getArticle(ctx, db.conn, `SELECT doc FROM articles WHERE id = ?`, id)
}

// GetArticleByCleanURL returns the article saved under cleanURL, or nil when absent.
func (db *DB) GetArticleByCleanURL(ctx context.Context, cleanURL string) (*models.Article, error) {
	return getArticle(ctx, db.conn, `SELECT doc FROM articles WHERE clean_url = ? LIMIT 1`, cleanURL)
}

// GetAllArticles returns every article, newest first.
func (db *DB) GetAllArticles(ctx context.Context) ([]models.Article, error) {
	return db.ListArticles(ctx, models.ArticleFilter{})
}

// ListArticles returns the articles matching f, newest first.
func (db *DB) ListArticles(ctx context.Context, f models.ArticleFilter) ([]models.Article, error) {
	var where []string
	var args []any
	if f.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, f.Category)
	}
	if f.Domain != "" {
		where = append(where, `domain = ?`)
		args = append(args, f.Domain)
	}
	switch f.Status {
	case models.ReadStatusRead:
		where = append(where, `is_read = 1`)
	case models.ReadStatusUnread:
		where = append(where, `is_read = 0`)
	}
	if f.Archived != nil {
		where = append(where, `json_extract(doc, '$.organization.isArchived') = ?`)
		args = append(args, *f.Archived)
	}
	if f.Pinned != nil {
		where = append(where, `json_extract(doc, '$.organization.isPinned') = ?`)
		args = append(args, *f.Pinned)
	}
	if f.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(articles.doc, '$.organization.tags') WHERE value = ?)`)
		args = append(args, f.Tag)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		clause, qargs := searchClause(q)
		where = append(where, clause)
		args = append(args, qargs...)
	}

	query := `SELECT doc FROM articles`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY date_added DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list articles: %w", err)
	}
	defer rows.Close()

	out := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateArticle merges p into the article with id and refreshes lastAccessed.
// Tag usage counts change in the same transaction as the article.
func (db *DB) UpdateArticle(ctx context.Context, id string, p models.ArticlePatch) (*models.Article, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	a, err := getArticle(ctx, tx, `SELECT doc FROM articles WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}

	oldTags := a.Organization.Tags
	now := db.now()
	if err := applyPatch(a, p, now); err != nil {
		return nil, err
	}
	a.Timestamps.LastAccessed = now

	if err := putArticle(ctx, tx, a); err != nil {
		return nil, err
	}
	if p.Organization != nil && p.Organization.Tags != nil {
		removed, added := diffTags(oldTags, a.Organization.Tags)
		if err := adjustTagsTx(ctx, tx, removed, added); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit article: %w", err)
	}
	return a, nil
}

func applyPatch(a *models.Article, p models.ArticlePatch, now time.Time) error {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.ActualURL != nil {
		domain, err := domainOf(*p.ActualURL)
		if err != nil {
			return err
		}
		a.ActualURL, a.Domain = *p.ActualURL, domain
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Favicon != nil {
		a.Favicon = *p.Favicon
	}
	if m := p.Metadata; m != nil {
		setIf(&a.Metadata.Author, m.Author)
		setIf(&a.Metadata.PublishDate, m.PublishDate)
		setIf(&a.Metadata.WordCount, m.WordCount)
		setIf(&a.Metadata.ReadingTime, m.ReadingTime)
	}
	if o := p.Organization; o != nil {
		setIf(&a.Organization.Category, o.Category)
		setIf(&a.Organization.IsPinned, o.IsPinned)
		setIf(&a.Organization.IsArchived, o.IsArchived)
		if o.IsRead != nil {
			if *o.IsRead && !a.Organization.IsRead && a.Timestamps.DateRead == nil {
				a.Timestamps.DateRead = &now
			}
			a.Organization.IsRead = *o.IsRead
		}
		if o.Tags != nil {
			a.Organization.Tags = normalizeTags(o.Tags)
		}
	}
	if ts := p.Timestamps; ts != nil && ts.DateRead != nil {
		a.Timestamps.DateRead = ts.DateRead
	}
	if w := p.Workflow; w != nil {
		setIf(&a.Workflow.ReminderScheduled, w.ReminderScheduled)
		if w.ReminderTime != nil {
			a.Workflow.ReminderTime = w.ReminderTime
		}
		setIf(&a.Workflow.CleanupEligible, w.CleanupEligible)
		setIf(&a.Workflow.ProtectedFromCleanup, w.ProtectedFromCleanup)
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// diffTags returns the tags only in old and the tags only in cur.
func diffTags(old, cur []string) (removed, added []string) {
	oldSet := make(map[string]struct{}, len(old))
	for _, t := range old {
		oldSet[t] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(cur))
	for _, t := range cur {
		curSet[t] = struct{}{}
		if _, ok := oldSet[t]; !ok {
			added = append(added, t)
		}
	}
	for _, t := range old {
		if _, ok := curSet[t]; !ok {
			removed = append(removed, t)
		}
	}
	return removed, added
}

// DeleteArticle removes the article with id after cascading to its summaries,
// their audio, its tag memberships and its reminder. Summaries and audio go
// first and are not rolled back if the final step fails.
func (db *DB) DeleteArticle(ctx context.Context, id string) error {
	a, err := db.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}

	summaries, err := db.GetSummariesForArticle(ctx, id)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		if err := db.deleteAudioForSummary(ctx, s.ID); err != nil {
			return err
		}
		if _, err := db.conn.ExecContext(ctx, `DELETE FROM summaries WHERE id = ?`, s.ID); err != nil {
			return fmt.Errorf("store: delete summary %s: %w", s.ID, err)
		}
	}

	return db.deleteArticleRow(ctx, id)
}

// deleteArticleRow drops the tag memberships, the reminder and the row of
// the article in one transaction. The tags are re-read inside it so a
// concurrent update cannot leave counts behind.
func (db *DB) deleteArticleRow(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	a, err := getArticle(ctx, tx, `SELECT doc FROM articles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}
	if err := adjustTagsTx(ctx, tx, a.Organization.Tags, nil); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE article_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete reminder: %w", err)
	}
	if err := ftsDelete(ctx, tx, id); err != nil {
		return fmt.Errorf("store: delete fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete article: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit delete: %w", err)
	}
	return nil
}

// mutateArticle applies fn to the stored article inside one transaction and
// refreshes lastAccessed. It returns nil, nil when the article is absent.
func (db *DB) mutateArticle(ctx context.Context, id string, fn func(tx *sql.Tx, a *models.Article) error) (*models.Article, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	a, err := getArticle(ctx, tx, `SELECT doc FROM articles WHERE id = ?`, id)
	if err != nil || a == nil {
		return nil, err
	}
	if err := fn(tx, a); err != nil {
		return nil, err
	}
	a.Timestamps.LastAccessed = db.now()
	if err := putArticle(ctx, tx, a); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit article: %w", err)
	}
	return a, nil
}
