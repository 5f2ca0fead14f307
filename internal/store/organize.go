package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

// SaveCategory creates a category with a new id.
func (db *DB) SaveCategory(ctx context.Context, name, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", apperr.ErrInvalidInput)
	}
	c := &models.Category{ID: uuid.NewString(), Name: name, Color: color}
	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (id, name, color) VALUES (?, ?, ?)`, c.ID, c.Name, c.Color); err != nil {
		return nil, fmt.Errorf("store: insert category: %w", err)
	}
	return c, nil
}

// GetAllCategories returns every category ordered by name.
func (db *DB) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: all categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveReminder sets the single reminder for articleID, replacing any existing one.
func (db *DB) SaveReminder(ctx context.Context, articleID string, at time.Time) (*models.Reminder, error) {
	r := &models.Reminder{ArticleID: articleID, ReminderTime: at.UTC(), Created: db.now().UTC()}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO reminders (article_id, reminder_time, created) VALUES (?, ?, ?)
		ON CONFLICT(article_id) DO UPDATE SET
			reminder_time = excluded.reminder_time,
			created       = excluded.created
	`, r.ArticleID, formatTime(r.ReminderTime), formatTime(r.Created))
	if err != nil {
		return nil, fmt.Errorf("store: put reminder: %w", err)
	}
	return r, nil
}

func scanReminder(row interface{ Scan(...any) error }) (*models.Reminder, error) {
	var r models.Reminder
	var at, created string
	if err := row.Scan(&r.ArticleID, &at, &created); err != nil {
		return nil, err
	}
	var err error
	if r.ReminderTime, err = parseTime(at); err != nil {
		return nil, fmt.Errorf("store: parse reminder time: %w", err)
	}
	if r.Created, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("store: parse reminder created: %w", err)
	}
	return &r, nil
}

// GetReminder returns the reminder for articleID, or nil when none is set.
func (db *DB) GetReminder(ctx context.Context, articleID string) (*models.Reminder, error) {
	r, err := scanReminder(db.conn.QueryRowContext(ctx,
		`SELECT article_id, reminder_time, created FROM reminders WHERE article_id = ?`, articleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get reminder: %w", err)
	}
	return r, nil
}

// DeleteReminder removes the reminder for articleID if one exists.
func (db *DB) DeleteReminder(ctx context.Context, articleID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM reminders WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("store: delete reminder: %w", err)
	}
	return nil
}

// DueReminders returns reminders whose time is at or before now, earliest first.
func (db *DB) DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT article_id, reminder_time, created FROM reminders
		WHERE reminder_time <= ?
		ORDER BY reminder_time
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("store: due reminders: %w", err)
	}
	defer rows.Close()

	out := []models.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
