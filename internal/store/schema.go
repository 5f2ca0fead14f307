// Package store is the SQLite-backed entity store for articles, summaries,
// audio, categories, tags, reminders and audit records.
//
// Tables are flat and keyed by id. Relations between articles, summaries and
// audio files are plain id references kept consistent by the store's own
// cascade code; the schema declares no foreign keys.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaVersion = 1

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS articles (
	id         TEXT PRIMARY KEY,
	clean_url  TEXT NOT NULL,
	domain     TEXT NOT NULL DEFAULT '',
	date_added TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	is_read    INTEGER NOT NULL DEFAULT 0,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_clean_url  ON articles(clean_url);
CREATE INDEX IF NOT EXISTS idx_articles_domain     ON articles(domain);
CREATE INDEX IF NOT EXISTS idx_articles_date_added ON articles(date_added);
CREATE INDEX IF NOT EXISTS idx_articles_category   ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_is_read    ON articles(is_read);

CREATE TABLE IF NOT EXISTS summaries (
	id             TEXT PRIMARY KEY,
	article_id     TEXT NOT NULL,
	generated_date TEXT NOT NULL,
	provider       TEXT NOT NULL DEFAULT '',
	kind           TEXT NOT NULL DEFAULT '',
	doc            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_article_id     ON summaries(article_id);
CREATE INDEX IF NOT EXISTS idx_summaries_generated_date ON summaries(generated_date);
CREATE INDEX IF NOT EXISTS idx_summaries_provider       ON summaries(provider);
CREATE INDEX IF NOT EXISTS idx_summaries_kind           ON summaries(kind);

CREATE TABLE IF NOT EXISTS audio_files (
	id             TEXT PRIMARY KEY,
	summary_id     TEXT NOT NULL,
	generated_date TEXT NOT NULL,
	duration       REAL NOT NULL DEFAULT 0,
	payload        BLOB,
	doc            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audio_files_summary_id     ON audio_files(summary_id);
CREATE INDEX IF NOT EXISTS idx_audio_files_generated_date ON audio_files(generated_date);
CREATE INDEX IF NOT EXISTS idx_audio_files_duration       ON audio_files(duration);

CREATE TABLE IF NOT EXISTS categories (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_categories_name  ON categories(name);
CREATE INDEX IF NOT EXISTS idx_categories_color ON categories(color);

CREATE TABLE IF NOT EXISTS tags (
	name        TEXT PRIMARY KEY,
	usage_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tags_usage_count ON tags(usage_count);

CREATE TABLE IF NOT EXISTS reminders (
	article_id    TEXT PRIMARY KEY,
	reminder_time TEXT NOT NULL,
	created       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reminders_reminder_time ON reminders(reminder_time);
CREATE INDEX IF NOT EXISTS idx_reminders_created       ON reminders(created);

CREATE TABLE IF NOT EXISTS audit_log (
	id        TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	action    TEXT NOT NULL,
	provider  TEXT NOT NULL DEFAULT '',
	doc       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_log_action    ON audit_log(action);
CREATE INDEX IF NOT EXISTS idx_audit_log_provider  ON audit_log(provider);
`

// timeLayout is fixed-width so that indexed text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

// DB wraps a sql.DB with entity-store operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the time source used for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// Open opens (or creates) the SQLite database and applies the schema.
// Transactions take the write lock up front so that read-then-write
// sequences do not fail with SQLITE_BUSY under concurrent writers.
func Open(dsn string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	db := &DB{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("store: schema version %d is newer than supported %d", version, schemaVersion)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		return fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		return fmt.Errorf("store: apply fts schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("store: set schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
