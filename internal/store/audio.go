package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/audio"
	"github.com/starford/quest/internal/models"
)

// checkPayload rejects payloads that cannot be persisted as audio.
func checkPayload(b *models.AudioBlob) error {
	if b == nil {
		return apperr.InvalidAudio("audio payload is missing")
	}
	if mt := strings.ToLower(b.MIMEType); mt != "" && !strings.HasPrefix(mt, "audio/") && mt != "application/octet-stream" {
		return apperr.InvalidAudio(fmt.Sprintf("audio payload has non-audio type %q", b.MIMEType))
	}
	if len(b.Data) == 0 {
		return apperr.InvalidAudio("audio payload is empty")
	}
	return nil
}

// SaveAudioFile persists f and a private copy of its payload bytes.
func (db *DB) SaveAudioFile(ctx context.Context, f models.AudioFile) (*models.AudioFile, error) {
	if err := checkPayload(f.Audio); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.SummaryID) == "" {
		return nil, fmt.Errorf("audio summary id is required: %w", apperr.ErrInvalidInput)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.GeneratedDate.IsZero() {
		f.GeneratedDate = db.now()
	}
	if f.Provider == "" {
		f.Provider = models.ProviderElevenLabs
	}
	payload := append([]byte(nil), f.Audio.Data...)
	f.MIMEType = audio.DetectMIME(payload)
	f.Size = len(payload)

	doc, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("store: encode audio: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO audio_files (id, summary_id, generated_date, duration, payload, doc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			summary_id     = excluded.summary_id,
			generated_date = excluded.generated_date,
			duration       = excluded.duration,
			payload        = excluded.payload,
			doc            = excluded.doc
	`, f.ID, f.SummaryID, formatTime(f.GeneratedDate), f.Duration, payload, string(doc))
	if err != nil {
		return nil, fmt.Errorf("store: put audio: %w", err)
	}
	f.Audio = &models.AudioBlob{Data: payload, MIMEType: f.MIMEType}
	return &f, nil
}

// GetAudioFileBySummaryID returns the newest audio for summaryID with its
// payload rebuilt from the stored bytes. It returns nil when no row exists or
// the stored payload is absent or empty.
func (db *DB) GetAudioFileBySummaryID(ctx context.Context, summaryID string) (*models.AudioFile, error) {
	var doc string
	var payload []byte
	err := db.conn.QueryRowContext(ctx, `
		SELECT doc, payload FROM audio_files
		WHERE summary_id = ?
		ORDER BY generated_date DESC
		LIMIT 1
	`, summaryID).Scan(&doc, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get audio: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}
	var f models.AudioFile
	if err := json.Unmarshal([]byte(doc), &f); err != nil {
		return nil, fmt.Errorf("store: decode audio: %w", err)
	}
	f.MIMEType = audio.DetectMIME(payload)
	f.Size = len(payload)
	f.Audio = &models.AudioBlob{Data: payload, MIMEType: f.MIMEType}
	return &f, nil
}

// GetAllAudioFiles returns metadata for every audio file, newest first.
// Payloads are not loaded.
func (db *DB) GetAllAudioFiles(ctx context.Context) ([]models.AudioFile, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT doc FROM audio_files ORDER BY generated_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: all audio: %w", err)
	}
	defer rows.Close()

	out := []models.AudioFile{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var f models.AudioFile
		if err := json.Unmarshal([]byte(doc), &f); err != nil {
			return nil, fmt.Errorf("store: decode audio: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (db *DB) deleteAudioForSummary(ctx context.Context, summaryID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM audio_files WHERE summary_id = ?`, summaryID); err != nil {
		return fmt.Errorf("store: delete audio for summary %s: %w", summaryID, err)
	}
	return nil
}

// SetArticleAudio points the article's audio reference at summaryID. It fails
// with ErrNotFound when no playable audio is stored for that summary and
// returns nil, nil when the article is absent.
func (db *DB) SetArticleAudio(ctx context.Context, articleID, summaryID string) (*models.Article, error) {
	return db.mutateArticle(ctx, articleID, func(tx *sql.Tx, a *models.Article) error {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM audio_files WHERE summary_id = ? AND length(payload) > 0`, summaryID).Scan(&n)
		if err != nil {
			return fmt.Errorf("store: check audio: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("audio for summary %s: %w", summaryID, apperr.ErrNotFound)
		}
		a.AudioID = summaryID
		return nil
	})
}
