// Package settings persists the user-facing settings record in the synced
// data area and applies fixed defaults for anything missing.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quest/internal/catalog"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/storage"
)

const recordKey = "settings.json"

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Defaults returns the record used when nothing has been persisted.
func Defaults() models.Settings {
	return models.Settings{
		Theme:             "light",
		ArchiveDays:       30,
		ReminderTime:      "09:00",
		DefaultCategory:   models.DefaultCategory,
		SummaryProvider:   models.ProviderGemini,
		OpenAIModel:       catalog.DefaultOpenAIModel,
		GeminiModel:       catalog.DefaultGeminiModel,
		TTSProvider:       models.ProviderGemini,
		ElevenLabsModel:   catalog.DefaultElevenLabsModel,
		ElevenLabsVoiceID: catalog.DefaultElevenLabsVoiceID,
		GeminiTTSModel:    catalog.DefaultGeminiTTSModel,
		GeminiTTSVoice:    catalog.DefaultGeminiTTSVoice,
	}
}

// Validate checks a settings record.
func Validate(s *models.Settings) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Theme, validation.In("light", "dark", "auto")),
		validation.Field(&s.ArchiveDays, validation.Min(1), validation.Max(3650)),
		validation.Field(&s.ReminderTime, validation.Match(clockRe)),
		validation.Field(&s.SummaryProvider, validation.In(models.ProviderOpenAI, models.ProviderGemini)),
		validation.Field(&s.TTSProvider, validation.In(models.ProviderElevenLabs, models.ProviderGemini)),
	)
}

// fillDefaults replaces empty values with their defaults.
func fillDefaults(s *models.Settings) {
	d := Defaults()
	setString := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	setString(&s.Theme, d.Theme)
	setString(&s.ReminderTime, d.ReminderTime)
	setString(&s.DefaultCategory, d.DefaultCategory)
	setString(&s.OpenAIModel, d.OpenAIModel)
	setString(&s.GeminiModel, d.GeminiModel)
	setString(&s.ElevenLabsModel, d.ElevenLabsModel)
	setString(&s.ElevenLabsVoiceID, d.ElevenLabsVoiceID)
	setString(&s.GeminiTTSModel, d.GeminiTTSModel)
	setString(&s.GeminiTTSVoice, d.GeminiTTSVoice)
	if s.ArchiveDays <= 0 {
		s.ArchiveDays = d.ArchiveDays
	}
	if s.SummaryProvider == "" {
		s.SummaryProvider = d.SummaryProvider
	}
	if s.TTSProvider == "" {
		s.TTSProvider = d.TTSProvider
	}
}

// Store reads and writes the settings record.
type Store struct {
	area storage.Provider
}

// NewStore creates a settings store over the synced area.
func NewStore(area storage.Provider) *Store {
	return &Store{area: area}
}

// Load returns the persisted record merged over the defaults.
func (s *Store) Load(_ context.Context) (models.Settings, error) {
	out := Defaults()
	data, err := s.area.Read(recordKey)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("settings: read: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Defaults(), fmt.Errorf("settings: decode: %w", err)
	}
	fillDefaults(&out)
	return out, nil
}

// Save validates and persists the full record.
func (s *Store) Save(_ context.Context, rec models.Settings) (models.Settings, error) {
	fillDefaults(&rec)
	if err := Validate(&rec); err != nil {
		return rec, err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return rec, fmt.Errorf("settings: encode: %w", err)
	}
	if err := s.area.Write(recordKey, data); err != nil {
		return rec, fmt.Errorf("settings: write: %w", err)
	}
	return rec, nil
}
