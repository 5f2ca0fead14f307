package api

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/store"
)

// invalid wraps a validation failure so it maps to 400.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
}

// SaveArticleRequest is the request body for saving an article.
type SaveArticleRequest = models.ArticleDraft

func validateDraft(d *SaveArticleRequest) error {
	return invalid(validation.ValidateStruct(d,
		validation.Field(&d.ActualURL, validation.Required, is.URL),
		validation.Field(&d.CleanURL, is.URL),
	))
}

// GenerateSummaryRequest is the request body for POST /articles/{id}/summaries.
type GenerateSummaryRequest struct {
	Kind     string `json:"kind" example:"concise"`
	Provider string `json:"provider,omitempty" example:"gemini"`
}

func (r GenerateSummaryRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.In("", string(models.SummaryConcise), string(models.SummaryExtended))),
		validation.Field(&r.Provider, validation.In("", string(models.ProviderOpenAI), string(models.ProviderGemini))),
	))
}

// GeneratePodcastRequest is the request body for POST /articles/{id}/podcast.
// An empty SummaryID generates a fresh extended summary first.
type GeneratePodcastRequest struct {
	SummaryID string `json:"summaryId,omitempty"`
}

// ReminderRequest is the request body for PUT /articles/{id}/reminder.
type ReminderRequest struct {
	ReminderTime time.Time `json:"reminderTime" validate:"required"`
}

func (r ReminderRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.ReminderTime, validation.Required),
	))
}

// CategoryRequest is the request body for POST /categories.
type CategoryRequest struct {
	Name  string `json:"name" example:"Research" validate:"required"`
	Color string `json:"color,omitempty" example:"#3366ff"`
}

func (r CategoryRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Color, is.HexColor),
	))
}

// APIKeyRequest is the request body for PUT /credentials/{provider}.
type APIKeyRequest struct {
	APIKey string `json:"apiKey" validate:"required"`
}

func (r APIKeyRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.APIKey, validation.Required),
	))
}

// TestKeyRequest is the body for POST /credentials/{provider}/test.
// An empty APIKey tests the stored key.
type TestKeyRequest struct {
	APIKey  string `json:"apiKey,omitempty"`
	VoiceID string `json:"voiceId,omitempty"`
}

// TestKeyResponse reports the outcome of a key probe.
type TestKeyResponse struct {
	Valid bool `json:"valid"`
}

// ArticleListResponse wraps article listings.
type ArticleListResponse struct {
	Articles []models.Article `json:"articles" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}
