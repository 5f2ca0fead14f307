package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/quest/internal/generation"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/sse"
	"github.com/starford/quest/internal/store"
	"github.com/starford/quest/internal/transfer"
)

// Generator runs the AI generation pipeline.
type Generator interface {
	GenerateSummary(ctx context.Context, articleID string, kind models.SummaryKind, provider models.Provider) (*models.Summary, error)
	GeneratePodcast(ctx context.Context, articleID, summaryID string) (*models.AudioFile, error)
	TestAPIKey(ctx context.Context, p models.Provider, key, voiceID string) bool
	UsageStats(ctx context.Context) (*generation.Usage, error)
}

// Credentials manages provider API keys.
type Credentials interface {
	SetAPIKey(ctx context.Context, p models.Provider, key string) error
	GetAPIKey(ctx context.Context, p models.Provider) (string, error)
	RemoveAPIKey(ctx context.Context, p models.Provider) error
	Configured(ctx context.Context) (map[models.Provider]bool, error)
}

// Settings reads and writes the settings record.
type Settings interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, rec models.Settings) (models.Settings, error)
}

// Transfer imports and exports the library.
type Transfer interface {
	Export(ctx context.Context, f transfer.Format, includeContent bool) ([]byte, error)
	Import(ctx context.Context, data []byte, merge bool) (transfer.Result, error)
}

// Events publishes change notifications.
type Events interface {
	Publish(e sse.Event)
	PublishArticle(eventType, id string)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store       store.Repository
	Generator   Generator
	Credentials Credentials
	Settings    Settings
	Transfer    Transfer
	Events      Events
	Logger      *slog.Logger
	Now         func() time.Time
}

// Handler holds API route handlers.
type Handler struct {
	store    store.Repository
	gen      Generator
	keys     Credentials
	settings Settings
	transfer Transfer
	events   Events
	logger   *slog.Logger
	now      func() time.Time

	background sync.WaitGroup
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		store:    d.Store,
		gen:      d.Generator,
		keys:     d.Credentials,
		settings: d.Settings,
		transfer: d.Transfer,
		events:   d.Events,
		logger:   d.Logger,
		now:      d.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.events == nil {
		h.events = discard{}
	}
	return h
}

// Wait blocks until background generation started by requests has finished.
func (h *Handler) Wait() {
	h.background.Wait()
}

type discard struct{}

func (discard) Publish(sse.Event)             {}
func (discard) PublishArticle(string, string) {}

func (h *Handler) publishSummary(s *models.Summary) {
	h.events.Publish(sse.Event{Type: sse.SummaryCreated, Data: map[string]string{"id": s.ID, "articleId": s.ArticleID}})
	h.events.PublishArticle(sse.ArticleUpdated, s.ArticleID)
}

func (h *Handler) publishPodcast(articleID string, f *models.AudioFile) {
	h.events.Publish(sse.Event{Type: sse.PodcastCreated, Data: map[string]string{"id": f.ID, "summaryId": f.SummaryID, "articleId": articleID}})
	h.events.PublishArticle(sse.ArticleUpdated, articleID)
}

// autoGenerate runs the summary and podcast jobs enabled in settings for a
// newly saved article. Failures are logged only; the audit log records them.
func (h *Handler) autoGenerate(ctx context.Context, articleID string) {
	rec, err := h.settings.Load(ctx)
	if err != nil {
		h.logger.Warn("api: settings unavailable for auto generation", slog.String("error", err.Error()))
	}
	if !rec.AutoSummary && !rec.AutoPodcast {
		return
	}

	ctx = context.WithoutCancel(ctx)
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		log := h.logger.With(slog.String("article_id", articleID))
		if rec.AutoSummary {
			s, err := h.gen.GenerateSummary(ctx, articleID, models.SummaryConcise, "")
			if err != nil {
				log.Warn("api: auto summary failed", slog.String("error", err.Error()))
			} else {
				h.publishSummary(s)
			}
		}
		if rec.AutoPodcast {
			f, err := h.gen.GeneratePodcast(ctx, articleID, "")
			if err != nil {
				log.Warn("api: auto podcast failed", slog.String("error", err.Error()))
			} else {
				h.publishPodcast(articleID, f)
			}
		}
	}()
}
