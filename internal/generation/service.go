// Package generation orchestrates summary and podcast generation: it loads
// the article, resolves provider and credential, calls the provider, persists
// the result and records an audit entry for every attempt.
package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/providers"
)

// Store is the part of the entity store the orchestrator needs.
type Store interface {
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	SaveSummary(ctx context.Context, s models.Summary) (*models.Summary, error)
	GetSummariesForArticle(ctx context.Context, articleID string) ([]models.Summary, error)
	SaveAudioFile(ctx context.Context, f models.AudioFile) (*models.AudioFile, error)
	SetArticleAudio(ctx context.Context, articleID, summaryID string) (*models.Article, error)
	LogAudit(ctx context.Context, d models.AuditDraft) (*models.AuditLog, error)
	GetAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// Keys resolves provider credentials. An empty key means not configured.
type Keys interface {
	GetAPIKey(ctx context.Context, p models.Provider) (string, error)
}

// Settings loads the user settings record.
type Settings interface {
	Load(ctx context.Context) (models.Settings, error)
}

// Capabilities selects provider implementations.
type Capabilities interface {
	Text(p models.Provider) (providers.TextGenerator, error)
	Speech(p models.Provider) (providers.SpeechSynthesizer, error)
}

// Phase is a step of one generation request.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseKeyLookup       Phase = "key_lookup"
	PhaseContentValidate Phase = "content_validate"
	PhaseProviderCall    Phase = "provider_call"
	PhasePersist         Phase = "persist"
	PhaseAuditLog        Phase = "audit_log"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// MinContentLength is the minimum trimmed article length, in characters,
// that can be summarized.
const MinContentLength = 50

// Service is the generation orchestrator.
type Service struct {
	store    Store
	keys     Keys
	settings Settings
	caps     Capabilities
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records request counters and latencies on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service.
func New(store Store, keys Keys, settings Settings, caps Capabilities, opts ...Option) *Service {
	s := &Service{
		store:    store,
		keys:     keys,
		settings: settings,
		caps:     caps,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// request tracks the phase of one generation call for logs and failure audits.
type request struct {
	op        string
	articleID string
	phase     Phase
	logger    *slog.Logger
}

func (s *Service) begin(op, articleID string) *request {
	r := &request{op: op, articleID: articleID, phase: PhaseIdle,
		logger: s.logger.With(slog.String("operation", op), slog.String("article_id", articleID))}
	r.logger.Debug("generation: start")
	return r
}

func (r *request) enter(p Phase) {
	r.logger.Debug("generation: phase", slog.String("from", string(r.phase)), slog.String("to", string(p)))
	r.phase = p
}

// loadSettings falls back to the zero record when loading fails; callers
// apply their own defaults per field.
func (s *Service) loadSettings(ctx context.Context) models.Settings {
	rec, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Warn("generation: settings unavailable, using defaults", slog.String("error", err.Error()))
	}
	return rec
}

// audit writes d and swallows any failure so it can never mask the caller's result.
func (s *Service) audit(ctx context.Context, d models.AuditDraft) {
	if _, err := s.store.LogAudit(ctx, d); err != nil {
		s.logger.Error("generation: audit write failed",
			slog.String("action", d.Action), slog.String("error", err.Error()))
	}
}

func (s *Service) auditFailure(ctx context.Context, r *request, d models.AuditDraft, err error) {
	failed := false
	d.Success = &failed
	if d.Error == "" {
		d.Error = err.Error()
	}
	if d.Details == nil {
		d.Details = map[string]any{}
	}
	d.Details["phase"] = string(r.phase)
	r.logger.Warn("generation: failed", slog.String("phase", string(r.phase)), slog.String("error", d.Error))
	r.enter(PhaseAuditLog)
	s.audit(ctx, d)
	r.enter(PhaseFailed)
}
