package generation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/catalog"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/prompt"
	"github.com/starford/quest/internal/providers"
)

// resolveTextProvider picks the explicit provider, then the configured one,
// then Gemini.
func resolveTextProvider(explicit models.Provider, rec models.Settings) models.Provider {
	switch {
	case explicit != "":
		return explicit
	case rec.SummaryProvider != "":
		return rec.SummaryProvider
	default:
		return models.ProviderGemini
	}
}

func textModel(p models.Provider, rec models.Settings) string {
	var m string
	switch p {
	case models.ProviderOpenAI:
		m = rec.OpenAIModel
	case models.ProviderGemini:
		m = rec.GeminiModel
	}
	if m == "" {
		m = catalog.DefaultModel(p)
	}
	return m
}

// GenerateSummary summarizes the article with id. An empty provider selects
// the configured summary provider.
//
// Content length is checked before the credential lookup, and neither an
// absent article nor short content writes an audit record. Every later
// failure is audited before it is returned.
func (s *Service) GenerateSummary(ctx context.Context, articleID string, kind models.SummaryKind, provider models.Provider) (*models.Summary, error) {
	start := s.now()
	if kind == "" {
		kind = models.SummaryConcise
	}
	rec := s.loadSettings(ctx)
	p := resolveTextProvider(provider, rec)
	if !p.GeneratesText() {
		return nil, fmt.Errorf("generation: %s cannot generate summaries: %w", p, apperr.ErrInvalidInput)
	}

	r := s.begin(models.ActionGenerateSummary, articleID)
	sum, err := s.generateSummary(ctx, r, articleID, kind, p, rec)
	s.metrics.observe(models.ActionGenerateSummary, p, err, s.now().Sub(start))
	if err == nil {
		s.metrics.addCost(p, sum.EstimatedCost)
	}
	return sum, err
}

func (s *Service) generateSummary(ctx context.Context, r *request, articleID string, kind models.SummaryKind, p models.Provider, rec models.Settings) (*models.Summary, error) {
	r.enter(PhaseContentValidate)
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, fmt.Errorf("article %s: %w", articleID, apperr.ErrNotFound)
	}
	content := strings.TrimSpace(article.Content)
	if n := utf8.RuneCountInString(content); n < MinContentLength {
		r.enter(PhaseFailed)
		return nil, &apperr.ContentTooShortError{Length: n}
	}

	r.enter(PhaseKeyLookup)
	key, err := s.keys.GetAPIKey(ctx, p)
	if err != nil {
		s.auditFailure(ctx, r, models.AuditDraft{
			Action:    models.ActionGenerateSummary,
			Provider:  p,
			ArticleID: articleID,
		}, err)
		return nil, err
	}
	if key == "" {
		s.auditFailure(ctx, r, models.AuditDraft{
			Action:    models.ActionGenerateSummary,
			Provider:  p,
			ArticleID: articleID,
			Error:     fmt.Sprintf("No API key configured for %s", p),
		}, nil)
		return nil, &apperr.MissingCredentialError{Provider: string(p), DisplayName: p.DisplayName()}
	}

	model := textModel(p, rec)
	fail := func(err error) (*models.Summary, error) {
		s.auditFailure(ctx, r, models.AuditDraft{
			Action:    models.ActionGenerateSummary,
			Provider:  p,
			Model:     model,
			ArticleID: articleID,
		}, err)
		return nil, err
	}

	r.enter(PhaseProviderCall)
	gen, err := s.caps.Text(p)
	if err != nil {
		return fail(err)
	}
	res, err := gen.GenerateText(ctx, providers.TextRequest{
		APIKey: key,
		Model:  model,
		Prompt: prompt.Build(kind, article.Content),
	})
	if err != nil {
		return fail(err)
	}
	cost := catalog.CalculateCost(p, model, res.InputTokens, res.OutputTokens)

	r.enter(PhasePersist)
	sum, err := s.store.SaveSummary(ctx, models.Summary{
		ArticleID:     articleID,
		Content:       res.Text,
		Kind:          kind,
		Provider:      p,
		Model:         model,
		GeneratedDate: s.now(),
		InputTokens:   res.InputTokens,
		OutputTokens:  res.OutputTokens,
		TotalTokens:   res.TotalTokens,
		EstimatedCost: cost,
	})
	if err != nil {
		return fail(err)
	}

	r.enter(PhaseAuditLog)
	s.audit(ctx, models.AuditDraft{
		Action:    models.ActionGenerateSummary,
		Provider:  p,
		Model:     model,
		ArticleID: articleID,
		Details: map[string]any{
			"type":          string(kind),
			"inputTokens":   res.InputTokens,
			"outputTokens":  res.OutputTokens,
			"totalTokens":   res.TotalTokens,
			"estimatedCost": cost,
		},
	})
	r.enter(PhaseDone)
	return sum, nil
}
