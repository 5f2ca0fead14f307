package generation

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/audio"
	"github.com/starford/quest/internal/catalog"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/providers"
)

// speechChoice is the model and voice used for one synthesis call.
type speechChoice struct {
	model string
	voice string
}

func resolveSpeech(p models.Provider, rec models.Settings) speechChoice {
	var c speechChoice
	switch p {
	case models.ProviderElevenLabs:
		c = speechChoice{model: rec.ElevenLabsModel, voice: rec.ElevenLabsVoiceID}
		if c.model == "" {
			c.model = catalog.DefaultElevenLabsModel
		}
		if c.voice == "" {
			c.voice = catalog.DefaultElevenLabsVoiceID
		}
	default:
		c = speechChoice{model: rec.GeminiTTSModel, voice: rec.GeminiTTSVoice}
		if c.model == "" {
			c.model = catalog.DefaultGeminiTTSModel
		}
		if c.voice == "" {
			c.voice = catalog.DefaultGeminiTTSVoice
		}
	}
	return c
}

// GeneratePodcast synthesizes speech for a summary of the article with id.
// With an empty summaryID a fresh extended summary is generated first.
// The article's audioId is set to the summary id.
func (s *Service) GeneratePodcast(ctx context.Context, articleID, summaryID string) (*models.AudioFile, error) {
	start := s.now()
	rec := s.loadSettings(ctx)
	p := rec.TTSProvider
	if p == "" {
		p = models.ProviderGemini
	}

	r := s.begin(models.ActionGeneratePodcast, articleID)
	f, err := s.generatePodcast(ctx, r, articleID, summaryID, p, rec)
	s.metrics.observe(models.ActionGeneratePodcast, p, err, s.now().Sub(start))
	if err == nil {
		s.metrics.addCost(p, f.EstimatedCost)
	}
	return f, err
}

func (s *Service) generatePodcast(ctx context.Context, r *request, articleID, summaryID string, p models.Provider, rec models.Settings) (*models.AudioFile, error) {
	r.enter(PhaseKeyLookup)
	key, err := s.keys.GetAPIKey(ctx, p)
	if err != nil {
		s.auditFailure(ctx, r, models.AuditDraft{
			Action:    models.ActionGeneratePodcast,
			Provider:  p,
			ArticleID: articleID,
		}, err)
		return nil, err
	}
	if key == "" {
		s.auditFailure(ctx, r, models.AuditDraft{
			Action:    models.ActionGeneratePodcast,
			Provider:  p,
			ArticleID: articleID,
			Error:     fmt.Sprintf("No API key configured for %s", p),
		}, nil)
		return nil, &apperr.MissingCredentialError{Provider: string(p), DisplayName: p.DisplayName()}
	}

	fail := func(err error) (*models.AudioFile, error) {
		s.auditFailure(ctx, r, models.AuditDraft{
			Action:    models.ActionGeneratePodcast,
			Provider:  p,
			ArticleID: articleID,
		}, err)
		return nil, err
	}

	r.enter(PhaseContentValidate)
	summary, err := s.podcastSummary(ctx, articleID, summaryID)
	if err != nil {
		return fail(err)
	}

	r.enter(PhaseProviderCall)
	choice := resolveSpeech(p, rec)
	synth, err := s.caps.Speech(p)
	if err != nil {
		return fail(err)
	}
	res, err := synth.Synthesize(ctx, providers.SpeechRequest{
		APIKey: key,
		Model:  choice.model,
		Voice:  choice.voice,
		Text:   summary.Content,
	})
	if err != nil {
		return fail(err)
	}

	chars := utf8.RuneCountInString(summary.Content)
	cost := catalog.SpeechCost(p, chars)
	duration, derr := audio.Duration(res.Audio)
	if derr != nil || duration <= 0 {
		r.logger.Debug("generation: duration probe failed, estimating", "error", fmt.Sprint(derr))
		duration = audio.EstimateDuration(chars)
	}

	r.enter(PhasePersist)
	f, err := s.store.SaveAudioFile(ctx, models.AudioFile{
		SummaryID:      summary.ID,
		Audio:          &models.AudioBlob{Data: res.Audio, MIMEType: res.MIMEType},
		Duration:       duration,
		GeneratedDate:  s.now(),
		Provider:       p,
		VoiceID:        choice.voice,
		CharacterCount: chars,
		EstimatedCost:  cost,
	})
	if err != nil {
		return fail(err)
	}

	if _, err := s.store.SetArticleAudio(ctx, articleID, summary.ID); err != nil {
		return fail(err)
	}

	r.enter(PhaseAuditLog)
	s.audit(ctx, models.AuditDraft{
		Action:    models.ActionGeneratePodcast,
		Provider:  p,
		Model:     choice.voice,
		ArticleID: articleID,
		Details: map[string]any{
			"summaryId":      summary.ID,
			"duration":       duration,
			"characterCount": chars,
			"estimatedCost":  cost,
			"voiceId":        choice.voice,
		},
	})
	r.enter(PhaseDone)
	return f, nil
}

// podcastSummary returns the named summary of the article, or generates a
// fresh extended one when summaryID is empty.
func (s *Service) podcastSummary(ctx context.Context, articleID, summaryID string) (*models.Summary, error) {
	if summaryID == "" {
		return s.GenerateSummary(ctx, articleID, models.SummaryExtended, "")
	}
	list, err := s.store.GetSummariesForArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == summaryID {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("summary %s of article %s: %w", summaryID, articleID, apperr.ErrNotFound)
}
