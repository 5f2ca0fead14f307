package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/quest/internal/catalog"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/providers"
)

const probePrompt = "Test connection"

// TestAPIKey makes a minimal real call with key and reports whether it succeeded.
// voiceID applies to speech-only providers; empty selects the default voice.
// Errors are never returned.
func (s *Service) TestAPIKey(ctx context.Context, p models.Provider, key, voiceID string) bool {
	model := catalog.ProbeModel(p)
	ok := false
	var err error
	switch {
	case p.GeneratesText():
		var gen providers.TextGenerator
		if gen, err = s.caps.Text(p); err == nil {
			_, err = gen.GenerateText(ctx, providers.TextRequest{APIKey: key, Model: model, Prompt: probePrompt})
		}
		ok = err == nil
	case p.SynthesizesSpeech():
		if voiceID == "" {
			voiceID = resolveSpeech(p, models.Settings{}).voice
		}
		var sy providers.SpeechSynthesizer
		if sy, err = s.caps.Speech(p); err == nil {
			_, err = sy.Synthesize(ctx, providers.SpeechRequest{APIKey: key, Model: model, Voice: voiceID, Text: probePrompt})
		}
		ok = err == nil
	}
	if err != nil {
		s.logger.Info("generation: api key test failed", slog.String("provider", string(p)), slog.String("error", err.Error()))
	}
	return ok
}

// UsageTotals aggregates audited generation activity.
type UsageTotals struct {
	Requests      int     `json:"requests"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	Characters    int     `json:"characters"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// DayCount is the number of requests on one UTC day.
type DayCount struct {
	Date     string `json:"date"`
	Requests int    `json:"requests"`
}

// Usage is the usage report derived from the audit log.
type Usage struct {
	Total      UsageTotals                     `json:"total"`
	ByProvider map[models.Provider]UsageTotals `json:"byProvider"`
	Daily      []DayCount                      `json:"daily"`
}

const (
	usageDays     = 30
	usageScanSize = 10000
)

// UsageStats summarizes the most recent audit records.
func (s *Service) UsageStats(ctx context.Context) (*Usage, error) {
	logs, err := s.store.GetAuditLogs(ctx, usageScanSize)
	if err != nil {
		return nil, err
	}

	u := &Usage{ByProvider: make(map[models.Provider]UsageTotals)}
	today := s.now().UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -(usageDays - 1))
	daily := make(map[string]int, usageDays)

	for _, l := range logs {
		pt := u.ByProvider[l.Provider]
		for _, t := range []*UsageTotals{&u.Total, &pt} {
			t.Requests++
			if l.Success {
				t.Successful++
			} else {
				t.Failed++
			}
			t.InputTokens += detailInt(l.Details, "inputTokens")
			t.OutputTokens += detailInt(l.Details, "outputTokens")
			t.Characters += detailInt(l.Details, "characterCount")
			t.EstimatedCost += detailFloat(l.Details, "estimatedCost")
		}
		if l.Provider != "" {
			u.ByProvider[l.Provider] = pt
		}
		if !l.Timestamp.Before(cutoff) {
			daily[l.Timestamp.UTC().Format(time.DateOnly)]++
		}
	}

	for d := cutoff; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		u.Daily = append(u.Daily, DayCount{Date: key, Requests: daily[key]})
	}
	return u, nil
}

// Audit details round-trip through JSON, so numbers arrive as float64.
func detailFloat(d map[string]any, key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func detailInt(d map[string]any, key string) int {
	return int(detailFloat(d, key))
}
