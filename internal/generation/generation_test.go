package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/audio"
	"github.com/starford/quest/internal/credentials"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/providers"
	"github.com/starford/quest/internal/settings"
	"github.com/starford/quest/internal/store"
	qtest "github.com/starford/quest/internal/testutil"
)

type fakeText struct {
	mu    sync.Mutex
	calls []providers.TextRequest
	text  string
	err   error
}

func (f *fakeText) GenerateText(_ context.Context, req providers.TextRequest) (providers.TextResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return providers.TextResult{}, f.err
	}
	return providers.TextResult{Text: f.text, InputTokens: 1000, OutputTokens: 500, TotalTokens: 1500}, nil
}

type fakeSpeech struct {
	calls []providers.SpeechRequest
	audio []byte
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, req providers.SpeechRequest) (providers.SpeechResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return providers.SpeechResult{}, f.err
	}
	return providers.SpeechResult{Audio: f.audio, MIMEType: audio.DetectMIME(f.audio)}, nil
}

type fixture struct {
	svc    *Service
	db     *store.DB
	keys   *credentials.Store
	prefs  *settings.Store
	text   *fakeText
	speech *fakeSpeech
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:     qtest.TestDB(t),
		keys:   credentials.NewStore(qtest.TestArea(t), "test-install", nil),
		prefs:  settings.NewStore(qtest.TestArea(t)),
		text:   &fakeText{text: "A generated summary."},
		speech: &fakeSpeech{audio: audio.PCMToWAV(make([]byte, 48000), 24000, 1, 16)},
		reg:    prometheus.NewRegistry(),
	}
	caps := providers.NewSet().
		RegisterText(models.ProviderOpenAI, f.text).
		RegisterText(models.ProviderGemini, f.text).
		RegisterSpeech(models.ProviderGemini, f.speech).
		RegisterSpeech(models.ProviderElevenLabs, f.speech)
	f.svc = New(f.db, f.keys, f.prefs, caps, WithMetrics(NewMetrics(f.reg)))
	return f
}

func (f *fixture) article(t *testing.T, content string) *models.Article {
	t.Helper()
	a, _, err := f.db.SaveArticle(context.Background(), models.ArticleDraft{
		ActualURL: "https://example.com/" + strings.ReplaceAll(t.Name(), "/", "-"),
		Title:     "Test",
		Content:   content,
	})
	if err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}
	return a
}

func (f *fixture) setKey(t *testing.T, p models.Provider) {
	t.Helper()
	if err := f.keys.SetAPIKey(context.Background(), p, "key-"+string(p)); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) audits(t *testing.T) []models.AuditLog {
	t.Helper()
	logs, err := f.db.GetAuditLogs(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	return logs
}

// counterValue reads one counter sample from reg.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metrics:
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

var longContent = strings.Repeat("Gophers dig extensive burrow systems underground. ", 10)

func TestGenerateSummaryContentTooShortPrecedesCredentialCheck(t *testing.T) {
	f := newFixture(t)
	a := f.article(t, strings.Repeat("x", 40))

	_, err := f.svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, "")
	var short *apperr.ContentTooShortError
	if !errors.As(err, &short) {
		t.Fatalf("err = %v, want ContentTooShortError", err)
	}
	if short.Length != 40 {
		t.Errorf("length = %d", short.Length)
	}
	if logs := f.audits(t); len(logs) != 0 {
		t.Errorf("audit entries = %d, want none", len(logs))
	}
	if sums, _ := f.db.GetAllSummaries(context.Background()); len(sums) != 0 {
		t.Error("summary persisted")
	}
}

func TestGenerateSummaryMissingCredential(t *testing.T) {
	f := newFixture(t)
	a := f.article(t, longContent)

	_, err := f.svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, "")
	if !errors.Is(err, apperr.ErrMissingCredential) {
		t.Fatalf("err = %v, want MissingCredential", err)
	}
	if !strings.Contains(err.Error(), "Gemini API key not configured!") || !strings.Contains(err.Error(), "Settings → AI Configuration") {
		t.Errorf("message = %q", err.Error())
	}

	logs := f.audits(t)
	if len(logs) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(logs))
	}
	if logs[0].Success || logs[0].Action != models.ActionGenerateSummary || logs[0].Error != "No API key configured for gemini" {
		t.Errorf("audit = %+v", logs[0])
	}
	if sums, _ := f.db.GetAllSummaries(context.Background()); len(sums) != 0 {
		t.Error("summary persisted")
	}
	if len(f.text.calls) != 0 {
		t.Error("provider called without a key")
	}
}

func TestGenerateSummaryNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateSummary(context.Background(), "missing", models.SummaryConcise, "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateSummarySuccess(t *testing.T) {
	f := newFixture(t)
	f.setKey(t, models.ProviderOpenAI)
	a := f.article(t, longContent)

	sum, err := f.svc.GenerateSummary(context.Background(), a.ID, models.SummaryExtended, models.ProviderOpenAI)
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if sum.Provider != models.ProviderOpenAI || sum.Model != "gpt-4.1" || sum.Kind != models.SummaryExtended {
		t.Errorf("summary = %+v", sum)
	}
	// gpt-4.1: 1000 * 2/1M + 500 * 8/1M
	if want := 0.006; sum.EstimatedCost < want-1e-9 || sum.EstimatedCost > want+1e-9 {
		t.Errorf("cost = %v, want %v", sum.EstimatedCost, want)
	}

	call := f.text.calls[0]
	if call.APIKey != "key-openai" || !strings.Contains(call.Prompt, "Gophers dig") {
		t.Errorf("provider call = %+v", call)
	}

	got, _ := f.db.GetArticle(context.Background(), a.ID)
	if len(got.SummaryIDs) != 1 || got.SummaryIDs[0] != sum.ID {
		t.Errorf("summaryIds = %v", got.SummaryIDs)
	}

	logs := f.audits(t)
	if len(logs) != 1 || !logs[0].Success || logs[0].Model != "gpt-4.1" {
		t.Fatalf("audit = %+v", logs)
	}
	if logs[0].Details["totalTokens"].(float64) != 1500 || logs[0].Details["type"] != "extended" {
		t.Errorf("details = %v", logs[0].Details)
	}

	if n := counterValue(t, f.reg, "quest_generation_requests_total", map[string]string{
		"operation": models.ActionGenerateSummary, "provider": "openai", "outcome": "success",
	}); n != 1 {
		t.Errorf("requests metric = %v", n)
	}
}

func TestGenerateSummaryUsesConfiguredProviderAndModel(t *testing.T) {
	f := newFixture(t)
	rec := settings.Defaults()
	rec.SummaryProvider = models.ProviderGemini
	rec.GeminiModel = "gemini-2.5-pro"
	if _, err := f.prefs.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	f.setKey(t, models.ProviderGemini)
	a := f.article(t, longContent)

	sum, err := f.svc.GenerateSummary(context.Background(), a.ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Provider != models.ProviderGemini || sum.Model != "gemini-2.5-pro" || sum.Kind != models.SummaryConcise {
		t.Errorf("summary = %+v", sum)
	}
}

func TestGenerateSummaryProviderFailureIsAudited(t *testing.T) {
	f := newFixture(t)
	f.setKey(t, models.ProviderGemini)
	f.text.err = &apperr.ProviderError{Provider: "gemini", Status: 429, Message: "Resource has been exhausted"}
	a := f.article(t, longContent)

	_, err := f.svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, "")
	if err == nil || err.Error() != "Resource has been exhausted" {
		t.Fatalf("err = %v", err)
	}
	logs := f.audits(t)
	if len(logs) != 1 || logs[0].Success || logs[0].Error != "Resource has been exhausted" {
		t.Fatalf("audit = %+v", logs)
	}
	if logs[0].Model != "gemini-2.5-flash" || logs[0].Details["phase"] != string(PhaseProviderCall) {
		t.Errorf("audit = %+v", logs[0])
	}
}

func TestGeneratePodcastFromFreshSummary(t *testing.T) {
	f := newFixture(t)
	f.setKey(t, models.ProviderGemini)
	a := f.article(t, longContent)

	file, err := f.svc.GeneratePodcast(context.Background(), a.ID, "")
	if err != nil {
		t.Fatalf("GeneratePodcast: %v", err)
	}
	if file.Duration != 1 {
		t.Errorf("duration = %v, want 1", file.Duration)
	}
	if file.VoiceID != "Achernar" || file.Provider != models.ProviderGemini {
		t.Errorf("file = %+v", file)
	}
	chars := len("A generated summary.")
	if file.CharacterCount != chars {
		t.Errorf("chars = %d", file.CharacterCount)
	}

	got, _ := f.db.GetArticle(context.Background(), a.ID)
	if got.AudioID != file.SummaryID {
		t.Errorf("audioId = %q, want summary id %q", got.AudioID, file.SummaryID)
	}
	sums, _ := f.db.GetSummariesForArticle(context.Background(), a.ID)
	if len(sums) != 1 || sums[0].Kind != models.SummaryExtended {
		t.Errorf("summaries = %+v", sums)
	}
	stored, _ := f.db.GetAudioFileBySummaryID(context.Background(), file.SummaryID)
	if stored == nil || stored.Audio.MIMEType != audio.MIMEWAV {
		t.Errorf("stored audio = %+v", stored)
	}

	logs := f.audits(t)
	if len(logs) != 2 || logs[0].Action != models.ActionGeneratePodcast || logs[1].Action != models.ActionGenerateSummary {
		t.Fatalf("audits = %+v", logs)
	}
	if logs[0].Details["summaryId"] != file.SummaryID || logs[0].Details["voiceId"] != "Achernar" {
		t.Errorf("details = %v", logs[0].Details)
	}
}

func TestGeneratePodcastWithExistingSummaryAndHeuristicDuration(t *testing.T) {
	f := newFixture(t)
	rec := settings.Defaults()
	rec.TTSProvider = models.ProviderElevenLabs
	rec.ElevenLabsVoiceID = "voice-x"
	if _, err := f.prefs.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	f.setKey(t, models.ProviderElevenLabs)
	f.speech.audio = []byte{0xFF, 0xFB, 0x00, 0x00}
	a := f.article(t, longContent)
	content := strings.Repeat("a", 300)
	sum, err := f.db.SaveSummary(context.Background(), models.Summary{ArticleID: a.ID, Content: content})
	if err != nil {
		t.Fatal(err)
	}

	file, err := f.svc.GeneratePodcast(context.Background(), a.ID, sum.ID)
	if err != nil {
		t.Fatalf("GeneratePodcast: %v", err)
	}
	if file.Duration != 120 {
		t.Errorf("duration = %v, want heuristic 120", file.Duration)
	}
	// 300 chars at $0.30 per 1K
	if file.EstimatedCost < 0.0899 || file.EstimatedCost > 0.0901 {
		t.Errorf("cost = %v", file.EstimatedCost)
	}
	if f.speech.calls[0].Voice != "voice-x" || f.speech.calls[0].Model != "eleven_multilingual_v2" {
		t.Errorf("speech call = %+v", f.speech.calls[0])
	}
	if len(f.text.calls) != 0 {
		t.Error("summary regenerated despite summaryId")
	}
}

func TestGeneratePodcastUnknownSummary(t *testing.T) {
	f := newFixture(t)
	f.setKey(t, models.ProviderGemini)
	a := f.article(t, longContent)

	_, err := f.svc.GeneratePodcast(context.Background(), a.ID, "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	logs := f.audits(t)
	if len(logs) != 1 || logs[0].Success || logs[0].Action != models.ActionGeneratePodcast {
		t.Errorf("audits = %+v", logs)
	}
}

func TestGeneratePodcastMissingCredential(t *testing.T) {
	f := newFixture(t)
	a := f.article(t, longContent)

	_, err := f.svc.GeneratePodcast(context.Background(), a.ID, "")
	if !errors.Is(err, apperr.ErrMissingCredential) {
		t.Fatalf("err = %v", err)
	}
	logs := f.audits(t)
	if len(logs) != 1 || logs[0].Error != "No API key configured for gemini" {
		t.Errorf("audits = %+v", logs)
	}
}

func TestTestAPIKey(t *testing.T) {
	f := newFixture(t)
	if !f.svc.TestAPIKey(context.Background(), models.ProviderOpenAI, "k", "") {
		t.Error("expected success")
	}
	if f.text.calls[0].Model != "gpt-5-nano" || f.text.calls[0].Prompt != "Test connection" {
		t.Errorf("probe = %+v", f.text.calls[0])
	}

	f.speech.err = errors.New("unauthorized")
	if f.svc.TestAPIKey(context.Background(), models.ProviderElevenLabs, "bad", "") {
		t.Error("expected failure")
	}
	if f.speech.calls[0].Voice != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("voice = %q", f.speech.calls[0].Voice)
	}
}

func TestUsageStats(t *testing.T) {
	f := newFixture(t)
	f.setKey(t, models.ProviderOpenAI)
	a := f.article(t, longContent)
	if _, err := f.svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, models.ProviderOpenAI); err != nil {
		t.Fatal(err)
	}
	_, _ = f.svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, models.ProviderGemini)

	u, err := f.svc.UsageStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if u.Total.Requests != 2 || u.Total.Successful != 1 || u.Total.Failed != 1 {
		t.Errorf("total = %+v", u.Total)
	}
	if op := u.ByProvider[models.ProviderOpenAI]; op.InputTokens != 1000 || op.OutputTokens != 500 {
		t.Errorf("openai = %+v", op)
	}
	if len(u.Daily) != usageDays || u.Daily[len(u.Daily)-1].Requests != 2 {
		t.Errorf("daily tail = %+v", u.Daily[len(u.Daily)-1])
	}
}

// auditDown is a store whose audit table rejects every write.
type auditDown struct {
	*store.DB
}

func (auditDown) LogAudit(context.Context, models.AuditDraft) (*models.AuditLog, error) {
	return nil, errors.New("disk full")
}

func TestAuditWriteFailureDoesNotMaskResult(t *testing.T) {
	f := newFixture(t)
	f.setKey(t, models.ProviderGemini)
	caps := providers.NewSet().RegisterText(models.ProviderGemini, f.text)
	svc := New(auditDown{f.db}, f.keys, f.prefs, caps)
	a := f.article(t, longContent)

	sum, err := svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, "")
	if err != nil || sum == nil || sum.Content != "A generated summary." {
		t.Fatalf("success path: sum = %+v, err = %v", sum, err)
	}

	f.text.err = &apperr.ProviderError{Provider: "gemini", Status: 500, Message: "upstream broke"}
	_, err = svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, "")
	if !errors.Is(err, apperr.ErrProvider) || err.Error() != "upstream broke" {
		t.Fatalf("failure path: err = %v", err)
	}
}

type brokenKeys struct{}

func (brokenKeys) GetAPIKey(context.Context, models.Provider) (string, error) {
	return "", errors.New("keystore unreadable")
}

func TestKeyLookupErrorIsAudited(t *testing.T) {
	f := newFixture(t)
	caps := providers.NewSet().RegisterText(models.ProviderGemini, f.text)
	svc := New(f.db, brokenKeys{}, f.prefs, caps)
	a := f.article(t, longContent)

	if _, err := svc.GenerateSummary(context.Background(), a.ID, models.SummaryConcise, ""); err == nil {
		t.Fatal("expected error")
	}
	logs := f.audits(t)
	if len(logs) != 1 || logs[0].Success || logs[0].Error != "keystore unreadable" {
		t.Fatalf("audit = %+v", logs)
	}
	if logs[0].Details["phase"] != string(PhaseKeyLookup) {
		t.Errorf("phase = %v", logs[0].Details["phase"])
	}
	if len(f.text.calls) != 0 {
		t.Errorf("provider called %d times", len(f.text.calls))
	}
}
