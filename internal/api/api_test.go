package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/audio"
	"github.com/starford/quest/internal/credentials"
	"github.com/starford/quest/internal/generation"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/settings"
	"github.com/starford/quest/internal/sse"
	"github.com/starford/quest/internal/store"
	"github.com/starford/quest/internal/testutil"
	"github.com/starford/quest/internal/transfer"
)

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *recordedEvents) Publish(ev sse.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, ev.Type)
}

func (e *recordedEvents) PublishArticle(eventType, _ string) {
	e.Publish(sse.Event{Type: eventType})
}

func (e *recordedEvents) has(t string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.types {
		if v == t {
			return true
		}
	}
	return false
}

type testEnv struct {
	router  http.Handler
	handler *Handler
	db      *store.DB
	keys    *credentials.Store
	prefs   *settings.Store
	text    *testutil.FakeText
	events  *recordedEvents
}

// newTestEnv wires a router over a temp SQLite store with fake providers.
// A non-empty authToken enables token mode.
func newTestEnv(t *testing.T, authToken string) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	keys := credentials.NewStore(testutil.TestArea(t), "test-install", nil)
	prefs := settings.NewStore(testutil.TestArea(t))
	text := &testutil.FakeText{Text: "A short summary."}
	gen := generation.New(db, keys, prefs, testutil.FakeProviders(text, &testutil.FakeSpeech{}))
	events := &recordedEvents{}

	h := NewHandler(Deps{
		Store:       db,
		Generator:   gen,
		Credentials: keys,
		Settings:    prefs,
		Transfer:    transfer.New(db, prefs, nil),
		Events:      events,
	})
	t.Cleanup(h.Wait)
	return &testEnv{
		router:  NewRouter(h, authToken != "", authToken, nil),
		handler: h,
		db:      db,
		keys:    keys,
		prefs:   prefs,
		text:    text,
		events:  events,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case []byte:
		rd = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

var longText = strings.Repeat("Field notes on the capybara and its wetland habitat. ", 4)

func (e *testEnv) saveArticle(t *testing.T, url string) models.Article {
	t.Helper()
	w := e.do(t, http.MethodPost, "/articles", map[string]any{"actualUrl": url, "title": "T", "content": longText})
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[models.Article](t, w)
}

func TestSaveAndGetArticle(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.saveArticle(t, "https://www.example.com/a")
	if a.Domain != "example.com" || a.Organization.Category != models.DefaultCategory {
		t.Errorf("article = %+v", a)
	}
	if !env.events.has(sse.ArticleCreated) {
		t.Error("article.created not published")
	}

	w := env.do(t, http.MethodGet, "/articles/"+a.ID, nil)
	if w.Code != http.StatusOK || decode[models.Article](t, w).ID != a.ID {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/articles", map[string]any{"actualUrl": "https://www.example.com/a"})
	if w.Code != http.StatusOK || decode[models.Article](t, w).ID != a.ID {
		t.Errorf("dedup status = %d, body = %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodGet, "/articles/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}

func TestSaveArticleValidation(t *testing.T) {
	env := newTestEnv(t, "")
	cases := map[string]any{
		"empty url": map[string]any{"title": "x"},
		"bad url":   map[string]any{"actualUrl": "not a url"},
		"bad json":  []byte("{"),
	}
	for name, body := range cases {
		if w := env.do(t, http.MethodPost, "/articles", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, body = %s", name, w.Code, w.Body.String())
		}
	}
}

func TestListArticlesFilters(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.saveArticle(t, "https://a.test/1")
	env.saveArticle(t, "https://b.test/2")

	read := true
	if _, err := env.db.UpdateArticle(context.Background(), a.ID, models.ArticlePatch{
		Organization: &models.OrganizationPatch{IsRead: &read},
	}); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodGet, "/articles?status=unread", nil)
	resp := decode[ArticleListResponse](t, w)
	if resp.Total != 1 || resp.Articles[0].Domain != "b.test" {
		t.Errorf("unread = %+v", resp)
	}
	w = env.do(t, http.MethodGet, "/articles?domain=a.test", nil)
	if resp := decode[ArticleListResponse](t, w); resp.Total != 1 {
		t.Errorf("domain filter total = %d", resp.Total)
	}
	if w := env.do(t, http.MethodGet, "/articles?archived=maybe", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad bool status = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/articles?status=later", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad status status = %d", w.Code)
	}
}

func TestPatchAndDeleteArticle(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.saveArticle(t, "https://example.com/p")

	w := env.do(t, http.MethodPatch, "/articles/"+a.ID, map[string]any{
		"organization": map[string]any{"tags": []string{"go"}, "isPinned": true},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[models.Article](t, w)
	if !got.Organization.IsPinned || len(got.Organization.Tags) != 1 {
		t.Errorf("patched = %+v", got.Organization)
	}
	if w := env.do(t, http.MethodPatch, "/articles/missing", map[string]any{}); w.Code != http.StatusNotFound {
		t.Errorf("patch missing status = %d", w.Code)
	}

	if w := env.do(t, http.MethodDelete, "/articles/"+a.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/articles/"+a.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
	if !env.events.has(sse.ArticleDeleted) {
		t.Error("article.deleted not published")
	}
}

func TestGenerateSummaryStatuses(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	a := env.saveArticle(t, "https://example.com/s")
	short, _, _ := env.db.SaveArticle(ctx, models.ArticleDraft{ActualURL: "https://example.com/short", Content: "tiny"})

	if w := env.do(t, http.MethodPost, "/articles/"+a.ID+"/summaries", nil); w.Code != http.StatusPreconditionFailed {
		t.Errorf("no key status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/articles/"+short.ID+"/summaries", nil); w.Code != http.StatusBadRequest {
		t.Errorf("short status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/articles/missing/summaries", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/articles/"+a.ID+"/summaries", map[string]string{"kind": "haiku"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d", w.Code)
	}

	if err := env.keys.SetAPIKey(ctx, models.ProviderGemini, "g-key"); err != nil {
		t.Fatal(err)
	}
	w := env.do(t, http.MethodPost, "/articles/"+a.ID+"/summaries", map[string]string{"kind": "extended"})
	if w.Code != http.StatusCreated {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}
	s := decode[models.Summary](t, w)
	if s.Kind != models.SummaryExtended || s.Content != "A short summary." {
		t.Errorf("summary = %+v", s)
	}
	if !env.events.has(sse.SummaryCreated) {
		t.Error("summary.created not published")
	}

	w = env.do(t, http.MethodGet, "/articles/"+a.ID+"/summaries", nil)
	list := decode[map[string][]models.Summary](t, w)
	if len(list["summaries"]) != 1 {
		t.Errorf("summaries = %v", list)
	}

	w = env.do(t, http.MethodGet, "/audit?limit=10", nil)
	logs := decode[map[string][]models.AuditLog](t, w)["logs"]
	if len(logs) != 2 || !logs[0].Success || logs[1].Success {
		t.Errorf("audit logs = %+v", logs)
	}
}

func TestPodcastAndAudioDownload(t *testing.T) {
	env := newTestEnv(t, "")
	if err := env.keys.SetAPIKey(context.Background(), models.ProviderGemini, "g-key"); err != nil {
		t.Fatal(err)
	}
	a := env.saveArticle(t, "https://example.com/pod")

	w := env.do(t, http.MethodPost, "/articles/"+a.ID+"/podcast", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("podcast status = %d, body = %s", w.Code, w.Body.String())
	}
	f := decode[models.AudioFile](t, w)
	if f.Duration != 1 || f.MIMEType != audio.MIMEWAV {
		t.Errorf("audio file = %+v", f)
	}

	w = env.do(t, http.MethodGet, "/summaries/"+f.SummaryID+"/audio", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audio status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != audio.MIMEWAV {
		t.Errorf("content type = %q", ct)
	}
	etag := w.Header().Get("ETag")
	if etag == "" || w.Body.Len() != 44+2*audio.DefaultPCMRate {
		t.Errorf("etag = %q, len = %d", etag, w.Body.Len())
	}

	req := httptest.NewRequest(http.MethodGet, "/summaries/"+f.SummaryID+"/audio", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d", rec.Code)
	}

	if w := env.do(t, http.MethodGet, "/summaries/none/audio", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing audio status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/audio", nil)
	if files := decode[map[string][]models.AudioFile](t, w)["audio"]; len(files) != 1 {
		t.Errorf("audio list = %v", files)
	}
}

func TestAutoSummaryOnSave(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	if err := env.keys.SetAPIKey(ctx, models.ProviderGemini, "g-key"); err != nil {
		t.Fatal(err)
	}
	rec := settings.Defaults()
	rec.AutoSummary = true
	if _, err := env.prefs.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	a := env.saveArticle(t, "https://example.com/auto")
	env.handler.Wait()

	sums, err := env.db.GetSummariesForArticle(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 || sums[0].Kind != models.SummaryConcise {
		t.Errorf("summaries = %+v", sums)
	}
}

func TestReminderRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.saveArticle(t, "https://example.com/r")
	at := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	if w := env.do(t, http.MethodGet, "/articles/"+a.ID+"/reminder", nil); w.Code != http.StatusNotFound {
		t.Errorf("get before set status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/articles/"+a.ID+"/reminder", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty reminder status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/articles/missing/reminder", map[string]any{"reminderTime": at}); w.Code != http.StatusNotFound {
		t.Errorf("missing article status = %d", w.Code)
	}
	w := env.do(t, http.MethodPut, "/articles/"+a.ID+"/reminder", map[string]any{"reminderTime": at})
	if w.Code != http.StatusOK {
		t.Fatalf("set status = %d, body = %s", w.Code, w.Body.String())
	}
	got, _ := env.db.GetArticle(context.Background(), a.ID)
	if !got.Workflow.ReminderScheduled {
		t.Error("reminderScheduled not set")
	}
	if w := env.do(t, http.MethodDelete, "/articles/"+a.ID+"/reminder", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	got, _ = env.db.GetArticle(context.Background(), a.ID)
	if got.Workflow.ReminderScheduled {
		t.Error("reminderScheduled still set")
	}
}

func TestSettingsRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/settings", nil)
	if rec := decode[models.Settings](t, w); rec.Theme != "light" || rec.ArchiveDays != 30 {
		t.Errorf("defaults = %+v", rec)
	}

	rec := settings.Defaults()
	rec.Theme = "dark"
	if w := env.do(t, http.MethodPut, "/settings", rec); w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	rec.Theme = "neon"
	if w := env.do(t, http.MethodPut, "/settings", rec); w.Code != http.StatusBadRequest {
		t.Errorf("invalid theme status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/settings", nil)
	if got := decode[models.Settings](t, w); got.Theme != "dark" {
		t.Errorf("theme = %q", got.Theme)
	}
}

func TestCredentialRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	if w := env.do(t, http.MethodPut, "/credentials/openai", map[string]string{"apiKey": "sk-1"}); w.Code != http.StatusNoContent {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPut, "/credentials/acme", map[string]string{"apiKey": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown provider status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/credentials/openai", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty key status = %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/credentials", nil)
	if strings.Contains(w.Body.String(), "sk-1") {
		t.Fatal("key material leaked")
	}
	configured := decode[map[string]map[models.Provider]bool](t, w)["configured"]
	if !configured[models.ProviderOpenAI] || configured[models.ProviderGemini] {
		t.Errorf("configured = %v", configured)
	}

	w = env.do(t, http.MethodPost, "/credentials/openai/test", nil)
	if !decode[TestKeyResponse](t, w).Valid {
		t.Errorf("test stored key = %s", w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/credentials/gemini/test", nil)
	if decode[TestKeyResponse](t, w).Valid {
		t.Error("gemini has no key but tested valid")
	}

	if w := env.do(t, http.MethodDelete, "/credentials/openai", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if key, _ := env.keys.GetAPIKey(context.Background(), models.ProviderOpenAI); key != "" {
		t.Error("key not removed")
	}
}

func TestCategoriesTagsStats(t *testing.T) {
	env := newTestEnv(t, "")
	if w := env.do(t, http.MethodPost, "/categories", CategoryRequest{Name: "Research", Color: "#3366ff"}); w.Code != http.StatusCreated {
		t.Fatalf("category status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/categories", CategoryRequest{Name: ""}); w.Code != http.StatusBadRequest {
		t.Errorf("empty category status = %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/categories", nil)
	if cats := decode[map[string][]models.Category](t, w)["categories"]; len(cats) != 1 {
		t.Errorf("categories = %v", cats)
	}

	env.do(t, http.MethodPost, "/articles", map[string]any{
		"actualUrl":    "https://example.com/t",
		"organization": map[string]any{"tags": []string{"go", "db"}},
	})
	w = env.do(t, http.MethodGet, "/tags", nil)
	if tags := decode[map[string][]models.Tag](t, w)["tags"]; len(tags) != 2 {
		t.Errorf("tags = %v", tags)
	}

	w = env.do(t, http.MethodGet, "/stats", nil)
	if st := decode[models.Stats](t, w); st.TotalArticles != 1 || st.UnreadArticles != 1 {
		t.Errorf("stats = %+v", st)
	}
	w = env.do(t, http.MethodGet, "/usage", nil)
	if w.Code != http.StatusOK {
		t.Errorf("usage status = %d", w.Code)
	}
}

func TestExportImportRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	env.saveArticle(t, "https://example.com/x")

	w := env.do(t, http.MethodGet, "/export?format=markdown&includeContent=true", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown") {
		t.Fatalf("export status = %d, type = %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), ".md") {
		t.Errorf("disposition = %q", w.Header().Get("Content-Disposition"))
	}
	if w := env.do(t, http.MethodGet, "/export?format=pdf", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad format status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/export", nil)
	data := w.Body.Bytes()

	other := newTestEnv(t, "")
	w = other.do(t, http.MethodPost, "/import", data)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	if res := decode[transfer.Result](t, w); res.Imported != 1 || res.SettingsReplaced {
		t.Errorf("import result = %+v", res)
	}
	if w := other.do(t, http.MethodPost, "/import", []byte("nope")); w.Code != http.StatusBadRequest {
		t.Errorf("garbage import status = %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, "secret")

	if w := env.do(t, http.MethodGet, "/articles", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d", w.Code)
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("article x: %w", apperr.ErrNotFound), http.StatusNotFound},
		{apperr.ErrAlreadyExists, http.StatusConflict},
		{&apperr.ContentTooShortError{Length: 3}, http.StatusBadRequest},
		{apperr.InvalidAudio("empty"), http.StatusBadRequest},
		{apperr.ErrInvalidURL, http.StatusBadRequest},
		{&apperr.MissingCredentialError{Provider: "openai"}, http.StatusPreconditionFailed},
		{&apperr.ProviderError{Message: "quota"}, http.StatusBadGateway},
		{&apperr.DecodeError{Message: "Worker failed: x"}, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusOf(tc.err); got != tc.want {
			t.Errorf("statusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestPatchIgnoresSummaryReferences(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.saveArticle(t, "https://example.com/refs")

	w := env.do(t, http.MethodPatch, "/articles/"+a.ID, map[string]any{
		"title":      "Renamed",
		"summaryIds": []string{"ghost"},
		"audioId":    "ghost",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[models.Article](t, w)
	if got.Title != "Renamed" || len(got.SummaryIDs) != 0 || got.AudioID != "" {
		t.Errorf("patched = %+v", got)
	}

	w = env.do(t, http.MethodPost, "/articles", map[string]any{
		"actualUrl":  "https://example.com/refs-new",
		"summaryIds": []string{"ghost"},
		"audioId":    "ghost",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	if saved := decode[models.Article](t, w); len(saved.SummaryIDs) != 0 || saved.AudioID != "" {
		t.Errorf("saved = %+v", saved)
	}
}
