package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quest/internal/credentials"
	"github.com/starford/quest/internal/generation"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/settings"
	"github.com/starford/quest/internal/store"
	"github.com/starford/quest/internal/testutil"
)

type testEnv struct {
	srv  *Server
	db   *store.DB
	keys *credentials.Store
}

func testServer(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	keys := credentials.NewStore(testutil.TestArea(t), "test-install", nil)
	prefs := settings.NewStore(testutil.TestArea(t))
	gen := generation.New(db, keys, prefs,
		testutil.FakeProviders(&testutil.FakeText{Text: "Summary text."}, &testutil.FakeSpeech{}))
	return &testEnv{srv: New(db, gen, "test"), db: db, keys: keys}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_articles":  srv.searchArticles,
		"get_article":      srv.getArticle,
		"save_article":     srv.saveArticle,
		"list_summaries":   srv.listSummaries,
		"generate_summary": srv.generateSummary,
		"generate_podcast": srv.generatePodcast,
		"get_audit_logs":   srv.getAuditLogs,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

var body = strings.Repeat("Capybaras are the largest living rodents and live near water. ", 3)

func saveViaTool(t *testing.T, srv *Server, url string) models.Article {
	t.Helper()
	r := callTool(t, srv, "save_article", map[string]interface{}{
		"url":     url,
		"title":   "Capybara facts",
		"content": body,
		"tags":    "animals, rodents",
	})
	if r.IsError {
		t.Fatalf("save_article: %s", resultText(r))
	}
	var out struct {
		Created bool           `json:"created"`
		Article models.Article `json:"article"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Created {
		t.Errorf("created = false for %s", url)
	}
	return out.Article
}

func TestSaveAndGetArticle(t *testing.T) {
	env := testServer(t)
	a := saveViaTool(t, env.srv, "https://example.com/capybara")
	if len(a.Organization.Tags) != 2 || a.Organization.Tags[1] != "rodents" {
		t.Errorf("tags = %v", a.Organization.Tags)
	}

	r := callTool(t, env.srv, "get_article", map[string]interface{}{"id": a.ID})
	if r.IsError || !strings.Contains(resultText(r), "Capybara facts") {
		t.Errorf("get_article = %s", resultText(r))
	}

	r = callTool(t, env.srv, "get_article", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
	r = callTool(t, env.srv, "save_article", map[string]interface{}{"url": "not a url"})
	if !r.IsError {
		t.Error("expected error for invalid url")
	}
}

func TestSearchArticles(t *testing.T) {
	env := testServer(t)
	saveViaTool(t, env.srv, "https://example.com/capybara")

	r := callTool(t, env.srv, "search_articles", map[string]interface{}{"query": "rodents"})
	if r.IsError || !strings.Contains(resultText(r), "Capybara facts") {
		t.Errorf("search = %s", resultText(r))
	}
	r = callTool(t, env.srv, "search_articles", map[string]interface{}{"query": "zeppelin"})
	if resultText(r) != "no articles found" {
		t.Errorf("empty search = %q", resultText(r))
	}
	r = callTool(t, env.srv, "search_articles", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without query")
	}
}

func TestGenerateSummaryTool(t *testing.T) {
	env := testServer(t)
	a := saveViaTool(t, env.srv, "https://example.com/capybara")

	r := callTool(t, env.srv, "generate_summary", map[string]interface{}{"article_id": a.ID})
	if !r.IsError || !strings.Contains(resultText(r), "Settings → AI Configuration") {
		t.Fatalf("missing key result = %s", resultText(r))
	}

	if err := env.keys.SetAPIKey(context.Background(), models.ProviderOpenAI, "sk-test"); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, env.srv, "generate_summary", map[string]interface{}{
		"article_id": a.ID, "kind": "extended", "provider": "openai",
	})
	if r.IsError {
		t.Fatalf("generate_summary: %s", resultText(r))
	}
	var sum models.Summary
	if err := json.Unmarshal([]byte(resultText(r)), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Provider != models.ProviderOpenAI || sum.Kind != models.SummaryExtended {
		t.Errorf("summary = %+v", sum)
	}

	r = callTool(t, env.srv, "list_summaries", map[string]interface{}{"article_id": a.ID})
	if !strings.Contains(resultText(r), sum.ID) {
		t.Errorf("list_summaries = %s", resultText(r))
	}

	r = callTool(t, env.srv, "generate_summary", map[string]interface{}{"article_id": a.ID, "kind": "haiku"})
	if !r.IsError {
		t.Error("expected error for unknown kind")
	}

	r = callTool(t, env.srv, "get_audit_logs", map[string]interface{}{"limit": float64(1)})
	var logs []models.AuditLog
	if err := json.Unmarshal([]byte(resultText(r)), &logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || !logs[0].Success {
		t.Errorf("audit logs = %+v", logs)
	}
}

func TestGeneratePodcastTool(t *testing.T) {
	env := testServer(t)
	a := saveViaTool(t, env.srv, "https://example.com/capybara")
	if err := env.keys.SetAPIKey(context.Background(), models.ProviderGemini, "g-key"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, env.srv, "generate_podcast", map[string]interface{}{"article_id": a.ID})
	if r.IsError {
		t.Fatalf("generate_podcast: %s", resultText(r))
	}
	var f models.AudioFile
	if err := json.Unmarshal([]byte(resultText(r)), &f); err != nil {
		t.Fatal(err)
	}
	if f.SummaryID == "" || f.Duration != 1 {
		t.Errorf("audio file = %+v", f)
	}

	r = callTool(t, env.srv, "generate_podcast", map[string]interface{}{"article_id": a.ID, "summary_id": "unknown"})
	if !r.IsError {
		t.Error("expected error for unknown summary")
	}
}
