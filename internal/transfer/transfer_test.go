package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/settings"
	"github.com/starford/quest/internal/store"
	"github.com/starford/quest/internal/testutil"
)

func seeded(t *testing.T) (*Service, *store.DB, *settings.Store) {
	t.Helper()
	ctx := context.Background()
	db := testutil.TestDB(t)
	prefs := settings.NewStore(testutil.TestArea(t))

	if _, _, err := db.SaveArticle(ctx, models.ArticleDraft{
		ActualURL:    "https://www.example.com/go",
		Title:        "Go <b>tips</b>",
		Content:      "Use **small** interfaces.\n<script>alert(1)</script>",
		Organization: models.Organization{Category: "Tech", Tags: []string{"go", "tips"}},
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := db.SaveArticle(ctx, models.ArticleDraft{ActualURL: "https://blog.test/b", Title: "Second"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SaveCategory(ctx, "Tech", "#00f"); err != nil {
		t.Fatal(err)
	}
	return New(db, prefs, nil), db, prefs
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "markdown": FormatMarkdown, "html": FormatHTML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("pdf: err = %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	svc, _, _ := seeded(t)
	out, err := svc.Export(context.Background(), FormatJSON, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Version != Version || doc.ExportDate.IsZero() {
		t.Errorf("header = %q %v", doc.Version, doc.ExportDate)
	}
	if len(doc.Articles) != 2 || len(doc.Categories) != 1 || len(doc.Tags) != 2 {
		t.Fatalf("counts = %d articles, %d categories, %d tags", len(doc.Articles), len(doc.Categories), len(doc.Tags))
	}
	for _, a := range doc.Articles {
		if a.Content != "" {
			t.Errorf("content exported without includeContent: %q", a.Content)
		}
	}
	if doc.Settings == nil || doc.Settings.Theme != "light" {
		t.Errorf("settings = %+v", doc.Settings)
	}
}

func TestExportMarkdown(t *testing.T) {
	svc, _, _ := seeded(t)
	out, err := svc.Export(context.Background(), FormatMarkdown, true)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	docs := strings.Split(string(out), docSeparator)
	if len(docs) != 2 {
		t.Fatalf("got %d documents:\n%s", len(docs), out)
	}
	var goDoc string
	for _, d := range docs {
		if strings.Contains(d, "domain: example.com") {
			goDoc = d
		}
	}
	if goDoc == "" {
		t.Fatalf("no example.com document:\n%s", out)
	}
	for _, want := range []string{"---\ntitle: Go <b>tips</b>", "category: Tech", "- go", "Use **small** interfaces."} {
		if !strings.Contains(goDoc, want) {
			t.Errorf("document missing %q:\n%s", want, goDoc)
		}
	}
}

func TestExportHTMLSanitises(t *testing.T) {
	svc, _, _ := seeded(t)
	out, err := svc.Export(context.Background(), FormatHTML, true)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if bytes.Contains(out, []byte("<script>")) {
		t.Errorf("script survived sanitising:\n%s", out)
	}
	for _, want := range []string{"<strong>small</strong>", "<h1", "Second", "<article>"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("html missing %q:\n%s", want, out)
		}
	}
}

func TestImportSkipsDuplicatesAndReplacesSettings(t *testing.T) {
	ctx := context.Background()
	src, _, srcPrefs := seeded(t)
	rec := settings.Defaults()
	rec.Theme = "dark"
	if _, err := srcPrefs.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	data, err := src.Export(ctx, FormatJSON, true)
	if err != nil {
		t.Fatal(err)
	}

	db := testutil.TestDB(t)
	prefs := settings.NewStore(testutil.TestArea(t))
	if _, _, err := db.SaveArticle(ctx, models.ArticleDraft{ActualURL: "https://blog.test/b"}); err != nil {
		t.Fatal(err)
	}
	dst := New(db, prefs, nil)

	res, err := dst.Import(ctx, data, true)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := Result{Imported: 1, Skipped: 1, CategoriesImported: 1}
	if res != want {
		t.Errorf("merge result = %+v, want %+v", res, want)
	}
	if got, _ := prefs.Load(ctx); got.Theme != "light" {
		t.Errorf("merge replaced settings: theme %q", got.Theme)
	}

	res, err = dst.Import(ctx, data, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want = Result{Skipped: 2, CategoriesSkipped: 1, SettingsReplaced: true}
	if res != want {
		t.Errorf("replace result = %+v, want %+v", res, want)
	}
	if got, _ := prefs.Load(ctx); got.Theme != "dark" {
		t.Errorf("theme = %q, want dark", got.Theme)
	}

	all, _ := db.GetAllArticles(ctx)
	if len(all) != 2 {
		t.Errorf("articles = %d, want 2", len(all))
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	svc := New(testutil.TestDB(t), settings.NewStore(testutil.TestArea(t)), nil)
	if _, err := svc.Import(context.Background(), []byte("not json"), true); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _, _ := seeded(t)
	db := testutil.TestDB(t)
	if _, _, err := db.SaveArticle(ctx, models.ArticleDraft{
		ActualURL: "https://rules.test/hr",
		Title:     "Rules",
		Content:   "above" + docSeparator + "below",
	}); err != nil {
		t.Fatal(err)
	}
	more, err := New(db, settings.NewStore(testutil.TestArea(t)), nil).Export(ctx, FormatMarkdown, true)
	if err != nil {
		t.Fatal(err)
	}
	data, err := src.Export(ctx, FormatMarkdown, true)
	if err != nil {
		t.Fatal(err)
	}
	data = append(append(data, docSeparator...), more...)

	dst := testutil.TestDB(t)
	res, err := New(dst, settings.NewStore(testutil.TestArea(t)), nil).Import(ctx, data, true)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 3 || res.Skipped != 0 {
		t.Fatalf("result = %+v", res)
	}

	a, _ := dst.GetArticleByCleanURL(ctx, "https://www.example.com/go")
	if a == nil {
		t.Fatal("article not imported")
	}
	if a.Title != "Go <b>tips</b>" || a.Organization.Category != "Tech" || len(a.Organization.Tags) != 2 {
		t.Errorf("article = %+v", a)
	}
	if !strings.HasPrefix(a.Content, "Use **small** interfaces.") {
		t.Errorf("content = %q", a.Content)
	}
	r, _ := dst.GetArticleByCleanURL(ctx, "https://rules.test/hr")
	if r == nil || r.Content != "above"+docSeparator+"below" {
		t.Errorf("horizontal rule content = %+v", r)
	}
}

func TestSplitFrontMatter(t *testing.T) {
	cases := []struct {
		name  string
		doc   string
		ok    bool
		title string
		body  string
	}{
		{"basic", "---\ntitle: Hello\nurl: https://x.test\n---\n\n# Hello\nBody\n", true, "Hello", "# Hello\nBody\n"},
		{"empty block", "---\n---\nBody", true, "", "Body"},
		{"no front matter", "# Just a heading\n", false, "", "# Just a heading\n"},
		{"unclosed", "---\ntitle: x\nBody", false, "", "---\ntitle: x\nBody"},
		{"invalid yaml", "---\n: invalid: yaml: {{{\n---\nBody\n", false, "", "---\n: invalid: yaml: {{{\n---\nBody\n"},
	}
	for _, tc := range cases {
		fm, body, ok := splitFrontMatter(tc.doc)
		if ok != tc.ok || fm.Title != tc.title || body != tc.body {
			t.Errorf("%s: got (%q, %q, %v)", tc.name, fm.Title, body, ok)
		}
	}
}
