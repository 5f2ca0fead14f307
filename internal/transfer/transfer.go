// Package transfer exports the library as JSON, Markdown or HTML and imports
// JSON and Markdown exports back into the store.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

// Version is written into every JSON export.
const Version = "1.0"

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMarkdown, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q: %w", s, apperr.ErrInvalidInput)
}

// ContentType returns the MIME type of an export in f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/json"
}

// Store is the part of the entity store used by import and export.
type Store interface {
	GetAllArticles(ctx context.Context) ([]models.Article, error)
	SaveArticle(ctx context.Context, d models.ArticleDraft) (*models.Article, bool, error)
	GetAllCategories(ctx context.Context) ([]models.Category, error)
	SaveCategory(ctx context.Context, name, color string) (*models.Category, error)
	GetAllTags(ctx context.Context) ([]models.Tag, error)
}

// Settings reads and replaces the settings record.
type Settings interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, rec models.Settings) (models.Settings, error)
}

// Document is the JSON export layout.
type Document struct {
	Version    string            `json:"version"`
	ExportDate time.Time         `json:"exportDate"`
	Articles   []models.Article  `json:"articles"`
	Categories []models.Category `json:"categories"`
	Tags       []models.Tag      `json:"tags"`
	Settings   *models.Settings  `json:"settings,omitempty"`
}

// Result counts what an import did.
type Result struct {
	Imported           int  `json:"imported"`
	Skipped            int  `json:"skipped"`
	CategoriesImported int  `json:"categoriesImported"`
	CategoriesSkipped  int  `json:"categoriesSkipped"`
	SettingsReplaced   bool `json:"settingsReplaced"`
}

// Service runs imports and exports.
type Service struct {
	store    Store
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
	md       goldmark.Markdown
	policy   *bluemonday.Policy
}

// New creates a transfer Service.
func New(store Store, settings Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Export renders the library in format f. Article content is left out
// unless includeContent is set.
func (s *Service) Export(ctx context.Context, f Format, includeContent bool) ([]byte, error) {
	articles, err := s.store.GetAllArticles(ctx)
	if err != nil {
		return nil, err
	}
	if !includeContent {
		for i := range articles {
			articles[i].Content = ""
		}
	}

	switch f {
	case FormatMarkdown:
		return s.markdown(articles, includeContent)
	case FormatHTML:
		return s.html(articles, includeContent)
	case FormatJSON, "":
	default:
		return nil, fmt.Errorf("unknown export format %q: %w", f, apperr.ErrInvalidInput)
	}

	doc := Document{Version: Version, ExportDate: s.now().UTC(), Articles: articles}
	if doc.Categories, err = s.store.GetAllCategories(ctx); err != nil {
		return nil, err
	}
	if doc.Tags, err = s.store.GetAllTags(ctx); err != nil {
		return nil, err
	}
	rec, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Warn("transfer: settings unavailable, exporting defaults", slog.String("error", err.Error()))
	}
	doc.Settings = &rec
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("transfer: encode export: %w", err)
	}
	return out, nil
}

type frontMatter struct {
	Title     string   `yaml:"title"`
	URL       string   `yaml:"url"`
	Domain    string   `yaml:"domain"`
	Category  string   `yaml:"category"`
	Tags      []string `yaml:"tags"`
	DateAdded string   `yaml:"dateAdded"`
}

const docSeparator = "\n\n---\n\n"

func markdownDoc(a models.Article, includeContent bool) ([]byte, error) {
	fm, err := yaml.Marshal(frontMatter{
		Title:     a.Title,
		URL:       a.ActualURL,
		Domain:    a.Domain,
		Category:  a.Organization.Category,
		Tags:      a.Organization.Tags,
		DateAdded: a.Timestamps.DateAdded.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: encode front matter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n# ")
	b.WriteString(a.Title)
	b.WriteString("\n")
	if includeContent && a.Content != "" {
		b.WriteString("\n")
		b.WriteString(a.Content)
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}

func (s *Service) markdown(articles []models.Article, includeContent bool) ([]byte, error) {
	docs := make([][]byte, 0, len(articles))
	for _, a := range articles {
		d, err := markdownDoc(a, includeContent)
		if err != nil {
			return nil, err
		}
		docs = append(docs, bytes.TrimRight(d, "\n"))
	}
	return bytes.Join(docs, []byte(docSeparator)), nil
}

func (s *Service) html(articles []models.Article, includeContent bool) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Quest export</title></head>\n<body>\n")
	for _, a := range articles {
		b.WriteString("<article>\n")
		var md bytes.Buffer
		fmt.Fprintf(&md, "# %s\n\n", a.Title)
		fmt.Fprintf(&md, "- URL: <%s>\n- Domain: %s\n- Category: %s\n", a.ActualURL, a.Domain, a.Organization.Category)
		if len(a.Organization.Tags) > 0 {
			fmt.Fprintf(&md, "- Tags: %s\n", strings.Join(a.Organization.Tags, ", "))
		}
		fmt.Fprintf(&md, "- Added: %s\n", a.Timestamps.DateAdded.UTC().Format(time.RFC3339))
		if includeContent && a.Content != "" {
			md.WriteString("\n")
			md.WriteString(a.Content)
			md.WriteString("\n")
		}
		var rendered bytes.Buffer
		if err := s.md.Convert(md.Bytes(), &rendered); err != nil {
			return nil, fmt.Errorf("transfer: render %s: %w", a.ID, err)
		}
		b.Write(s.policy.SanitizeBytes(rendered.Bytes()))
		b.WriteString("</article>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}

// Import loads a JSON or Markdown export. Articles whose clean URL already
// exists and categories whose name exists are skipped. Settings, present only
// in JSON exports, are replaced only when merge is false.
func (s *Service) Import(ctx context.Context, data []byte, merge bool) (Result, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte(fmDelim)) {
		drafts, skipped := parseMarkdown(trimmed)
		res, err := s.saveArticles(ctx, drafts)
		res.Skipped += skipped
		s.logImport(res, merge)
		return res, err
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Result{}, fmt.Errorf("transfer: decode import: %v: %w", err, apperr.ErrInvalidInput)
	}
	drafts := make([]models.ArticleDraft, 0, len(doc.Articles))
	for _, a := range doc.Articles {
		drafts = append(drafts, draftOf(a))
	}
	res, err := s.saveArticles(ctx, drafts)
	if err != nil {
		return res, err
	}

	existing, err := s.store.GetAllCategories(ctx)
	if err != nil {
		return res, err
	}
	names := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		names[c.Name] = struct{}{}
	}
	for _, c := range doc.Categories {
		if _, ok := names[c.Name]; ok {
			res.CategoriesSkipped++
			continue
		}
		if _, err := s.store.SaveCategory(ctx, c.Name, c.Color); err != nil {
			return res, err
		}
		names[c.Name] = struct{}{}
		res.CategoriesImported++
	}

	if !merge && doc.Settings != nil {
		if _, err := s.settings.Save(ctx, *doc.Settings); err != nil {
			return res, err
		}
		res.SettingsReplaced = true
	}

	s.logImport(res, merge)
	return res, nil
}

func (s *Service) saveArticles(ctx context.Context, drafts []models.ArticleDraft) (Result, error) {
	var res Result
	for _, d := range drafts {
		_, created, err := s.store.SaveArticle(ctx, d)
		if errors.Is(err, apperr.ErrInvalidURL) {
			s.logger.Warn("transfer: skipping article", slog.String("url", d.ActualURL), slog.String("error", err.Error()))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		if created {
			res.Imported++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

func (s *Service) logImport(res Result, merge bool) {
	s.logger.Info("transfer: import complete",
		slog.Int("imported", res.Imported), slog.Int("skipped", res.Skipped), slog.Bool("merge", merge))
}

func draftOf(a models.Article) models.ArticleDraft {
	return models.ArticleDraft{
		CleanURL:     a.CleanURL,
		ActualURL:    a.ActualURL,
		Title:        a.Title,
		Content:      a.Content,
		Favicon:      a.Favicon,
		Metadata:     a.Metadata,
		Organization: a.Organization,
		Workflow:     a.Workflow,
	}
}
