// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Quest library and generation tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/store"
)

const (
	defaultSearchLimit = 20
	defaultAuditLimit  = 50
)

// Store is the part of the entity store exposed as tools.
type Store interface {
	SearchArticles(ctx context.Context, query string, limit int) ([]store.SearchResult, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	SaveArticle(ctx context.Context, d models.ArticleDraft) (*models.Article, bool, error)
	GetSummariesForArticle(ctx context.Context, articleID string) ([]models.Summary, error)
	GetAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// Generator runs summary and podcast generation.
type Generator interface {
	GenerateSummary(ctx context.Context, articleID string, kind models.SummaryKind, provider models.Provider) (*models.Summary, error)
	GeneratePodcast(ctx context.Context, articleID, summaryID string) (*models.AudioFile, error)
}

// Server wraps the MCP server with Quest tools.
type Server struct {
	mcp   *server.MCPServer
	store Store
	gen   Generator
}

// New creates a new MCP server with all Quest tools registered.
func New(st Store, gen Generator, version string) *Server {
	s := &Server{store: st, gen: gen}

	s.mcp = server.NewMCPServer(
		"Quest",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search through saved article titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("get_article",
		mcp.WithDescription("Read a saved article, including its extracted content and organization."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Article id")),
	), s.getArticle)

	s.mcp.AddTool(mcp.NewTool("save_article",
		mcp.WithDescription("Save a web article. An article with the same URL is returned instead of duplicated."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page URL")),
		mcp.WithString("title", mcp.Description("Article title")),
		mcp.WithString("content", mcp.Description("Extracted plain-text content")),
		mcp.WithString("category", mcp.Description("Category name")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.saveArticle)

	s.mcp.AddTool(mcp.NewTool("list_summaries",
		mcp.WithDescription("List the summaries generated for an article, oldest first."),
		mcp.WithString("article_id", mcp.Required(), mcp.Description("Article id")),
	), s.listSummaries)

	s.mcp.AddTool(mcp.NewTool("generate_summary",
		mcp.WithDescription("Generate and store an AI summary of an article. Read the quest://guide resource for summary kinds."),
		mcp.WithString("article_id", mcp.Required(), mcp.Description("Article id")),
		mcp.WithString("kind", mcp.Enum("concise", "extended"), mcp.Description("Summary kind (default concise)")),
		mcp.WithString("provider", mcp.Enum("openai", "gemini"), mcp.Description("Text provider (default from settings)")),
	), s.generateSummary)

	s.mcp.AddTool(mcp.NewTool("generate_podcast",
		mcp.WithDescription("Synthesize podcast audio for an article summary and store it."),
		mcp.WithString("article_id", mcp.Required(), mcp.Description("Article id")),
		mcp.WithString("summary_id", mcp.Description("Existing summary id; omit to generate an extended summary first")),
	), s.generatePodcast)

	s.mcp.AddTool(mcp.NewTool("get_audit_logs",
		mcp.WithDescription("Return recent generation audit records, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records (default 50)")),
	), s.getAuditLogs)

	s.mcp.AddResource(
		mcp.NewResource("quest://guide", "Library Guide",
			mcp.WithResourceDescription("How articles, summaries and podcasts are modelled in Quest."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.SearchArticles(ctx, query, req.GetInt("limit", defaultSearchLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no articles found"), nil
	}
	return jsonResult(results)
}

func (s *Server) getArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if a == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(a)
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (s *Server) saveArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, created, err := s.store.SaveArticle(ctx, models.ArticleDraft{
		ActualURL: url,
		Title:     req.GetString("title", ""),
		Content:   req.GetString("content", ""),
		Organization: models.Organization{
			Category: req.GetString("category", ""),
			Tags:     splitTags(req.GetString("tags", "")),
		},
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"created": created, "article": a})
}

func (s *Server) listSummaries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("article_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.store.GetSummariesForArticle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no summaries found"), nil
	}
	return jsonResult(items)
}

func (s *Server) generateSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("article_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var provider models.Provider
	if p := req.GetString("provider", ""); p != "" {
		if provider, err = models.ParseProvider(p); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	kind := models.SummaryKind(req.GetString("kind", string(models.SummaryConcise)))
	if kind != models.SummaryConcise && kind != models.SummaryExtended {
		return mcp.NewToolResultError(fmt.Sprintf("unknown summary kind %q", kind)), nil
	}
	sum, err := s.gen.GenerateSummary(ctx, id, kind, provider)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (s *Server) generatePodcast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("article_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.gen.GeneratePodcast(ctx, id, req.GetString("summary_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(f)
}

func (s *Server) getAuditLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logs, err := s.store.GetAuditLogs(ctx, req.GetInt("limit", defaultAuditLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(logs)
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "quest://guide",
			MIMEType: "text/markdown",
			Text:     LibraryGuide,
		},
	}, nil
}
