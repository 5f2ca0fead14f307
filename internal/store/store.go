package store

import (
	"context"
	"time"

	"github.com/starford/quest/internal/models"
)

// Repository is the full entity-store surface used by the transport layers.
type Repository interface {
	SaveArticle(ctx context.Context, d models.ArticleDraft) (*models.Article, bool, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	GetArticleByCleanURL(ctx context.Context, cleanURL string) (*models.Article, error)
	GetAllArticles(ctx context.Context) ([]models.Article, error)
	ListArticles(ctx context.Context, f models.ArticleFilter) ([]models.Article, error)
	SearchArticles(ctx context.Context, query string, limit int) ([]SearchResult, error)
	UpdateArticle(ctx context.Context, id string, p models.ArticlePatch) (*models.Article, error)
	DeleteArticle(ctx context.Context, id string) error

	SaveSummary(ctx context.Context, s models.Summary) (*models.Summary, error)
	GetSummary(ctx context.Context, id string) (*models.Summary, error)
	GetSummariesForArticle(ctx context.Context, articleID string) ([]models.Summary, error)
	GetAllSummaries(ctx context.Context) ([]models.Summary, error)

	SaveAudioFile(ctx context.Context, f models.AudioFile) (*models.AudioFile, error)
	SetArticleAudio(ctx context.Context, articleID, summaryID string) (*models.Article, error)
	GetAudioFileBySummaryID(ctx context.Context, summaryID string) (*models.AudioFile, error)
	GetAllAudioFiles(ctx context.Context) ([]models.AudioFile, error)

	SaveCategory(ctx context.Context, name, color string) (*models.Category, error)
	GetAllCategories(ctx context.Context) ([]models.Category, error)
	UpdateTagUsage(ctx context.Context, name string, delta int) (*models.Tag, error)
	GetAllTags(ctx context.Context) ([]models.Tag, error)

	SaveReminder(ctx context.Context, articleID string, at time.Time) (*models.Reminder, error)
	GetReminder(ctx context.Context, articleID string) (*models.Reminder, error)
	DeleteReminder(ctx context.Context, articleID string) error
	DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error)

	LogAudit(ctx context.Context, d models.AuditDraft) (*models.AuditLog, error)
	GetAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
	ClearAuditLogs(ctx context.Context) error

	Stats(ctx context.Context, now time.Time) (models.Stats, error)
	Ping(ctx context.Context) error
}

var _ Repository = (*DB)(nil)
