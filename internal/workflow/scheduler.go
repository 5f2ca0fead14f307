// Package workflow runs the periodic library jobs: archiving read articles
// after the configured number of days and announcing due reminders.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/sse"
)

// Store is the part of the entity store the jobs use.
type Store interface {
	ListArticles(ctx context.Context, f models.ArticleFilter) ([]models.Article, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	UpdateArticle(ctx context.Context, id string, p models.ArticlePatch) (*models.Article, error)
	DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error)
	DeleteReminder(ctx context.Context, articleID string) error
}

// Settings loads the user settings record.
type Settings interface {
	Load(ctx context.Context) (models.Settings, error)
}

// Notifier receives job results.
type Notifier interface {
	PublishArticle(eventType, id string)
	PublishReminder(articleID, title string)
}

// Scheduler runs the jobs on a fixed interval.
type Scheduler struct {
	store    Store
	settings Settings
	notify   Notifier
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Scheduler. An interval of zero means one hour.
func New(store Store, settings Settings, notify Notifier, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, settings: settings, notify: notify, interval: interval, logger: logger, now: time.Now}
}

// Run executes the jobs once immediately and then on every tick until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("workflow: run failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce executes every job a single time.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	rec, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Warn("workflow: settings unavailable, using defaults", slog.String("error", err.Error()))
	}
	now := s.now()
	archived, aerr := s.autoArchive(ctx, rec, now)
	reminded, rerr := s.dueReminders(ctx, now)
	if archived > 0 || reminded > 0 {
		s.logger.Info("workflow: run complete", slog.Int("archived", archived), slog.Int("reminders", reminded))
	}
	return errors.Join(aerr, rerr)
}

func (s *Scheduler) autoArchive(ctx context.Context, rec models.Settings, now time.Time) (int, error) {
	if !rec.AutoArchive || rec.ArchiveDays <= 0 {
		return 0, nil
	}
	notArchived, notPinned := false, false
	candidates, err := s.store.ListArticles(ctx, models.ArticleFilter{
		Status:   models.ReadStatusRead,
		Archived: &notArchived,
		Pinned:   &notPinned,
	})
	if err != nil {
		return 0, err
	}

	cutoff := now.AddDate(0, 0, -rec.ArchiveDays)
	archive := true
	n := 0
	for _, a := range candidates {
		if a.Workflow.ProtectedFromCleanup || a.Timestamps.DateRead == nil || a.Timestamps.DateRead.After(cutoff) {
			continue
		}
		if _, err := s.store.UpdateArticle(ctx, a.ID, models.ArticlePatch{
			Organization: &models.OrganizationPatch{IsArchived: &archive},
		}); err != nil {
			return n, err
		}
		s.notify.PublishArticle(sse.ArticleUpdated, a.ID)
		n++
	}
	return n, nil
}

func (s *Scheduler) dueReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		return 0, err
	}
	scheduled := false
	n := 0
	for _, r := range due {
		title := ""
		a, err := s.store.GetArticle(ctx, r.ArticleID)
		if err != nil {
			return n, err
		}
		if a != nil {
			title = a.Title
			if _, err := s.store.UpdateArticle(ctx, a.ID, models.ArticlePatch{
				Workflow: &models.WorkflowPatch{ReminderScheduled: &scheduled},
			}); err != nil {
				return n, err
			}
		}
		s.notify.PublishReminder(r.ArticleID, title)
		if err := s.store.DeleteReminder(ctx, r.ArticleID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
