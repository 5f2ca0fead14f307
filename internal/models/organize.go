package models

import "time"

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Tag counts how many articles carry a tag name.
type Tag struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usageCount"`
}

type Reminder struct {
	ArticleID    string    `json:"articleId"`
	ReminderTime time.Time `json:"reminderTime"`
	Created      time.Time `json:"created"`
}

// Audit actions.
const (
	ActionGenerateSummary = "generate_summary"
	ActionGeneratePodcast = "generate_podcast"
)

// AuditLog is an append-only record of one generation attempt.
type AuditLog struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Provider  Provider       `json:"provider,omitempty"`
	Model     string         `json:"model,omitempty"`
	ArticleID string         `json:"articleId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
}

// AuditDraft is the input to LogAudit. A nil Success means true.
type AuditDraft struct {
	Action    string
	Provider  Provider
	Model     string
	ArticleID string
	Details   map[string]any
	Success   *bool
	Error     string
}

// Stats is a library overview.
type Stats struct {
	TotalArticles    int `json:"totalArticles"`
	UnreadArticles   int `json:"unreadArticles"`
	ReadToday        int `json:"readToday"`
	TotalSummaries   int `json:"totalSummaries"`
	TotalPodcasts    int `json:"totalPodcasts"`
	ArticlesEnhanced int `json:"articlesEnhanced"`
}
