package models

import "time"

// DefaultCategory is assigned to articles saved without a category.
const DefaultCategory = "Uncategorized"

// Article is a saved web page with its extracted text and organization state.
type Article struct {
	ID           string          `json:"id"`
	CleanURL     string          `json:"cleanUrl"`
	ActualURL    string          `json:"actualUrl"`
	Title        string          `json:"title"`
	Domain       string          `json:"domain"`
	Content      string          `json:"content"`
	Favicon      string          `json:"favicon,omitempty"`
	Metadata     ArticleMetadata `json:"metadata"`
	Organization Organization    `json:"organization"`
	Timestamps   Timestamps      `json:"timestamps"`
	Workflow     Workflow        `json:"workflow"`
	SummaryIDs   []string        `json:"summaryIds"`
	// AudioID is the id of the Summary whose audio exists.
	AudioID string `json:"audioId,omitempty"`
}

type ArticleMetadata struct {
	Author      string `json:"author,omitempty"`
	PublishDate string `json:"publishDate,omitempty"`
	WordCount   int    `json:"wordCount"`
	ReadingTime string `json:"readingTime"`
}

type Organization struct {
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	IsPinned   bool     `json:"isPinned"`
	IsArchived bool     `json:"isArchived"`
	IsRead     bool     `json:"isRead"`
}

type Timestamps struct {
	DateAdded    time.Time  `json:"dateAdded"`
	LastAccessed time.Time  `json:"lastAccessed"`
	DateRead     *time.Time `json:"dateRead,omitempty"`
}

type Workflow struct {
	ReminderScheduled    bool       `json:"reminderScheduled"`
	ReminderTime         *time.Time `json:"reminderTime,omitempty"`
	CleanupEligible      bool       `json:"cleanupEligible"`
	ProtectedFromCleanup bool       `json:"protectedFromCleanup"`
}

// ArticleDraft is the caller-supplied part of a new article.
// Empty fields receive store defaults.
type ArticleDraft struct {
	CleanURL     string          `json:"cleanUrl"`
	ActualURL    string          `json:"actualUrl"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Favicon      string          `json:"favicon,omitempty"`
	Metadata     ArticleMetadata `json:"metadata"`
	Organization Organization    `json:"organization"`
	Workflow     Workflow        `json:"workflow"`
}

// ArticlePatch is a partial update. Nil fields are left unchanged; sub-objects
// are merged field by field. A nil slice keeps the current list, an empty one clears it.
// The summary list and audio reference are maintained by the store only.
type ArticlePatch struct {
	Title        *string            `json:"title,omitempty"`
	ActualURL    *string            `json:"actualUrl,omitempty"`
	Content      *string            `json:"content,omitempty"`
	Favicon      *string            `json:"favicon,omitempty"`
	Metadata     *MetadataPatch     `json:"metadata,omitempty"`
	Organization *OrganizationPatch `json:"organization,omitempty"`
	Timestamps   *TimestampsPatch   `json:"timestamps,omitempty"`
	Workflow     *WorkflowPatch     `json:"workflow,omitempty"`
}

type MetadataPatch struct {
	Author      *string `json:"author,omitempty"`
	PublishDate *string `json:"publishDate,omitempty"`
	WordCount   *int    `json:"wordCount,omitempty"`
	ReadingTime *string `json:"readingTime,omitempty"`
}

type OrganizationPatch struct {
	Category   *string  `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	IsPinned   *bool    `json:"isPinned,omitempty"`
	IsArchived *bool    `json:"isArchived,omitempty"`
	IsRead     *bool    `json:"isRead,omitempty"`
}

type TimestampsPatch struct {
	DateRead *time.Time `json:"dateRead,omitempty"`
}

type WorkflowPatch struct {
	ReminderScheduled    *bool      `json:"reminderScheduled,omitempty"`
	ReminderTime         *time.Time `json:"reminderTime,omitempty"`
	CleanupEligible      *bool      `json:"cleanupEligible,omitempty"`
	ProtectedFromCleanup *bool      `json:"protectedFromCleanup,omitempty"`
}

// ReadStatus filters articles by read flag.
type ReadStatus string

const (
	ReadStatusAll    ReadStatus = "all"
	ReadStatusRead   ReadStatus = "read"
	ReadStatusUnread ReadStatus = "unread"
)

// ArticleFilter narrows ListArticles. Zero values match everything.
type ArticleFilter struct {
	Category string
	Tag      string
	Domain   string
	Status   ReadStatus
	Archived *bool
	Pinned   *bool
	Search   string
	Limit    int
}
