package models

import "time"

// Summary is an immutable AI-generated condensation of an article.
type Summary struct {
	ID            string      `json:"id"`
	ArticleID     string      `json:"articleId"`
	Content       string      `json:"content"`
	Kind          SummaryKind `json:"type"`
	Provider      Provider    `json:"aiProvider"`
	Model         string      `json:"model,omitempty"`
	GeneratedDate time.Time   `json:"generatedDate"`
	InputTokens   int         `json:"inputTokens"`
	OutputTokens  int         `json:"outputTokens"`
	TotalTokens   int         `json:"totalTokens"`
	EstimatedCost float64     `json:"estimatedCost"`
}

// AudioBlob is a playable audio payload.
type AudioBlob struct {
	Data     []byte
	MIMEType string
}

// Size returns the payload length in bytes.
func (b *AudioBlob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// AudioFile is synthesized speech for one summary.
type AudioFile struct {
	ID        string     `json:"id"`
	SummaryID string     `json:"summaryId"`
	Audio     *AudioBlob `json:"-"`
	// Duration is in seconds.
	Duration       float64   `json:"duration"`
	GeneratedDate  time.Time `json:"generatedDate"`
	Provider       Provider  `json:"provider"`
	VoiceID        string    `json:"voiceId,omitempty"`
	CharacterCount int       `json:"characterCount"`
	EstimatedCost  float64   `json:"estimatedCost"`
	MIMEType       string    `json:"mimeType,omitempty"`
	Size           int       `json:"size"`
}
