package models

// Settings is the user-facing configuration record.
type Settings struct {
	Theme           string `json:"theme"`
	AutoArchive     bool   `json:"autoArchive"`
	ArchiveDays     int    `json:"archiveDays"`
	EnableReminders bool   `json:"enableReminders"`
	ReminderTime    string `json:"reminderTime"`
	DefaultCategory string `json:"defaultCategory"`
	AutoSummary     bool   `json:"autoSummary"`
	AutoPodcast     bool   `json:"autoPodcast"`

	SummaryProvider Provider `json:"summaryProvider"`
	OpenAIModel     string   `json:"openaiModel"`
	GeminiModel     string   `json:"geminiModel"`

	TTSProvider       Provider `json:"ttsProvider"`
	ElevenLabsModel   string   `json:"elevenlabsModel"`
	ElevenLabsVoiceID string   `json:"elevenlabsVoiceId"`
	GeminiTTSModel    string   `json:"geminiTtsModel"`
	GeminiTTSVoice    string   `json:"geminiTtsVoice"`
}
