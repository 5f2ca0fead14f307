// Package catalog holds the static model, voice and pricing tables for every
// supported provider, plus the cost functions derived from them.
package catalog

import "github.com/starford/quest/internal/models"

// Model is a text-generation model. Prices are USD per 1M tokens.
type Model struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	InputPrice  float64 `json:"inputPrice"`
	OutputPrice float64 `json:"outputPrice"`
	Recommended bool    `json:"recommended,omitempty"`
}

// SpeechModel is a text-to-speech model. PricePerMillionChars is zero when
// the vendor bills per plan rather than per character.
type SpeechModel struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	CharacterLimit       int     `json:"characterLimit"`
	PricePerMillionChars float64 `json:"pricePerMillionChars,omitempty"`
	Recommended          bool    `json:"recommended,omitempty"`
}

type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

var openAIModels = []Model{
	{ID: "gpt-5-nano", Name: "GPT-5 Nano", InputPrice: 0.05, OutputPrice: 0.4, Recommended: true},
	{ID: "gpt-5-mini", Name: "GPT-5 Mini", InputPrice: 0.25, OutputPrice: 2.0},
	{ID: "gpt-5", Name: "GPT-5", InputPrice: 1.25, OutputPrice: 10.0},
	{ID: "gpt-4.1-nano", Name: "GPT-4.1 Nano", InputPrice: 0.1, OutputPrice: 0.4},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", InputPrice: 0.4, OutputPrice: 1.6},
	{ID: "gpt-4.1", Name: "GPT-4.1", InputPrice: 2.0, OutputPrice: 8.0},
}

var geminiModels = []Model{
	{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash-Lite", InputPrice: 0.10, OutputPrice: 0.40},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", InputPrice: 0.30, OutputPrice: 2.50, Recommended: true},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", InputPrice: 1.25, OutputPrice: 10.00},
}

var geminiSpeechModels = []SpeechModel{
	{ID: "gemini-2.5-flash-preview-tts", Name: "Gemini 2.5 Flash TTS", CharacterLimit: 5000, PricePerMillionChars: 10.0, Recommended: true},
	{ID: "gemini-2.5-pro-preview-tts", Name: "Gemini 2.5 Pro TTS", CharacterLimit: 5000, PricePerMillionChars: 80.0},
}

var elevenLabsSpeechModels = []SpeechModel{
	{ID: "eleven_flash_v2_5", Name: "Eleven Flash v2.5", CharacterLimit: 40000},
	{ID: "eleven_turbo_v2_5", Name: "Eleven Turbo v2.5", CharacterLimit: 40000},
	{ID: "eleven_multilingual_v2", Name: "Eleven Multilingual v2", CharacterLimit: 10000, Recommended: true},
	{ID: "eleven_v3", Name: "Eleven v3", CharacterLimit: 3000},
}

var elevenLabsVoices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Gender: "female"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah", Gender: "female"},
	{ID: "9BWtsMINqrJLrRacOk9x", Name: "Aria", Gender: "female"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Gender: "female"},
	{ID: "29vD33N1CtxCmqQRPOHJ", Name: "Drew", Gender: "male"},
	{ID: "5Q0t7uMcjvnagumLfvZi", Name: "Paul", Gender: "male"},
	{ID: "CwhRBWXzGAHq8TQ4Fs17", Name: "Roger", Gender: "male"},
	{ID: "CYw3kZ02Hs0563khs1Fj", Name: "Dave", Gender: "male"},
}

var geminiVoiceNames = []struct{ name, gender string }{
	{"Achernar", "female"}, {"Achird", "male"}, {"Algenib", "male"}, {"Algieba", "male"},
	{"Alnilam", "male"}, {"Aoede", "female"}, {"Autonoe", "female"}, {"Callirrhoe", "female"},
	{"Charon", "male"}, {"Despina", "female"}, {"Enceladus", "male"}, {"Erinome", "female"},
	{"Fenrir", "male"}, {"Gacrux", "female"}, {"Iapetus", "male"}, {"Kore", "female"},
	{"Laomedeia", "female"}, {"Leda", "female"}, {"Orus", "male"}, {"Pulcherrima", "female"},
	{"Puck", "male"}, {"Rasalgethi", "male"}, {"Sadachbia", "male"}, {"Sadaltager", "male"},
	{"Schedar", "male"}, {"Sulafat", "female"}, {"Umbriel", "male"}, {"Vindemiatrix", "female"},
	{"Zephyr", "female"}, {"Zubenelgenubi", "male"},
}

// Per-1K-character estimates used for podcast cost accounting.
const (
	elevenLabsCostPer1KChars = 0.30
	geminiTTSCostPer1KChars  = 0.06
)

// Defaults applied when settings name no model or voice.
const (
	DefaultOpenAIModel       = "gpt-4.1"
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultElevenLabsModel   = "eleven_multilingual_v2"
	DefaultElevenLabsVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultGeminiTTSModel    = "gemini-2.5-flash-preview-tts"
	DefaultGeminiTTSVoice    = "Achernar"
)

// Models returns the text models offered by provider, cheapest tier first.
func Models(p models.Provider) []Model {
	switch p {
	case models.ProviderOpenAI:
		return openAIModels
	case models.ProviderGemini:
		return geminiModels
	default:
		return nil
	}
}

// ModelByID looks up a text model. ok is false for unknown ids.
func ModelByID(p models.Provider, id string) (Model, bool) {
	for _, m := range Models(p) {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// SpeechModels returns the TTS models offered by provider.
func SpeechModels(p models.Provider) []SpeechModel {
	switch p {
	case models.ProviderGemini:
		return geminiSpeechModels
	case models.ProviderElevenLabs:
		return elevenLabsSpeechModels
	default:
		return nil
	}
}

// Voices returns the selectable voices for a TTS provider.
func Voices(p models.Provider) []Voice {
	switch p {
	case models.ProviderElevenLabs:
		return elevenLabsVoices
	case models.ProviderGemini:
		out := make([]Voice, len(geminiVoiceNames))
		for i, v := range geminiVoiceNames {
			out[i] = Voice{ID: v.name, Name: v.name, Gender: v.gender}
		}
		return out
	default:
		return nil
	}
}

// DefaultModel returns the model used when settings name none.
func DefaultModel(p models.Provider) string {
	switch p {
	case models.ProviderOpenAI:
		return DefaultOpenAIModel
	case models.ProviderGemini:
		return DefaultGeminiModel
	default:
		return ""
	}
}

// ProbeModel returns the cheapest model of a provider, used for key checks.
func ProbeModel(p models.Provider) string {
	if ms := Models(p); len(ms) > 0 {
		return ms[0].ID
	}
	if ms := SpeechModels(p); len(ms) > 0 {
		return ms[0].ID
	}
	return ""
}

// CalculateCost prices a text generation call. Unknown models cost nothing.
func CalculateCost(p models.Provider, modelID string, inputTokens, outputTokens int) float64 {
	m, ok := ModelByID(p, modelID)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*m.InputPrice + float64(outputTokens)/1_000_000*m.OutputPrice
}

// SpeechCost estimates the cost of synthesizing characters of text.
func SpeechCost(p models.Provider, characters int) float64 {
	switch p {
	case models.ProviderElevenLabs:
		return float64(characters) / 1000 * elevenLabsCostPer1KChars
	case models.ProviderGemini:
		return float64(characters) / 1000 * geminiTTSCostPer1KChars
	default:
		return 0
	}
}
