package providers

import "github.com/starford/quest/internal/models"

// NewHTTPSet wires the vendor implementations onto one shared, rate-limited
// HTTP client. decoder handles Gemini's inline audio.
func NewHTTPSet(o Options, decoder Decoder) *Set {
	o = o.withDefaults()
	c := newClient(o)
	gem := newGemini(c, o.GeminiBaseURL, decoder)
	return NewSet().
		RegisterText(models.ProviderOpenAI, newOpenAI(c, o.OpenAIBaseURL)).
		RegisterText(models.ProviderGemini, gem).
		RegisterSpeech(models.ProviderGemini, gem).
		RegisterSpeech(models.ProviderElevenLabs, newElevenLabs(c, o.ElevenLabsBaseURL))
}
