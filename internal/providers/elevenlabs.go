package providers

import (
	"context"
	"net/url"
	"strings"

	"github.com/starford/quest/internal/audio"
	"github.com/starford/quest/internal/models"
)

// ElevenLabs synthesizes MP3 speech.
type ElevenLabs struct {
	c       *client
	baseURL string
}

var _ SpeechSynthesizer = (*ElevenLabs)(nil)

func newElevenLabs(c *client, baseURL string) *ElevenLabs {
	return &ElevenLabs{c: c, baseURL: strings.TrimRight(baseURL, "/")}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error) {
	body := map[string]any{
		"text":     req.Text,
		"model_id": req.Model,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.5,
		},
	}
	headers := map[string]string{
		"Accept":     audio.MIMEMPEG,
		"xi-api-key": req.APIKey,
	}
	raw, err := e.c.postJSON(ctx, models.ProviderElevenLabs,
		e.baseURL+"/text-to-speech/"+url.PathEscape(req.Voice), headers, body, textErrorMessage("ElevenLabs API error"))
	if err != nil {
		return SpeechResult{}, err
	}
	return SpeechResult{Audio: raw, MIMEType: audio.DetectMIME(raw)}, nil
}

// textErrorMessage uses the raw body as the message.
func textErrorMessage(fallback string) errorMessage {
	return func(body []byte) string {
		if s := strings.TrimSpace(string(body)); s != "" {
			return s
		}
		return fallback
	}
}
