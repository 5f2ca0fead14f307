package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

const geminiTTSPrompt = "Say the following in a natural, conversational way suitable for a podcast or audiobook:"

// Decoder turns inline base64 audio into a playable payload off the caller's goroutine.
type Decoder interface {
	Decode(ctx context.Context, b64, mimeType string) ([]byte, string, error)
}

// Gemini generates text and speech through the generateContent API.
type Gemini struct {
	c       *client
	baseURL string
	decoder Decoder
}

var (
	_ TextGenerator     = (*Gemini)(nil)
	_ SpeechSynthesizer = (*Gemini)(nil)
)

func newGemini(c *client, baseURL string, decoder Decoder) *Gemini {
	return &Gemini{c: c, baseURL: strings.TrimRight(baseURL, "/"), decoder: decoder}
}

type geminiPart struct {
	Text       string `json:"text,omitempty"`
	InlineData *struct {
		MIMEType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (g *Gemini) call(ctx context.Context, apiKey, model string, body any, fallback string) (*geminiResponse, error) {
	endpoint := g.baseURL + "/models/" + url.PathEscape(model) + ":generateContent"
	raw, err := g.c.postJSON(ctx, models.ProviderGemini, endpoint,
		map[string]string{"x-goog-api-key": apiKey}, body, jsonErrorMessage(fallback))
	if err != nil {
		return nil, err
	}
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("providers: parse gemini response: %w", err)
	}
	return &resp, nil
}

func textContents(text string) []map[string]any {
	return []map[string]any{{"parts": []map[string]string{{"text": text}}}}
}

func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	resp, err := g.call(ctx, req.APIKey, req.Model, map[string]any{"contents": textContents(req.Prompt)}, "Gemini API error")
	if err != nil {
		return TextResult{}, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return TextResult{}, &apperr.ProviderError{Provider: string(models.ProviderGemini), Message: "Gemini returned no candidates"}
	}
	text := resp.Candidates[0].Content.Parts[0].Text

	// Usage metadata is optional; missing counts are estimated.
	u := resp.UsageMetadata
	in, out, total := u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount
	if in == 0 {
		in = estimateTokens(req.Prompt)
	}
	if out == 0 {
		out = estimateTokens(text)
	}
	if total == 0 {
		total = in + out
	}
	return TextResult{Text: text, InputTokens: in, OutputTokens: out, TotalTokens: total}, nil
}

func (g *Gemini) Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error) {
	body := map[string]any{
		"contents": textContents(geminiTTSPrompt + "\n\n" + req.Text),
		"generationConfig": map[string]any{
			"response_modalities": []string{"AUDIO"},
			"speech_config": map[string]any{
				"voice_config": map[string]any{
					"prebuilt_voice_config": map[string]string{"voice_name": req.Voice},
				},
			},
		},
	}
	resp, err := g.call(ctx, req.APIKey, req.Model, body, "Gemini TTS API error")
	if err != nil {
		return SpeechResult{}, err
	}

	var inline *geminiPart
	if len(resp.Candidates) > 0 {
		for i, p := range resp.Candidates[0].Content.Parts {
			if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
				inline = &resp.Candidates[0].Content.Parts[i]
				break
			}
		}
	}
	if inline == nil || inline.InlineData.Data == "" {
		return SpeechResult{}, &apperr.ProviderError{Provider: string(models.ProviderGemini), Message: "No audio data returned from Gemini TTS"}
	}

	data, mimeType, err := g.decoder.Decode(ctx, inline.InlineData.Data, inline.InlineData.MIMEType)
	if err != nil {
		return SpeechResult{}, err
	}
	return SpeechResult{Audio: data, MIMEType: mimeType}, nil
}
