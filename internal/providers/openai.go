package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

const openAISystemPrompt = "You are a helpful assistant that creates article summaries."

// OpenAI generates text through the chat completions API.
type OpenAI struct {
	c       *client
	baseURL string
}

var _ TextGenerator = (*OpenAI)(nil)

func newOpenAI(c *client, baseURL string) *OpenAI {
	return &OpenAI{c: c, baseURL: strings.TrimRight(baseURL, "/")}
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (o *OpenAI) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	body := map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "system", "content": openAISystemPrompt},
			{"role": "user", "content": req.Prompt},
		},
		"temperature": 0.7,
		"max_tokens":  2000,
	}
	raw, err := o.c.postJSON(ctx, models.ProviderOpenAI, o.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + req.APIKey}, body, jsonErrorMessage("OpenAI API error"))
	if err != nil {
		return TextResult{}, err
	}

	var resp openAIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return TextResult{}, fmt.Errorf("providers: parse openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return TextResult{}, &apperr.ProviderError{Provider: string(models.ProviderOpenAI), Message: "OpenAI returned no choices"}
	}
	return TextResult{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}
