package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

// Options configure the HTTP providers. Zero values select the public endpoints
// and an unlimited request rate.
type Options struct {
	OpenAIBaseURL     string
	GeminiBaseURL     string
	ElevenLabsBaseURL string
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"
)

func (o Options) withDefaults() Options {
	if o.OpenAIBaseURL == "" {
		o.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if o.GeminiBaseURL == "" {
		o.GeminiBaseURL = defaultGeminiBaseURL
	}
	if o.ElevenLabsBaseURL == "" {
		o.ElevenLabsBaseURL = defaultElevenLabsBaseURL
	}
	if o.HTTPClient == nil {
		// No client timeout; callers bound calls through ctx.
		o.HTTPClient = &http.Client{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// client is the transport shared by every vendor implementation.
type client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newClient(o Options) *client {
	limit := rate.Inf
	if o.RequestsPerSecond > 0 {
		limit = rate.Limit(o.RequestsPerSecond)
	}
	burst := o.Burst
	if burst < 1 {
		burst = 1
	}
	return &client{http: o.HTTPClient, limiter: rate.NewLimiter(limit, burst), logger: o.Logger}
}

// errorMessage extracts the vendor's error text from a failed response body.
type errorMessage func(body []byte) string

// postJSON sends body to url and returns the response body of a 200 reply.
// Any other status becomes a *apperr.ProviderError carrying the vendor message.
func (c *client) postJSON(ctx context.Context, p models.Provider, url string, headers map[string]string, body any, msg errorMessage) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("providers: %s rate limit: %w", p, err)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("providers: marshal %s request: %w", p, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("providers: create %s request: %w", p, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("providers: request", slog.String("provider", string(p)), slog.Int("body_bytes", len(raw)))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.ProviderError{Provider: string(p), Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("providers: read %s response: %w", p, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("providers: api error",
			slog.String("provider", string(p)), slog.Int("status", resp.StatusCode))
		return nil, &apperr.ProviderError{Provider: string(p), Status: resp.StatusCode, Message: msg(respBody)}
	}
	return respBody, nil
}

// jsonErrorMessage reads {"error":{"message":...}} and falls back to fallback.
func jsonErrorMessage(fallback string) errorMessage {
	return func(body []byte) string {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
			return e.Error.Message
		}
		return fallback
	}
}

// estimateTokens approximates a token count at four characters per token.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
