// Package models defines the entity, settings and provider types shared across Quest.
package models

import (
	"fmt"
	"strings"

	"github.com/starford/quest/internal/apperr"
)

// Provider identifies an external generation vendor.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderGemini     Provider = "gemini"
	ProviderElevenLabs Provider = "elevenlabs"
)

// ParseProvider maps a case-insensitive provider id to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderGemini, ProviderElevenLabs:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q: %w", s, apperr.ErrInvalidInput)
	}
}

// DisplayName returns the vendor name used in user-facing messages.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderGemini:
		return "Gemini"
	case ProviderElevenLabs:
		return "ElevenLabs"
	default:
		return string(p)
	}
}

// GeneratesText reports whether the provider offers text generation.
func (p Provider) GeneratesText() bool {
	return p == ProviderOpenAI || p == ProviderGemini
}

// SynthesizesSpeech reports whether the provider offers speech synthesis.
func (p Provider) SynthesizesSpeech() bool {
	return p == ProviderElevenLabs || p == ProviderGemini
}

// SummaryKind selects the summary template family.
type SummaryKind string

const (
	SummaryConcise  SummaryKind = "concise"
	SummaryExtended SummaryKind = "extended"
)

// ParseSummaryKind maps a kind string to a SummaryKind. Empty means concise.
func ParseSummaryKind(s string) (SummaryKind, error) {
	switch k := SummaryKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SummaryConcise, nil
	case SummaryConcise, SummaryExtended:
		return k, nil
	default:
		return "", fmt.Errorf("unknown summary kind %q: %w", s, apperr.ErrInvalidInput)
	}
}
