// Package providers implements the text-generation and speech-synthesis
// capabilities of the supported AI vendors over their HTTP APIs.
package providers

import (
	"context"
	"fmt"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

// TextRequest is one text generation call.
type TextRequest struct {
	APIKey string
	Model  string
	Prompt string
}

// TextResult is generated text plus usage counts as reported (or estimated).
type TextResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// SpeechRequest is one speech synthesis call.
type SpeechRequest struct {
	APIKey string
	Model  string
	Voice  string
	Text   string
}

// SpeechResult is encoded audio ready for persistence.
type SpeechResult struct {
	Audio    []byte
	MIMEType string
}

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (TextResult, error)
}

// SpeechSynthesizer turns text into audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error)
}

// Set selects capability implementations by provider id.
type Set struct {
	text   map[models.Provider]TextGenerator
	speech map[models.Provider]SpeechSynthesizer
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{
		text:   make(map[models.Provider]TextGenerator),
		speech: make(map[models.Provider]SpeechSynthesizer),
	}
}

// RegisterText binds g to p.
func (s *Set) RegisterText(p models.Provider, g TextGenerator) *Set {
	s.text[p] = g
	return s
}

// RegisterSpeech binds sy to p.
func (s *Set) RegisterSpeech(p models.Provider, sy SpeechSynthesizer) *Set {
	s.speech[p] = sy
	return s
}

// Text returns the text generator for p.
func (s *Set) Text(p models.Provider) (TextGenerator, error) {
	g, ok := s.text[p]
	if !ok {
		return nil, fmt.Errorf("providers: %s does not generate text: %w", p, apperr.ErrInvalidInput)
	}
	return g, nil
}

// Speech returns the speech synthesizer for p.
func (s *Set) Speech(p models.Provider) (SpeechSynthesizer, error) {
	sy, ok := s.speech[p]
	if !ok {
		return nil, fmt.Errorf("providers: %s does not synthesize speech: %w", p, apperr.ErrInvalidInput)
	}
	return sy, nil
}
