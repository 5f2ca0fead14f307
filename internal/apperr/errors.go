// Package apperr defines the error taxonomy shared by the store, the
// generation pipeline and the transport layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrContentTooShort   = errors.New("content too short")
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidAudio      = errors.New("invalid audio")
	ErrProvider          = errors.New("provider error")
	ErrDecode            = errors.New("decode error")
	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidInput      = errors.New("invalid input")
)

// ContentTooShortError reports article content below the summarization minimum.
type ContentTooShortError struct {
	Length int
}

func (e *ContentTooShortError) Error() string {
	return fmt.Sprintf("Article content is too short or empty (%d characters). "+
		"Please save the article again from the original URL to extract content.", e.Length)
}

func (e *ContentTooShortError) Is(target error) bool { return target == ErrContentTooShort }

// MissingCredentialError reports that no usable API key exists for a provider.
// DisplayName is the human-facing provider name used in the remediation text.
type MissingCredentialError struct {
	Provider    string
	DisplayName string
}

func (e *MissingCredentialError) Error() string {
	name := e.DisplayName
	if name == "" {
		name = e.Provider
	}
	return fmt.Sprintf("%s API key not configured!\n\n"+
		"Please go to Settings → AI Configuration to add your %s API key.\n"+
		"Click the gear icon in the top right corner to access settings.", name, name)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }

// ProviderError carries an upstream provider failure message verbatim.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// DecodeError reports a failure inside the audio decode worker.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string { return e.Message }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// InvalidAudio wraps ErrInvalidAudio with a reason.
func InvalidAudio(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidAudio)
}
