package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quest/internal/apperr"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	var verr validation.Errors
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrContentTooShort),
		errors.Is(err, apperr.ErrInvalidAudio),
		errors.Is(err, apperr.ErrInvalidURL),
		errors.Is(err, apperr.ErrInvalidInput),
		errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrMissingCredential):
		return http.StatusPreconditionFailed
	case errors.Is(err, apperr.ErrProvider), errors.Is(err, apperr.ErrDecode):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError reports err to the client. Unexpected errors are logged and
// replaced with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("api: "+op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty: %w", apperr.ErrInvalidInput)
		}
		return fmt.Errorf("invalid JSON body: %w", apperr.ErrInvalidInput)
	}
	return nil
}
