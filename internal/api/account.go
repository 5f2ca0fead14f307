package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quest/internal/models"
)

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the settings record
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	models.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	rec, err := h.settings.Load(r.Context())
	if err != nil {
		h.logger.Warn("api: settings unreadable, serving defaults", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, rec)
}

// PutSettings handles PUT /api/settings. The record replaces the stored one;
// fields left empty take their defaults.
//
//	@Summary		Replace the settings record
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Settings	true	"Settings"
//	@Success		200		{object}	models.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var rec models.Settings
	if err := decodeJSON(w, r, &rec); err != nil {
		h.writeError(w, "save settings", err)
		return
	}
	saved, err := h.settings.Save(r.Context(), rec)
	if err != nil {
		h.writeError(w, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func providerParam(r *http.Request) (models.Provider, error) {
	return models.ParseProvider(chi.URLParam(r, "provider"))
}

// ListCredentials handles GET /api/credentials. Only presence is reported.
//
//	@Summary		Report which providers have a stored key
//	@Tags			credentials
//	@Produce		json
//	@Success		200	{object}	map[string]map[string]bool
//	@Security		BearerAuth
//	@Router			/credentials [get]
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	configured, err := h.keys.Configured(r.Context())
	if err != nil {
		h.writeError(w, "list credentials", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configured": configured})
}

// PutCredential handles PUT /api/credentials/{provider}.
//
//	@Summary		Store an encrypted API key
//	@Tags			credentials
//	@Accept			json
//	@Param			provider	path		string			true	"Provider"	Enums(openai, gemini, elevenlabs)
//	@Param			body		body		APIKeyRequest	true	"Key"
//	@Success		204	"Key stored"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/credentials/{provider} [put]
func (h *Handler) PutCredential(w http.ResponseWriter, r *http.Request) {
	p, err := providerParam(r)
	if err != nil {
		h.writeError(w, "set api key", err)
		return
	}
	var req APIKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, "set api key", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, "set api key", err)
		return
	}
	if err := h.keys.SetAPIKey(r.Context(), p, req.APIKey); err != nil {
		h.writeError(w, "set api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCredential handles DELETE /api/credentials/{provider}.
//
//	@Summary		Remove a stored API key
//	@Tags			credentials
//	@Param			provider	path	string	true	"Provider"	Enums(openai, gemini, elevenlabs)
//	@Success		204	"Key removed"
//	@Security		BearerAuth
//	@Router			/credentials/{provider} [delete]
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	p, err := providerParam(r)
	if err != nil {
		h.writeError(w, "remove api key", err)
		return
	}
	if err := h.keys.RemoveAPIKey(r.Context(), p); err != nil {
		h.writeError(w, "remove api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestCredential handles POST /api/credentials/{provider}/test. Provider
// failures are reported as valid=false, never as an error status.
//
//	@Summary		Probe a provider with a key
//	@Tags			credentials
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string			true	"Provider"	Enums(openai, gemini, elevenlabs)
//	@Param			body		body		TestKeyRequest	false	"Key to test; empty tests the stored key"
//	@Success		200		{object}	TestKeyResponse
//	@Security		BearerAuth
//	@Router			/credentials/{provider}/test [post]
func (h *Handler) TestCredential(w http.ResponseWriter, r *http.Request) {
	p, err := providerParam(r)
	if err != nil {
		h.writeError(w, "test api key", err)
		return
	}
	var req TestKeyRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, "test api key", err)
			return
		}
	}
	key := req.APIKey
	if key == "" {
		if key, err = h.keys.GetAPIKey(r.Context(), p); err != nil {
			h.writeError(w, "test api key", err)
			return
		}
	}
	if key == "" {
		writeJSON(w, http.StatusOK, TestKeyResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, TestKeyResponse{Valid: h.gen.TestAPIKey(r.Context(), p, key, req.VoiceID)})
}
