package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quest/internal/checksum"
)

const defaultAuditLimit = 100

// AllSummaries handles GET /api/summaries.
//
//	@Summary		List every summary
//	@Tags			summaries
//	@Produce		json
//	@Success		200	{object}	map[string][]models.Summary
//	@Security		BearerAuth
//	@Router			/summaries [get]
func (h *Handler) AllSummaries(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetAllSummaries(r.Context())
	if err != nil {
		h.writeError(w, "list summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": items})
}

// SummaryAudio handles GET /api/summaries/{id}/audio and streams the newest
// audio payload for the summary. The content type comes from the payload
// bytes, not from what was recorded at save time.
//
//	@Summary		Download summary audio
//	@Tags			audio
//	@Produce		audio/mpeg
//	@Produce		audio/wav
//	@Param			id				path	string	true	"Summary id"
//	@Param			If-None-Match	header	string	false	"Entity tag from a previous response"
//	@Success		200				"Audio bytes"
//	@Success		304				"Not modified"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/summaries/{id}/audio [get]
func (h *Handler) SummaryAudio(w http.ResponseWriter, r *http.Request) {
	f, err := h.store.GetAudioFileBySummaryID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get audio", err)
		return
	}
	if f == nil || f.Audio == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}

	etag := checksum.ETag(f.Audio.Data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", f.Audio.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Audio.Data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(f.Audio.Data)
	}
}

// AllAudio handles GET /api/audio and lists audio metadata without payloads.
//
//	@Summary		List audio metadata
//	@Tags			podcasts
//	@Produce		json
//	@Success		200	{object}	map[string][]models.AudioFile
//	@Security		BearerAuth
//	@Router			/audio [get]
func (h *Handler) AllAudio(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetAllAudioFiles(r.Context())
	if err != nil {
		h.writeError(w, "list audio", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audio": items})
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List categories
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	map[string][]models.Category
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetAllCategories(r.Context())
	if err != nil {
		h.writeError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

// CreateCategory handles POST /api/categories.
//
//	@Summary		Create a category
//	@Tags			library
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CategoryRequest	true	"Category"
//	@Success		201		{object}	models.Category
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, "create category", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, "create category", err)
		return
	}
	c, err := h.store.SaveCategory(r.Context(), req.Name, req.Color)
	if err != nil {
		h.writeError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListTags handles GET /api/tags.
//
//	@Summary		List tags, most used first
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	map[string][]models.Tag
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetAllTags(r.Context())
	if err != nil {
		h.writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": items})
}

// AuditLogs handles GET /api/audit?limit=N, newest first.
//
//	@Summary		Recent audit records, newest first
//	@Tags			audit
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum records"	default(100)
//	@Success		200		{object}	map[string][]models.AuditLog
//	@Security		BearerAuth
//	@Router			/audit [get]
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	logs, err := h.store.GetAuditLogs(r.Context(), limit)
	if err != nil {
		h.writeError(w, "audit logs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// ClearAuditLogs handles DELETE /api/audit.
//
//	@Summary		Delete every audit record
//	@Tags			audit
//	@Success		204	"Audit log cleared"
//	@Security		BearerAuth
//	@Router			/audit [delete]
func (h *Handler) ClearAuditLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAuditLogs(r.Context()); err != nil {
		h.writeError(w, "clear audit logs", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/stats.
//
//	@Summary		Library statistics
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Stats(r.Context(), h.now())
	if err != nil {
		h.writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Usage handles GET /api/usage.
//
//	@Summary		Provider usage aggregated from the audit log
//	@Tags			audit
//	@Produce		json
//	@Success		200	{object}	generation.Usage
//	@Security		BearerAuth
//	@Router			/usage [get]
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	u, err := h.gen.UsageStats(r.Context())
	if err != nil {
		h.writeError(w, "usage", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
