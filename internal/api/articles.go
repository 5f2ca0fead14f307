package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/sse"
)

func parseBoolParam(v, name string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("query parameter %q must be a boolean: %w", name, apperr.ErrInvalidInput)
	}
	return &b, nil
}

func articleFilter(r *http.Request) (models.ArticleFilter, error) {
	q := r.URL.Query()
	f := models.ArticleFilter{
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Domain:   q.Get("domain"),
		Search:   q.Get("q"),
	}
	switch s := models.ReadStatus(strings.ToLower(q.Get("status"))); s {
	case "", models.ReadStatusAll, models.ReadStatusRead, models.ReadStatusUnread:
		f.Status = s
	default:
		return f, fmt.Errorf("unknown status %q: %w", s, apperr.ErrInvalidInput)
	}
	var err error
	if f.Archived, err = parseBoolParam(q.Get("archived"), "archived"); err != nil {
		return f, err
	}
	if f.Pinned, err = parseBoolParam(q.Get("pinned"), "pinned"); err != nil {
		return f, err
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	return f, nil
}

// ListArticles handles GET /api/articles.
//
//	@Summary		List articles with optional filtering
//	@Tags			articles
//	@Produce		json
//	@Param			category	query		string	false	"Category"
//	@Param			tag			query		string	false	"Tag"
//	@Param			domain		query		string	false	"Domain"
//	@Param			status		query		string	false	"Read status"	Enums(all, read, unread)
//	@Param			q			query		string	false	"Free-text search"
//	@Success		200			{object}	ArticleListResponse
//	@Security		BearerAuth
//	@Router			/articles [get]
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	f, err := articleFilter(r)
	if err != nil {
		h.writeError(w, "list articles", err)
		return
	}
	items, err := h.store.ListArticles(r.Context(), f)
	if err != nil {
		h.writeError(w, "list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Total: len(items)})
}

// SaveArticle handles POST /api/articles. A new article answers 201; an
// existing clean URL answers 200 with the stored article.
//
//	@Summary		Save an article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveArticleRequest	true	"Article to save"
//	@Success		201		{object}	models.Article
//	@Success		200		{object}	models.Article
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles [post]
func (h *Handler) SaveArticle(w http.ResponseWriter, r *http.Request) {
	var req SaveArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, "save article", err)
		return
	}
	if err := validateDraft(&req); err != nil {
		h.writeError(w, "save article", err)
		return
	}
	a, created, err := h.store.SaveArticle(r.Context(), req)
	if err != nil {
		h.writeError(w, "save article", err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, a)
		return
	}
	h.events.PublishArticle(sse.ArticleCreated, a.ID)
	h.autoGenerate(r.Context(), a.ID)
	writeJSON(w, http.StatusCreated, a)
}

// GetArticle handles GET /api/articles/{id}.
//
//	@Summary		Get a single article
//	@Tags			articles
//	@Produce		json
//	@Param			id	path		string	true	"Article id"
//	@Success		200	{object}	models.Article
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [get]
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.store.GetArticle(r.Context(), id)
	if err != nil {
		h.writeError(w, "get article", err)
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateArticle handles PATCH /api/articles/{id}.
//
//	@Summary		Update article fields; sub-objects merge field by field
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Article id"
//	@Param			body	body		models.ArticlePatch	true	"Fields to change"
//	@Success		200		{object}	models.Article
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [patch]
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch models.ArticlePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.writeError(w, "update article", err)
		return
	}
	a, err := h.store.UpdateArticle(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, "update article", err)
		return
	}
	h.events.PublishArticle(sse.ArticleUpdated, a.ID)
	writeJSON(w, http.StatusOK, a)
}

// DeleteArticle handles DELETE /api/articles/{id}.
//
//	@Summary		Delete an article with its summaries, audio and reminder
//	@Tags			articles
//	@Param			id	path	string	true	"Article id"
//	@Success		204	"Article deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [delete]
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteArticle(r.Context(), id); err != nil {
		h.writeError(w, "delete article", err)
		return
	}
	h.events.PublishArticle(sse.ArticleDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over titles and content
//	@Tags			articles
//	@Produce		json
//	@Param			q		query		string	true	"Query"
//	@Param			limit	query		int		false	"Maximum hits"
//	@Success		200		{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.store.SearchArticles(r.Context(), q, limit)
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ArticleSummaries handles GET /api/articles/{id}/summaries.
//
//	@Summary		List the summaries of an article
//	@Tags			summaries
//	@Produce		json
//	@Param			id	path		string	true	"Article id"
//	@Success		200	{object}	map[string][]models.Summary
//	@Security		BearerAuth
//	@Router			/articles/{id}/summaries [get]
func (h *Handler) ArticleSummaries(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetSummariesForArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "list summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": items})
}

// GenerateSummary handles POST /api/articles/{id}/summaries.
//
//	@Summary		Generate a summary for an article
//	@Tags			generation
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Article id"
//	@Param			body	body		GenerateSummaryRequest	false	"Kind and provider"
//	@Success		201		{object}	models.Summary
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		412		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/summaries [post]
func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req GenerateSummaryRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, "generate summary", err)
			return
		}
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, "generate summary", err)
		return
	}
	s, err := h.gen.GenerateSummary(r.Context(), chi.URLParam(r, "id"),
		models.SummaryKind(req.Kind), models.Provider(req.Provider))
	if err != nil {
		h.writeError(w, "generate summary", err)
		return
	}
	h.publishSummary(s)
	writeJSON(w, http.StatusCreated, s)
}

// GeneratePodcast handles POST /api/articles/{id}/podcast.
//
//	@Summary		Generate podcast audio for an article
//	@Tags			podcasts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Article id"
//	@Param			body	body		GeneratePodcastRequest	false	"Summary to narrate"
//	@Success		201		{object}	models.AudioFile
//	@Failure		404		{object}	errResponse
//	@Failure		412		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/podcast [post]
func (h *Handler) GeneratePodcast(w http.ResponseWriter, r *http.Request) {
	var req GeneratePodcastRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, "generate podcast", err)
			return
		}
	}
	id := chi.URLParam(r, "id")
	f, err := h.gen.GeneratePodcast(r.Context(), id, req.SummaryID)
	if err != nil {
		h.writeError(w, "generate podcast", err)
		return
	}
	h.publishPodcast(id, f)
	writeJSON(w, http.StatusCreated, f)
}

// GetReminder handles GET /api/articles/{id}/reminder.
//
//	@Summary		Get the reminder of an article
//	@Tags			reminders
//	@Produce		json
//	@Param			id	path		string	true	"Article id"
//	@Success		200	{object}	models.Reminder
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/reminder [get]
func (h *Handler) GetReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := h.store.GetReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get reminder", err)
		return
	}
	if rem == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

// SetReminder handles PUT /api/articles/{id}/reminder.
//
//	@Summary		Schedule a reminder for an article
//	@Tags			reminders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Article id"
//	@Param			body	body		ReminderRequest	true	"Reminder time"
//	@Success		200		{object}	models.Reminder
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/reminder [put]
func (h *Handler) SetReminder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, "set reminder", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, "set reminder", err)
		return
	}
	scheduled := true
	a, err := h.store.UpdateArticle(r.Context(), id, models.ArticlePatch{
		Workflow: &models.WorkflowPatch{ReminderScheduled: &scheduled, ReminderTime: &req.ReminderTime},
	})
	if err != nil {
		h.writeError(w, "set reminder", err)
		return
	}
	rem, err := h.store.SaveReminder(r.Context(), id, req.ReminderTime)
	if err != nil {
		h.writeError(w, "set reminder", err)
		return
	}
	h.events.PublishArticle(sse.ArticleUpdated, a.ID)
	writeJSON(w, http.StatusOK, rem)
}

// DeleteReminder handles DELETE /api/articles/{id}/reminder.
//
//	@Summary		Cancel the reminder of an article
//	@Tags			reminders
//	@Param			id	path	string	true	"Article id"
//	@Success		204	"Reminder removed"
//	@Security		BearerAuth
//	@Router			/articles/{id}/reminder [delete]
func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteReminder(r.Context(), id); err != nil {
		h.writeError(w, "delete reminder", err)
		return
	}
	scheduled := false
	_, err := h.store.UpdateArticle(r.Context(), id, models.ArticlePatch{
		Workflow: &models.WorkflowPatch{ReminderScheduled: &scheduled},
	})
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		h.writeError(w, "delete reminder", err)
		return
	default:
		h.events.PublishArticle(sse.ArticleUpdated, id)
	}
	w.WriteHeader(http.StatusNoContent)
}
