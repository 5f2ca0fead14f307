package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", h.ListArticles)
		r.Post("/", h.SaveArticle)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetArticle)
			r.Patch("/", h.UpdateArticle)
			r.Delete("/", h.DeleteArticle)
			r.Get("/summaries", h.ArticleSummaries)
			r.Post("/summaries", h.GenerateSummary)
			r.Post("/podcast", h.GeneratePodcast)
			r.Get("/reminder", h.GetReminder)
			r.Put("/reminder", h.SetReminder)
			r.Delete("/reminder", h.DeleteReminder)
		})
	})
	r.Get("/search", h.Search)

	r.Get("/summaries", h.AllSummaries)
	r.Get("/summaries/{id}/audio", h.SummaryAudio)
	r.Get("/audio", h.AllAudio)

	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.CreateCategory)
	r.Get("/tags", h.ListTags)

	r.Get("/audit", h.AuditLogs)
	r.Delete("/audit", h.ClearAuditLogs)
	r.Get("/stats", h.Stats)
	r.Get("/usage", h.Usage)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Get("/credentials", h.ListCredentials)
	r.Put("/credentials/{provider}", h.PutCredential)
	r.Delete("/credentials/{provider}", h.DeleteCredential)
	r.Post("/credentials/{provider}/test", h.TestCredential)

	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
