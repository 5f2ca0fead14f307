package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/starford/quest/internal/sse"
	"github.com/starford/quest/internal/transfer"
)

const maxImportBytes = 64 << 20

var exportExt = map[transfer.Format]string{
	transfer.FormatJSON:     "json",
	transfer.FormatMarkdown: "md",
	transfer.FormatHTML:     "html",
}

// Export handles GET /api/export?format=json|markdown|html&includeContent=true.
//
//	@Summary		Export the library
//	@Tags			transfer
//	@Produce		json
//	@Produce		text/markdown
//	@Produce		text/html
//	@Param			format			query	string	false	"Format"	Enums(json, markdown, html)
//	@Param			includeContent	query	bool	false	"Include article content"
//	@Success		200	"Export file"
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := transfer.ParseFormat(q.Get("format"))
	if err != nil {
		h.writeError(w, "export", err)
		return
	}
	include, err := parseBoolParam(q.Get("includeContent"), "includeContent")
	if err != nil {
		h.writeError(w, "export", err)
		return
	}
	data, err := h.transfer.Export(r.Context(), f, include != nil && *include)
	if err != nil {
		h.writeError(w, "export", err)
		return
	}
	name := "quest-export-" + h.now().UTC().Format("2006-01-02") + "." + exportExt[f]
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/import?merge=true with a JSON or Markdown export as the body.
// merge defaults to true; merge=false also replaces the settings record.
//
//	@Summary		Import a JSON or Markdown export
//	@Tags			transfer
//	@Accept			json
//	@Accept			text/markdown
//	@Produce		json
//	@Param			merge	query		bool	false	"Keep current settings"	default(true)
//	@Success		200		{object}	transfer.Result
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	merge := true
	if v, err := parseBoolParam(r.URL.Query().Get("merge"), "merge"); err != nil {
		h.writeError(w, "import", err)
		return
	} else if v != nil {
		merge = *v
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("import too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	res, err := h.transfer.Import(r.Context(), data, merge)
	if err != nil {
		h.writeError(w, "import", err)
		return
	}
	if res.Imported > 0 {
		h.events.Publish(sse.Event{Type: sse.StatsUpdated, Data: res})
	}
	writeJSON(w, http.StatusOK, res)
}
