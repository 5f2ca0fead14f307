package transfer

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/quest/internal/models"
)

const fmDelim = "---"

// splitFrontMatter separates a leading YAML block fenced by --- lines from
// the Markdown body. ok is false when the document has no such block or the
// block is not valid YAML.
func splitFrontMatter(doc string) (fm frontMatter, body string, ok bool) {
	trimmed := strings.TrimLeft(doc, "\n\r")
	if !strings.HasPrefix(trimmed, fmDelim+"\n") {
		return fm, doc, false
	}
	// Keep the newline so an empty block still finds its closing fence.
	rest := trimmed[len(fmDelim):]
	idx := strings.Index(rest, "\n"+fmDelim)
	if idx < 0 {
		return fm, doc, false
	}
	if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
		return frontMatter{}, doc, false
	}
	after := rest[idx+1+len(fmDelim):]
	return fm, strings.TrimLeft(after, "\n\r"), true
}

// stripTitleHeading drops a leading "# title" line written by the exporter.
func stripTitleHeading(body, title string) string {
	first, rest, _ := strings.Cut(body, "\n")
	if h, ok := strings.CutPrefix(strings.TrimSpace(first), "# "); ok && (title == "" || strings.TrimSpace(h) == title) {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(body)
}

// splitDocuments cuts a Markdown export into per-article documents. A chunk
// that does not open with front matter is a horizontal rule inside the
// previous article's content and is joined back onto it.
func splitDocuments(data []byte) []string {
	var docs []string
	for _, chunk := range strings.Split(string(data), docSeparator) {
		if len(docs) > 0 && !strings.HasPrefix(chunk, fmDelim+"\n") {
			docs[len(docs)-1] += docSeparator + chunk
			continue
		}
		docs = append(docs, chunk)
	}
	return docs
}

// parseMarkdown reads a Markdown export back into drafts. Documents without
// usable front matter or a URL are counted as skipped.
func parseMarkdown(data []byte) (drafts []models.ArticleDraft, skipped int) {
	for _, doc := range splitDocuments(data) {
		if len(bytes.TrimSpace([]byte(doc))) == 0 {
			continue
		}
		fm, body, ok := splitFrontMatter(doc)
		if !ok || fm.URL == "" {
			skipped++
			continue
		}
		drafts = append(drafts, models.ArticleDraft{
			ActualURL: fm.URL,
			Title:     fm.Title,
			Content:   stripTitleHeading(body, fm.Title),
			Organization: models.Organization{
				Category: fm.Category,
				Tags:     fm.Tags,
			},
		})
	}
	return drafts, skipped
}
