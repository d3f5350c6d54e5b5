package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/tehewdev/staticforge/internal/config"
	"github.com/tehewdev/staticforge/internal/errors"
	"github.com/tehewdev/staticforge/internal/page"
	"github.com/tehewdev/staticforge/internal/store"
)

// Publisher pushes a page to the remote repository and returns its
// public URL.
type Publisher interface {
	Publish(ctx context.Context, p *page.Page) (string, error)
}

// Generator produces or transforms page content from an instruction.
type Generator interface {
	Generate(ctx context.Context, instruction string) (string, error)
	Refine(ctx context.Context, currentHTML, instruction string) (string, error)
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store     *store.Store
	publisher Publisher
	generator Generator
	cfg       *config.Config
	renderer  *Renderer
}

// HandleDashboard handles GET /pages: list pages, newest first.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("q")

	pages := h.store.List()
	if search != "" {
		needle := strings.ToLower(search)
		filtered := pages[:0]
		for _, p := range pages {
			if strings.Contains(strings.ToLower(p.Title), needle) ||
				strings.Contains(strings.ToLower(p.Slug), needle) {
				filtered = append(filtered, p)
			}
		}
		pages = filtered
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].UpdatedAt > pages[j].UpdatedAt
	})

	h.renderer.renderPage(w, r, "dashboard", DashboardPageData{
		PageData: PageData{
			Title:   "Pages",
			Version: h.renderer.version,
			Nav:     "pages",
		},
		Pages:  pages,
		Search: search,
	})
}

// HandleCreate handles POST /pages: create a page with the default
// template and open it in the editor.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	p, err := page.New(r.FormValue("title"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	saved, err := h.store.Save(p)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	target := "/pages/" + saved.ID
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusCreated)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleEditor handles GET /pages/{id}: the code/preview editor.
func (h *Handlers) HandleEditor(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.FindByID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "editor", EditorPageData{
		PageData: PageData{
			Title:   p.Title,
			Version: h.renderer.version,
			Nav:     "pages",
		},
		Page:    p,
		TagsCSV: strings.Join(p.Tags, ", "),
		Notice:  r.URL.Query().Get("notice"),
	})
}

// HandleSave handles POST /pages/{id}: full replace of the page's
// mutable fields.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.FindByID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if title := r.FormValue("title"); title != "" {
		p.Title = title
	}
	p.Slug = page.NormalizeSlug(r.FormValue("slug"))
	if r.Form.Has("content") {
		p.Content = r.FormValue("content")
	}
	p.Tags = parseTags(r.FormValue("tags"))

	saved, err := h.store.Save(p)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<span class="save-status">Saved %s</span>`, formatTime(saved.UpdatedAt))
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, saved)
		return
	}
	http.Redirect(w, r, "/pages/"+saved.ID, http.StatusSeeOther)
}

// HandleDelete handles DELETE /pages/{id}: permanent, immediate.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.Delete(id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/pages")
		w.WriteHeader(http.StatusOK)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
		return
	}
	http.Redirect(w, r, "/pages", http.StatusFound)
}

// HandlePreview handles GET /pages/{id}/preview: renders the raw
// document in an isolated sandboxed context: scripts and form
// submission allowed, top-level navigation escape not.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.FindByID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts allow-forms")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(p.Content))
}

// HandleExport handles GET /pages/{id}/export: download the raw
// content bytes as slug.html, no transformation.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.FindByID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.Filename()))
	_, _ = w.Write([]byte(p.Content))
}

// HandlePublish handles POST /pages/{id}/publish.
func (h *Handlers) HandlePublish(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.FindByID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	url, err := h.publisher.Publish(r.Context(), p)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<div class="publish-result">Published: <a href="%s" target="_blank" rel="noopener">%s</a></div>`,
			template.HTMLEscapeString(url), template.HTMLEscapeString(url))
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{"url": url})
		return
	}
	http.Redirect(w, r, "/pages/"+p.ID+"?notice=Published+"+p.Filename(), http.StatusSeeOther)
}

// HandleGenerate handles POST /pages/{id}/generate: replace the
// page's content with a freshly generated document.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	h.generateInto(w, r, func(ctx context.Context, p *page.Page, instruction string) (string, error) {
		return h.generator.Generate(ctx, instruction)
	})
}

// HandleRefine handles POST /pages/{id}/refine: transform the current
// document per the instruction.
func (h *Handlers) HandleRefine(w http.ResponseWriter, r *http.Request) {
	h.generateInto(w, r, func(ctx context.Context, p *page.Page, instruction string) (string, error) {
		return h.generator.Refine(ctx, p.Content, instruction)
	})
}

// generateInto runs a generation call and persists the result. On
// failure the page's existing content is left untouched.
func (h *Handlers) generateInto(w http.ResponseWriter, r *http.Request, produce func(context.Context, *page.Page, string) (string, error)) {
	p, err := h.store.FindByID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	instruction := r.FormValue("instruction")

	html, err := produce(r.Context(), p, instruction)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	p.Content = html
	saved, err := h.store.Save(p)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/pages/"+saved.ID)
		w.WriteHeader(http.StatusOK)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, saved)
		return
	}
	http.Redirect(w, r, "/pages/"+saved.ID, http.StatusSeeOther)
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
