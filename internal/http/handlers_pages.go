package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// PageHandlers serves the guarded landing pages.
type PageHandlers struct {
	Renderer *TemplateRenderer
}

func (h *PageHandlers) data(r *http.Request, title string) PageData {
	user, kind, _ := UserFromContext(r.Context())
	return PageData{
		Title:     title,
		User:      user,
		Kind:      kind,
		RequestID: middleware.GetReqID(r.Context()),
	}
}

// Home renders the landing page for any authenticated principal.
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, PageHome, h.data(r, "Inicio"))
}

// Area returns a handler rendering a role area page titled title.
func (h *PageHandlers) Area(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Renderer.Render(w, http.StatusOK, PageArea, h.data(r, title))
	}
}

// Unauthorized renders the access denied page.
func (h *PageHandlers) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusForbidden, PageUnauthorized, h.data(r, "Acceso denegado"))
}

// SessionUser returns the guarded principal as JSON.
// GET /api/session.
func (h *PageHandlers) SessionUser(w http.ResponseWriter, r *http.Request) {
	user, kind, _ := UserFromContext(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"kind": kind,
		"user": toStatusUser(user),
	})
}
