package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	apperrors "github.com/ohsansi/olympiad-console/internal/errors"
)

// SessionReader exposes the session state guards decide on.
type SessionReader interface {
	State() domainauth.Snapshot
}

// Guards gate routes on the session state.
//
// While the session is loading no navigation decision is made: browsers get a
// self-refreshing waiting page and API clients a 503 with Retry-After.
// Unauthenticated browsers are sent to the login page, principals lacking a
// role to the unauthorized page; API clients get 401 and 403 instead.
type Guards struct {
	Session  SessionReader
	Renderer *TemplateRenderer
	// RetryAfter is the waiting interval advertised while loading (default 1s).
	RetryAfter time.Duration
}

// RequireAuth admits any authenticated principal.
func (g *Guards) RequireAuth() func(http.Handler) http.Handler {
	return g.require(nil)
}

// RequireRole admits principals holding role.
func (g *Guards) RequireRole(role string) func(http.Handler) http.Handler {
	role = domainauth.NormalizeSlug(role)
	return g.require(func(s domainauth.Snapshot) bool { return s.HasRole(role) })
}

// RequireAnyRole admits principals holding at least one of roles.
func (g *Guards) RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	normalized := make([]string, 0, len(roles))
	for _, r := range roles {
		normalized = append(normalized, domainauth.NormalizeSlug(r))
	}
	return g.require(func(s domainauth.Snapshot) bool { return s.HasAnyRole(normalized...) })
}

// RedirectIfAuth sends authenticated principals to target; anonymous
// visitors see the page.
func (g *Guards) RedirectIfAuth(target string) func(http.Handler) http.Handler {
	target = safeRedirectPath(target)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := g.Session.State()
			if snap.Loading {
				g.wait(w, r)
				return
			}
			if snap.Authenticated() {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guards) require(allowed func(domainauth.Snapshot) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := g.Session.State()
			switch {
			case snap.Loading:
				g.wait(w, r)
			case !snap.Authenticated():
				g.unauthenticated(w, r)
			case allowed != nil && !allowed(snap):
				g.forbidden(w, r)
			default:
				ctx := SetUserInContext(r.Context(), snap.User, snap.Kind)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func (g *Guards) retryAfter() time.Duration {
	if g.RetryAfter <= 0 {
		return time.Second
	}
	return g.RetryAfter
}

func (g *Guards) wait(w http.ResponseWriter, r *http.Request) {
	secs := int(g.retryAfter().Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.Header().Set("Cache-Control", "no-store")

	if !IsBrowserRequest(r) {
		WriteAppError(w, apperrors.Unavailable("session is being restored"))
		return
	}
	if g.Renderer == nil {
		w.Header().Set("Refresh", strconv.Itoa(secs))
		http.Error(w, "Restoring session…", http.StatusOK)
		return
	}
	g.Renderer.Render(w, http.StatusOK, PageWaiting, PageData{
		Title:      "Cargando",
		RetryAfter: secs,
		RequestID:  middleware.GetReqID(r.Context()),
	})
}

func (g *Guards) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteAppError(w, apperrors.Unauthenticated("authentication required"))
		return
	}
	http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusSeeOther)
}

func (g *Guards) forbidden(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteAppError(w, apperrors.Forbidden("insufficient permissions"))
		return
	}
	http.Redirect(w, r, PathUnauthorized, http.StatusSeeOther)
}
