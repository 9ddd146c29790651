package httpx

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	console "github.com/ohsansi/olympiad-console"
	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	apperrors "github.com/ohsansi/olympiad-console/internal/errors"
)

// Console paths.
const (
	PathHome         = "/"
	PathLogin        = "/login"
	PathLogout       = "/logout"
	PathStatus       = "/auth/status"
	PathAdmin        = "/admin"
	PathResponsable  = "/responsable"
	PathEvaluador    = "/evaluador"
	PathUnauthorized = "/unauthorized"
	PathAPISession   = "/api/session"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Session SessionManager
	// TemplateFS overrides the embedded templates (optional).
	TemplateFS fs.FS
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// AdminRoles are the slugs admitted to /admin (default: ADMIN).
	AdminRoles []string
	// LoginRateLimit caps POST /login per client IP within LoginRateWindow (0 disables).
	LoginRateLimit  int
	LoginRateWindow time.Duration
	// RetryAfter is advertised while the session is loading.
	RetryAfter time.Duration
	Production bool
	Validate   *validator.Validate
	Logger     *slog.Logger
}

// NewRouter creates and configures the console router.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Session == nil {
		return nil, errors.New("router: session manager is required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templateFS := services.TemplateFS
	if templateFS == nil {
		sub, err := fs.Sub(console.TemplateFS, "web/templates")
		if err != nil {
			return nil, err
		}
		templateFS = sub
	}
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS, Logger: logger})
	if err != nil {
		return nil, err
	}

	validate := services.Validate
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	adminRoles := services.AdminRoles
	if len(adminRoles) == 0 {
		adminRoles = []string{string(domainauth.KindAdmin)}
	}

	guards := &Guards{Session: services.Session, Renderer: renderer, RetryAfter: services.RetryAfter}
	auth := &AuthHandlers{Session: services.Session, Renderer: renderer, Validate: validate, Logger: logger}
	pages := &PageHandlers{Renderer: renderer}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		Recover(logger),
		Logging(logger),
		SecureHeaders(logger, services.Production),
		BrowserDetection(),
	)

	r.Get("/healthz", healthHandler)
	r.Head("/healthz", healthHandler)
	if services.Metrics != nil {
		r.Handle("/metrics", services.Metrics)
	}

	r.Get(PathStatus, auth.Status)
	r.Post(PathLogout, auth.Logout)
	r.Get(PathUnauthorized, pages.Unauthorized)

	r.Group(func(gr chi.Router) {
		gr.Use(guards.RedirectIfAuth(PathHome))
		gr.Get(PathLogin, auth.LoginPage)
	})
	r.Group(func(gr chi.Router) {
		if services.LoginRateLimit > 0 {
			window := services.LoginRateWindow
			if window <= 0 {
				window = time.Minute
			}
			gr.Use(httprate.Limit(services.LoginRateLimit, window,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Retry-After", "60")
					WriteError(w, ErrorParams{
						Code:    http.StatusTooManyRequests,
						ErrCode: "rate_limited",
						Err:     errors.New("too many login attempts"),
					})
				}),
			))
		}
		gr.Post(PathLogin, auth.LoginSubmit)
	})

	r.Group(func(gr chi.Router) {
		gr.Use(guards.RequireAuth())
		gr.Get(PathHome, pages.Home)
		gr.Get(PathAPISession, pages.SessionUser)
	})
	r.With(guards.RequireAnyRole(adminRoles...)).Get(PathAdmin, pages.Area("Administración"))
	r.With(guards.RequireRole(domainauth.SlugResponsable)).Get(PathResponsable, pages.Area("Responsable académico"))
	r.With(guards.RequireRole(domainauth.SlugEvaluador)).Get(PathEvaluador, pages.Area("Evaluador"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !IsBrowserRequest(r) {
			WriteAppError(w, apperrors.NotFound("not found"))
			return
		}
		http.NotFound(w, r)
	})

	return r, nil
}
