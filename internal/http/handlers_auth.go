package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	apperrors "github.com/ohsansi/olympiad-console/internal/errors"
	"github.com/ohsansi/olympiad-console/internal/service"
)

// SessionManager is the controller surface the console handlers use.
type SessionManager interface {
	SessionReader
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context)
	Mount() *service.Scope
}

var _ SessionManager = (*service.SessionController)(nil)

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Session  SessionManager
	Renderer *TemplateRenderer
	Validate *validator.Validate
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) validate() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return validator.New(validator.WithRequiredStructEnabled())
}

type loginForm struct {
	Correo      string `validate:"required,max=254"`
	Password    string `validate:"required,max=256"`
	RedirectURI string
}

func loginFormFromRequest(r *http.Request) loginForm {
	return loginForm{
		Correo:      strings.TrimSpace(r.PostFormValue("correo")),
		Password:    r.PostFormValue("password"),
		RedirectURI: r.PostFormValue("redirect_uri"),
	}
}

// LoginPage renders the login form.
// GET /login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect_uri")
	if redirect != "" {
		redirect = safeRedirectPath(redirect)
	}
	h.Renderer.Render(w, http.StatusOK, PageLogin, PageData{
		Title:       "Iniciar sesión",
		RedirectURI: redirect,
		RequestID:   middleware.GetReqID(r.Context()),
	})
}

// LoginSubmit submits the credentials and adopts the session.
// POST /login.
func (h *AuthHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r, loginForm{}, apperrors.Validation("malformed form"))
		return
	}
	form := loginFormFromRequest(r)
	if err := h.validate().Struct(form); err != nil {
		h.loginFailed(w, r, form, err)
		return
	}

	res, err := h.Session.Login(r.Context(), service.LoginInput{Correo: form.Correo, Password: form.Password})
	if err != nil {
		h.loginFailed(w, r, form, err)
		return
	}

	target := landingPath(res.Kind)
	if form.RedirectURI != "" {
		target = safeRedirectPath(form.RedirectURI)
	}

	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":      "success",
			"kind":        res.Kind,
			"redirect_to": target,
		})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request, form loginForm, err error) {
	appErr := apperrors.FromAuth(err)
	status := apperrors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError || status == 499 {
		h.logger().ErrorContext(r.Context(), "login failed", "error", err)
	} else {
		h.logger().InfoContext(r.Context(), "login rejected", "code", appErr.Code)
	}

	if !IsBrowserRequest(r) {
		WriteAppError(w, appErr)
		return
	}
	h.Renderer.Render(w, status, PageLogin, PageData{
		Title:       "Iniciar sesión",
		Error:       appErr.Message,
		Correo:      form.Correo,
		RedirectURI: form.RedirectURI,
		RequestID:   middleware.GetReqID(r.Context()),
	})
}

// Logout ends the session. It never fails.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout(r.Context())

	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": PathLogin,
		})
		return
	}
	http.Redirect(w, r, PathLogin, http.StatusSeeOther)
}

type statusUser struct {
	ID        string   `json:"id"`
	Nombres   string   `json:"nombres"`
	Apellidos string   `json:"apellidos"`
	Correo    string   `json:"correo"`
	Roles     []string `json:"roles"`
}

func toStatusUser(p *domainauth.Profile) *statusUser {
	if p == nil {
		return nil
	}
	out := &statusUser{ID: p.ID, Nombres: p.Nombres, Apellidos: p.Apellidos, Correo: p.Correo}
	for _, r := range p.Roles {
		out.Roles = append(out.Roles, r.Slug)
	}
	return out
}

// Status returns the current authentication status. With refresh=true the
// session is verified against the backend first; the verification is bound
// to the request and its result is dropped if the client goes away.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	scope := h.Session.Mount()
	stop := context.AfterFunc(r.Context(), scope.Unmount)
	defer func() {
		stop()
		scope.Unmount()
	}()

	body := map[string]any{}
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		err := scope.Refresh(r.Context())
		switch {
		case errors.Is(err, domainauth.ErrUnmounted):
			return
		case err != nil && !errors.Is(err, domainauth.ErrNoSession):
			h.logger().WarnContext(r.Context(), "session refresh failed", "error", err)
			body["error"] = apperrors.FromAuth(err).Message
		}
	}

	snap := scope.State()
	body["authenticated"] = snap.Authenticated()
	body["loading"] = snap.Loading
	body["kind"] = snap.Kind
	body["user"] = toStatusUser(snap.User)
	WriteJSON(w, http.StatusOK, body)
}
