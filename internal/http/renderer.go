package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// Page names.
const (
	PageLogin        = "login"
	PageWaiting      = "waiting"
	PageHome         = "home"
	PageArea         = "area"
	PageUnauthorized = "unauthorized"
)

// PageData is the view model shared by every page.
type PageData struct {
	Title       string
	User        *domainauth.Profile
	Kind        domainauth.Kind
	Error       string
	Correo      string
	RedirectURI string
	RetryAfter  int
	RequestID   string
}

// TemplateRenderer renders the console's HTML pages. Each page is parsed on
// top of its own copy of the layout.
type TemplateRenderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS // required; layout.tmpl plus pages/*.tmpl
	Logger     *slog.Logger
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"roleSlugs": func(p *domainauth.Profile) string {
			if p == nil {
				return ""
			}
			slugs := make([]string, 0, len(p.Roles))
			for _, r := range p.Roles {
				slugs = append(slugs, r.Slug)
			}
			return strings.Join(slugs, ", ")
		},
	}
}

// NewTemplateRenderer parses the layout and every page.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base, err := template.New("layout").Funcs(templateFuncs()).ParseFS(cfg.TemplateFS, "layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(cfg.TemplateFS, "pages/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		t, cerr := base.Clone()
		if cerr != nil {
			return nil, fmt.Errorf("clone layout: %w", cerr)
		}
		if _, perr := t.ParseFS(cfg.TemplateFS, file); perr != nil {
			return nil, fmt.Errorf("parse %s: %w", file, perr)
		}
		pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = t
	}
	for _, required := range []string{PageLogin, PageWaiting, PageHome, PageArea, PageUnauthorized} {
		if _, ok := pages[required]; !ok {
			return nil, fmt.Errorf("missing page template %q", required)
		}
	}

	return &TemplateRenderer{pages: pages, logger: logger}, nil
}

// Render writes page with the given status. The page is rendered into a
// buffer first so a template error never produces a partial response.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	t, ok := r.pages[page]
	if !ok {
		r.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}
