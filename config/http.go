package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the console to. Loopback by default since
	// the console acts on behalf of a single operator session.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	// LoginRateLimit caps credential submissions per client IP within
	// LoginRateWindow. Zero disables the limiter.
	LoginRateLimit  int           `env:"HTTP_LOGIN_RATE_LIMIT"  envDefault:"10"`
	LoginRateWindow time.Duration `env:"HTTP_LOGIN_RATE_WINDOW" envDefault:"1m"`

	// RetryAfter is advertised to clients hitting a guarded route while the
	// session is still being verified.
	RetryAfter time.Duration `env:"HTTP_RETRY_AFTER" envDefault:"1s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = "127.0.0.1:8080"
	}
	if h.LoginRateLimit < 0 {
		h.LoginRateLimit = 0
	}
	if h.LoginRateWindow <= 0 {
		h.LoginRateWindow = time.Minute
	}
	if h.RetryAfter < time.Second {
		h.RetryAfter = time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// GuardsConfig controls role requirements on console areas.
type GuardsConfig struct {
	// AdminRoles grants access to the admin area when the user holds any of them.
	AdminRoles []string `env:"GUARD_ADMIN_ROLES" envDefault:"ADMIN;ADMINISTRADOR" envSeparator:";"`
}

// Sanitize trims and drops empty role names.
func (g *GuardsConfig) Sanitize() {
	roles := make([]string, 0, len(g.AdminRoles))
	for _, r := range g.AdminRoles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		roles = []string{"ADMIN", "ADMINISTRADOR"}
	}
	g.AdminRoles = roles
}
