package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	httpx "github.com/ohsansi/olympiad-console/internal/http"
)

// BuildHandler builds the console router for app.
func BuildHandler(app *App) (http.Handler, error) {
	cfg := app.Config
	return httpx.NewRouter(httpx.RouterServices{
		Session:         app.Session,
		Metrics:         app.Observability.Handler,
		AdminRoles:      cfg.Guards.AdminRoles,
		LoginRateLimit:  cfg.HTTP.LoginRateLimit,
		LoginRateWindow: cfg.HTTP.LoginRateWindow,
		RetryAfter:      cfg.HTTP.RetryAfter,
		Production:      !cfg.IsDev,
		Validate:        app.Validate,
		Logger:          app.Logger,
	})
}

// NewHTTPServer returns the console server with conservative timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeConfig contains dependencies for Serve.
type ServeConfig struct {
	App *App
	// Listener overrides the listener bound from the configured address.
	Listener net.Listener
	// Ready, when set, receives the bound address once the server accepts connections.
	Ready func(addr string)
}

// Serve starts session hydration and the console HTTP server, and blocks
// until ctx is canceled or the server fails. Shutdown is bounded by the
// configured timeout.
func Serve(ctx context.Context, cfg ServeConfig) error {
	app := cfg.App
	if app == nil {
		return errors.New("serve: app is required")
	}
	logger := app.Logger

	handler, err := BuildHandler(app)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	server := NewHTTPServer(app.Config.HTTP.Addr, handler)

	ln := cfg.Listener
	if ln == nil {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", server.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", server.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hydrated := app.Session.Start(gctx)
		select {
		case <-hydrated:
			snap := app.Session.State()
			logger.InfoContext(gctx, "session hydrated", "authenticated", snap.Authenticated(), "kind", snap.Kind)
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if cfg.Ready != nil {
			cfg.Ready(ln.Addr().String())
		}
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(gctx),
			Server:  server,
			Timeout: app.Config.HTTP.ShutdownTimeout,
			Logger:  logger,
		})
	})

	return g.Wait()
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
