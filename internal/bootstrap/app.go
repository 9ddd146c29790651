package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ohsansi/olympiad-console/config"
	"github.com/ohsansi/olympiad-console/internal/adapters/filestore"
	"github.com/ohsansi/olympiad-console/internal/adapters/olympiadapi"
	redisstore "github.com/ohsansi/olympiad-console/internal/adapters/redis"
	"github.com/ohsansi/olympiad-console/internal/ports"
	"github.com/ohsansi/olympiad-console/internal/service"
	"github.com/ohsansi/olympiad-console/internal/sessionstore"
)

// AppDeps groups dependencies for NewApp.
type AppDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// Redis overrides the connection made for the redis session backend.
	// The caller keeps ownership of an injected client.
	Redis redis.UniversalClient
	// Transport overrides the backend client's base RoundTripper.
	Transport http.RoundTripper
	// Registry overrides the Prometheus registry.
	Registry *prometheus.Registry
}

// App holds the wired auth core.
type App struct {
	Config        config.AppConfig
	Logger        *slog.Logger
	API           *olympiadapi.Client
	Store         *sessionstore.Store
	Auth          *service.AuthService
	Resolver      *service.ProfileResolver
	Session       *service.SessionController
	Validate      *validator.Validate
	Observability ObservabilityContainer

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// NewApp wires the backend client, the session store, the services and the
// session controller. The controller is not started.
func NewApp(ctx context.Context, deps AppDeps) (app *App, err error) {
	if deps.Config == nil {
		return nil, errors.New("app config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app = &App{Config: *deps.Config, Logger: logger}
	defer func() {
		if err != nil {
			if cerr := app.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			app = nil
		}
	}()

	app.Observability, err = BuildObservability(logger, app.Config.Observability, deps.Registry)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, namedCloser{"statsd", app.Observability.Close})

	app.API, err = newAPIClient(app.Config.API, deps.Transport, logger)
	if err != nil {
		return app, err
	}

	kv, err := app.buildKV(ctx, deps.Redis)
	if err != nil {
		return app, err
	}

	app.Store, err = sessionstore.New(sessionstore.Options{
		KV:      kv,
		Logger:  logger,
		OnToken: app.API.SetToken,
	})
	if err != nil {
		return app, fmt.Errorf("create session store: %w", err)
	}

	app.Validate = validator.New(validator.WithRequiredStructEnabled())
	recorder := app.Observability.Recorder

	app.Auth = service.NewAuthService(service.AuthServiceOptions{
		API:       app.API,
		Store:     app.Store,
		Metrics:   recorder,
		Logger:    logger,
		Validator: app.Validate,
	})
	app.Resolver = service.NewProfileResolver(service.ProfileResolverOptions{
		API:     app.API,
		Metrics: recorder,
		Logger:  logger,
	})
	app.Session, err = service.NewSessionController(service.SessionControllerOptions{
		Submitter: app.Auth,
		Resolver:  app.Resolver,
		Remote:    app.API,
		Store:     app.Store,
		Metrics:   recorder,
		Logger:    logger,
	})
	if err != nil {
		return app, fmt.Errorf("create session controller: %w", err)
	}
	return app, nil
}

func newAPIClient(cfg config.APIConfig, transport http.RoundTripper, logger *slog.Logger) (*olympiadapi.Client, error) {
	client, err := olympiadapi.New(olympiadapi.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Extraction: olympiadapi.Extraction{
			LoginToken:   cfg.Extraction.LoginToken,
			LoginUser:    cfg.Extraction.LoginUser,
			LoginMessage: cfg.Extraction.LoginMessage,
			Admin:        cfg.Extraction.Admin,
			Responsable:  cfg.Extraction.Responsable,
			Evaluador:    cfg.Extraction.Evaluador,
		},
		Transport: transport,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create olympiad api client: %w", err)
	}
	return client, nil
}

//nolint:ireturn // the backend is chosen by configuration.
func (a *App) buildKV(ctx context.Context, injected redis.UniversalClient) (ports.KeyValueStore, error) {
	switch a.Config.Session.Backend {
	case config.SessionBackendRedis:
		client := injected
		if client == nil {
			var err error
			client, err = ConnectRedis(ctx, a.Config.Redis, a.Logger)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, namedCloser{"redis", client.Close})
		}
		return redisstore.NewKVStoreWithOptions(client, redisstore.KVStoreOptions{
			Prefix: a.Config.Session.Prefix,
			TTL:    a.Config.Session.TTL,
		}), nil
	default:
		path := a.Config.Session.Path
		if path == "" {
			var err error
			if path, err = filestore.DefaultPath(); err != nil {
				return nil, err
			}
		}
		store, err := filestore.New(path)
		if err != nil {
			return nil, fmt.Errorf("open session file: %w", err)
		}
		a.Logger.DebugContext(ctx, "using file session backend", "path", store.Path())
		return store, nil
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
