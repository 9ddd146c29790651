package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohsansi/olympiad-console/config"
	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	"github.com/ohsansi/olympiad-console/internal/service"
	"github.com/ohsansi/olympiad-console/internal/sessionstore"
	"github.com/ohsansi/olympiad-console/internal/testutil"
)

const adminBody = `{"id": 1, "nombres": "Ana", "apellidos": "Rojas", "correo": "ana@uni.bo",
	"roles": [{"id": 1, "slug": "admin", "nombre": "Administrador"}]}`

// fakeBackend serves login and the admin profile for a single token.
type fakeBackend struct {
	*httptest.Server

	mu      sync.Mutex
	bearers []string
	logouts int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, `{"token": "tok-1", "user": `+adminBody+`}`)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		b.logouts++
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /auth/perfil", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		b.mu.Lock()
		b.bearers = append(b.bearers, auth)
		b.mu.Unlock()
		if auth != "Bearer tok-1" {
			writeBody(w, http.StatusUnauthorized, `{"message": "Unauthenticated."}`)
			return
		}
		writeBody(w, http.StatusOK, `{"user": `+adminBody+`}`)
	})
	mux.HandleFunc("GET /responsable/perfil", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{}`)
	})
	mux.HandleFunc("GET /evaluador/perfil", func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{}`)
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) Bearers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bearers...)
}

func (b *fakeBackend) Logouts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logouts
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) *config.AppConfig {
	cfg := &config.AppConfig{
		API: config.APIConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Session: config.SessionConfig{
			Backend: config.SessionBackendFile,
			Prefix:  "olympiad:",
		},
		HTTP: config.HTTPConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
	}
	cfg.Sanitize()
	return cfg
}

func newTestApp(t *testing.T, cfg *config.AppConfig, deps AppDeps) *App {
	t.Helper()
	deps.Config = cfg
	if deps.Logger == nil {
		deps.Logger = discardLogger()
	}
	app, err := NewApp(context.Background(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })
	return app
}

func waitHydrated(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("session hydration did not settle")
	}
}

func TestNewApp_RequiresConfig(t *testing.T) {
	_, err := NewApp(context.Background(), AppDeps{})
	require.Error(t, err)
}

func TestNewApp_RejectsBadBaseURL(t *testing.T) {
	cfg := testConfig("ftp://backend")
	cfg.Session.Path = filepath.Join(t.TempDir(), "session.json")
	_, err := NewApp(context.Background(), AppDeps{Config: cfg, Logger: discardLogger()})
	require.Error(t, err)
}

func TestNewApp_FileBackendSurvivesRestart(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := testConfig(backend.URL)
	cfg.Session.Path = filepath.Join(t.TempDir(), "session.json")

	first := newTestApp(t, cfg, AppDeps{})
	res, err := first.Session.Login(context.Background(), service.LoginInput{Correo: "ana@uni.bo", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.KindAdmin, res.Kind)

	// A second process over the same file hydrates and verifies with the stored bearer.
	second := newTestApp(t, cfg, AppDeps{})
	waitHydrated(t, second.Session.Start(context.Background()))

	snap := second.Session.State()
	require.True(t, snap.Authenticated())
	assert.Equal(t, domainauth.KindAdmin, snap.Kind)
	assert.True(t, second.Session.HasRole("admin"))
	assert.Contains(t, backend.Bearers(), "Bearer tok-1")
}

func TestNewApp_LogoutClearsStoreAndBearer(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := testConfig(backend.URL)
	cfg.Session.Path = filepath.Join(t.TempDir(), "session.json")

	app := newTestApp(t, cfg, AppDeps{})
	_, err := app.Session.Login(context.Background(), service.LoginInput{Correo: "ana@uni.bo", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", app.API.Bearer().Current())

	app.Session.Logout(context.Background())

	assert.Empty(t, app.API.Bearer().Current())
	persisted, err := app.Store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, persisted.Complete())
	assert.Equal(t, 1, backend.Logouts())
}

func TestNewApp_RedisBackend(t *testing.T) {
	backend := newFakeBackend(t)
	client, mr := testutil.SetupMiniRedis(t)

	cfg := testConfig(backend.URL)
	cfg.Session.Backend = config.SessionBackendRedis
	cfg.Session.Prefix = "console:"

	app := newTestApp(t, cfg, AppDeps{Redis: client})
	_, err := app.Session.Login(context.Background(), service.LoginInput{Correo: "ana@uni.bo", Password: "pw"})
	require.NoError(t, err)

	token, err := mr.Get("console:" + sessionstore.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	kind, err := mr.Get("console:" + sessionstore.KeyKind)
	require.NoError(t, err)
	assert.Equal(t, string(domainauth.KindAdmin), kind)
}
