package httpx

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	console "github.com/ohsansi/olympiad-console"
	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	mockauth "github.com/ohsansi/olympiad-console/internal/mocks/auth"
	"github.com/ohsansi/olympiad-console/internal/service"
	"github.com/ohsansi/olympiad-console/internal/sessionstore"
)

type stubSession struct{ snap domainauth.Snapshot }

func (s stubSession) State() domainauth.Snapshot { return s.snap }

func newTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	sub, err := fs.Sub(console.TemplateFS, "web/templates")
	require.NoError(t, err)
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: sub})
	require.NoError(t, err)
	return r
}

func profileWith(slugs ...string) *domainauth.Profile {
	p := &domainauth.Profile{ID: "1", Nombres: "Ana", Apellidos: "Mamani", Correo: "ana@uni.bo"}
	for _, s := range slugs {
		p.Roles = append(p.Roles, domainauth.Role{Slug: s})
	}
	return p
}

type consoleFixture struct {
	api     *mockauth.FakeAuthAPI
	kv      *mockauth.MemoryKV
	session *service.SessionController
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	api := mockauth.NewFakeAuthAPI()
	kv := mockauth.NewMemoryKV()
	store, err := sessionstore.New(sessionstore.Options{KV: kv})
	require.NoError(t, err)
	ctrl, err := service.NewSessionController(service.SessionControllerOptions{
		Submitter: service.NewAuthService(service.AuthServiceOptions{API: api, Store: store}),
		Resolver:  service.NewProfileResolver(service.ProfileResolverOptions{API: api}),
		Remote:    api,
		Store:     store,
	})
	require.NoError(t, err)
	return &consoleFixture{api: api, kv: kv, session: ctrl}
}
