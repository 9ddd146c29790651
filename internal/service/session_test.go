package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	mockauth "github.com/ohsansi/olympiad-console/internal/mocks/auth"
	"github.com/ohsansi/olympiad-console/internal/ports"
	"github.com/ohsansi/olympiad-console/internal/sessionstore"
)

type controllerFixture struct {
	api     *mockauth.FakeAuthAPI
	kv      *mockauth.MemoryKV
	store   *sessionstore.Store
	metrics *mockauth.RecordingMetrics
	ctrl    *SessionController
}

func newControllerFixture(t *testing.T, kv *mockauth.MemoryKV, api *mockauth.FakeAuthAPI) *controllerFixture {
	t.Helper()
	if kv == nil {
		kv = mockauth.NewMemoryKV()
	}
	if api == nil {
		api = mockauth.NewFakeAuthAPI()
	}
	store, err := sessionstore.New(sessionstore.Options{KV: kv})
	require.NoError(t, err)

	rec := &mockauth.RecordingMetrics{}
	ctrl, err := NewSessionController(SessionControllerOptions{
		Submitter: NewAuthService(AuthServiceOptions{API: api, Store: store, Metrics: rec}),
		Resolver:  NewProfileResolver(ProfileResolverOptions{API: api, Metrics: rec}),
		Remote:    api,
		Store:     store,
		Metrics:   rec,
	})
	require.NoError(t, err)
	return &controllerFixture{api: api, kv: kv, store: store, metrics: rec, ctrl: ctrl}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hydration did not settle")
	}
}

func responsableLogin(_ context.Context, _ ports.LoginRequest) (ports.LoginResponse, error) {
	return ports.LoginResponse{
		Token: "tok-resp",
		User: &domainauth.Profile{
			ID:      "7",
			Nombres: "Luis",
			Roles:   []domainauth.Role{{ID: "3", Slug: "responsable", Nombre: "Responsable"}},
		},
	}, nil
}

// gate blocks a fake endpoint until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	g.once.Do(func() { close(g.entered) })
	<-g.release
}

func TestNewSessionController_RequiresDeps(t *testing.T) {
	_, err := NewSessionController(SessionControllerOptions{})
	require.Error(t, err)
}

func TestSessionController_LoginAdoptsUser(t *testing.T) {
	f := newControllerFixture(t, nil, nil)
	f.api.LoginFunc = responsableLogin

	res, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "luis@uni.bo", Password: "123"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.KindResponsable, res.Kind)

	state := f.ctrl.State()
	require.True(t, state.Authenticated())
	assert.Equal(t, domainauth.KindResponsable, state.Kind)
	assert.True(t, f.ctrl.HasAnyRole("ADMIN", "responsable"))
	assert.False(t, f.ctrl.HasAnyRole("ADMIN", "EVALUADOR"))
}

func TestSessionController_LoginErrorsAreReturned(t *testing.T) {
	f := newControllerFixture(t, nil, nil)
	f.api.LoginFunc = func(context.Context, ports.LoginRequest) (ports.LoginResponse, error) {
		return ports.LoginResponse{Message: "Usuario no encontrado"}, nil
	}

	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "x@y.z", Password: "p"})
	require.ErrorIs(t, err, domainauth.ErrIncompleteCredentialResponse)
	assert.False(t, f.ctrl.State().Authenticated())
}

func TestSessionController_RolePredicatesAreCaseInsensitive(t *testing.T) {
	f := newControllerFixture(t, nil, nil)
	assert.False(t, f.ctrl.HasRole("evaluador"), "no user means no roles")
	assert.False(t, f.ctrl.HasAnyRole())

	f.api.LoginFunc = func(context.Context, ports.LoginRequest) (ports.LoginResponse, error) {
		return ports.LoginResponse{Token: "t", User: &domainauth.Profile{
			ID:    "1",
			Roles: []domainauth.Role{{Slug: "Evaluador"}},
		}}, nil
	}
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	for _, slug := range []string{"evaluador", "EVALUADOR", "Evaluador", " evaluador "} {
		assert.True(t, f.ctrl.HasRole(slug), slug)
	}
}

func TestSessionController_StartWithoutSession(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	kv.Put(sessionstore.KeyProfile, `{"id":"1"}`)
	kv.Put(sessionstore.KeyKind, "ADMIN")
	f := newControllerFixture(t, kv, nil)

	waitDone(t, f.ctrl.Start(context.Background()))

	state := f.ctrl.State()
	assert.False(t, state.Loading)
	assert.Nil(t, state.User)
	_, ok := kv.Raw(sessionstore.KeyProfile)
	assert.False(t, ok, "orphan cached profile is dropped")
	assert.Empty(t, f.api.Calls())
}

func TestSessionController_StartWithCorruptCacheRefreshesOnce(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	kv.Put(sessionstore.KeyToken, "tok")
	kv.Put(sessionstore.KeyKind, "ADMIN")
	kv.Put(sessionstore.KeyProfile, "{corrupt")
	f := newControllerFixture(t, kv, nil)

	var done <-chan struct{}
	require.NotPanics(t, func() { done = f.ctrl.Start(context.Background()) })
	waitDone(t, done)

	state := f.ctrl.State()
	assert.False(t, state.Loading)
	require.NotNil(t, state.User)
	assert.Equal(t, mockauth.DefaultAdmin().ID, state.User.ID)
	assert.Equal(t, 1, f.api.CallCount("AdminProfile"))
	assert.Len(t, f.api.Calls(), 1)
}

func TestSessionController_StartRunsOnce(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	kv.Put(sessionstore.KeyToken, "tok")
	kv.Put(sessionstore.KeyKind, "ADMIN")
	f := newControllerFixture(t, kv, nil)

	first := f.ctrl.Start(context.Background())
	second := f.ctrl.Start(context.Background())
	assert.Equal(t, first, second)
	waitDone(t, first)
	assert.Equal(t, 1, f.api.CallCount("AdminProfile"))
}

func TestSessionController_LoadingUntilVerified(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	kv.Put(sessionstore.KeyToken, "tok")
	kv.Put(sessionstore.KeyKind, "ADMIN")
	api := mockauth.NewFakeAuthAPI()
	g := newGate()
	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		g.wait()
		return mockauth.DefaultAdmin(), nil
	}
	f := newControllerFixture(t, kv, api)

	done := f.ctrl.Start(context.Background())
	<-g.entered
	assert.True(t, f.ctrl.State().Loading)

	close(g.release)
	waitDone(t, done)
	assert.False(t, f.ctrl.State().Loading)
	assert.True(t, f.ctrl.State().Authenticated())
}

func TestSessionController_ReloadReproducesCachedRoles(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	first := newControllerFixture(t, kv, nil)
	first.api.LoginFunc = responsableLogin
	res, err := first.ctrl.Login(context.Background(), LoginInput{Correo: "luis@uni.bo", Password: "123"})
	require.NoError(t, err)

	api := mockauth.NewFakeAuthAPI()
	g := newGate()
	api.ResponsableFunc = func(context.Context) (domainauth.Person, error) {
		g.wait()
		return domainauth.Person{}, errors.New("backend unavailable")
	}
	reloaded := newControllerFixture(t, kv, api)

	done := reloaded.ctrl.Start(context.Background())
	<-g.entered
	state := reloaded.ctrl.State()
	require.NotNil(t, state.User)
	assert.Equal(t, res.Profile.Roles, state.User.Roles)
	assert.Equal(t, domainauth.KindResponsable, state.Kind)
	assert.Equal(t, []string{"ResponsableProfile"}, api.Calls(), "stored kind is tried first")

	close(g.release)
	waitDone(t, done)
}

func TestSessionController_RefreshUnresolvableClearsSession(t *testing.T) {
	api := mockauth.NewFakeAuthAPI()
	f := newControllerFixture(t, nil, api)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		return domainauth.Profile{}, domainauth.ErrUnauthorized
	}

	err = f.ctrl.Refresh(context.Background())
	require.ErrorIs(t, err, domainauth.ErrUnresolvableSession)

	assert.False(t, f.ctrl.State().Authenticated())
	assert.Empty(t, f.kv.Keys())
	_, _, clears := f.metrics.Snapshot()
	assert.Equal(t, []string{"unresolvable"}, clears)
}

func TestSessionController_RefreshOutageKeepsStoredSession(t *testing.T) {
	api := mockauth.NewFakeAuthAPI()
	f := newControllerFixture(t, nil, api)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	outage := errors.New("gateway timeout")
	api.AdminFunc = func(context.Context) (domainauth.Profile, error) { return domainauth.Profile{}, outage }

	err = f.ctrl.Refresh(context.Background())
	require.ErrorIs(t, err, outage)
	assert.False(t, f.ctrl.State().Authenticated())
	assert.Len(t, f.kv.Keys(), 3, "token, kind and profile survive an outage")
}

func TestSessionController_RefreshWithoutSession(t *testing.T) {
	f := newControllerFixture(t, nil, nil)
	err := f.ctrl.Refresh(context.Background())
	require.ErrorIs(t, err, domainauth.ErrNoSession)
	assert.Empty(t, f.api.Calls())
}

func TestSessionController_RefreshUpdatesCachedProfile(t *testing.T) {
	api := mockauth.NewFakeAuthAPI()
	f := newControllerFixture(t, nil, api)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		p := mockauth.DefaultAdmin()
		p.Nombres = "Renamed"
		return p, nil
	}
	require.NoError(t, f.ctrl.Refresh(context.Background()))

	assert.Equal(t, "Renamed", f.ctrl.State().User.Nombres)
	cached, err := f.store.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", cached.Nombres)
}

func TestSessionController_LogoutAlwaysClears(t *testing.T) {
	api := mockauth.NewFakeAuthAPI()
	api.LogoutFunc = func(context.Context) error { return errors.New("network down") }
	f := newControllerFixture(t, nil, api)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	f.ctrl.Logout(context.Background())

	assert.False(t, f.ctrl.State().Authenticated())
	assert.Empty(t, f.ctrl.State().Kind)
	assert.Empty(t, f.kv.Keys())
	assert.Equal(t, 1, api.CallCount("Logout"))
}

func TestSessionController_LoginSupersedesInFlightRefresh(t *testing.T) {
	api := mockauth.NewFakeAuthAPI()
	f := newControllerFixture(t, nil, api)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	g := newGate()
	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		g.wait()
		return mockauth.DefaultAdmin(), nil
	}

	refreshErr := make(chan error, 1)
	go func() { refreshErr <- f.ctrl.Refresh(context.Background()) }()
	<-g.entered

	api.LoginFunc = responsableLogin
	_, err = f.ctrl.Login(context.Background(), LoginInput{Correo: "luis@uni.bo", Password: "123"})
	require.NoError(t, err)

	close(g.release)
	require.ErrorIs(t, <-refreshErr, domainauth.ErrSuperseded)

	assert.Equal(t, domainauth.KindResponsable, f.ctrl.State().Kind)
	persisted, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-resp", persisted.Token)
	assert.Equal(t, domainauth.KindResponsable, persisted.Kind)
}

func TestScope_UnmountDropsPendingResult(t *testing.T) {
	api := mockauth.NewFakeAuthAPI()
	f := newControllerFixture(t, nil, api)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	g := newGate()
	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		g.wait()
		return domainauth.Profile{}, errors.New("slow failure")
	}

	scope := f.ctrl.Mount()
	var seen []domainauth.Snapshot
	scope.Subscribe(func(s domainauth.Snapshot) { seen = append(seen, s) })

	errCh := make(chan error, 1)
	go func() { errCh <- scope.Refresh(context.Background()) }()
	<-g.entered
	scope.Unmount()
	close(g.release)

	require.ErrorIs(t, <-errCh, domainauth.ErrUnmounted)
	assert.True(t, f.ctrl.State().Authenticated(), "late failure must not clear the session")
	assert.Empty(t, seen)
	assert.False(t, scope.Active())

	require.ErrorIs(t, scope.Refresh(context.Background()), domainauth.ErrUnmounted)
	_, err = scope.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.ErrorIs(t, err, domainauth.ErrUnmounted)
}

func TestSessionController_SubscribersSeeChanges(t *testing.T) {
	f := newControllerFixture(t, nil, nil)

	var mu sync.Mutex
	var states []bool
	unsubscribe := f.ctrl.Subscribe(func(s domainauth.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.Authenticated())
	})

	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)
	f.ctrl.Logout(context.Background())

	unsubscribe()
	unsubscribe()
	_, err = f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, states)
}

func TestSessionController_StateIsACopy(t *testing.T) {
	f := newControllerFixture(t, nil, nil)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	s := f.ctrl.State()
	s.User.Roles[0].Slug = "HACKED"
	assert.True(t, f.ctrl.HasRole("admin"))
}

func TestScope_UnmountedRefreshKeepsHydrationVerify(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	api := mockauth.NewFakeAuthAPI()
	g := newGate()
	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		g.wait()
		return domainauth.Profile{}, domainauth.ErrUnauthorized
	}
	f := newControllerFixture(t, kv, api)
	admin := mockauth.DefaultAdmin()
	require.NoError(t, f.store.Save(context.Background(), ports.Persisted{
		Token: "dead", Kind: domainauth.KindAdmin, Profile: &admin,
	}))

	done := f.ctrl.Start(context.Background())
	<-g.entered
	require.True(t, f.ctrl.State().Authenticated(), "cached profile is applied optimistically")

	scope := f.ctrl.Mount()
	errCh := make(chan error, 1)
	go func() { errCh <- scope.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return api.CallCount("AdminProfile") == 2 },
		2*time.Second, 5*time.Millisecond)
	scope.Unmount()
	close(g.release)

	require.ErrorIs(t, <-errCh, domainauth.ErrUnmounted)
	waitDone(t, done)

	state := f.ctrl.State()
	assert.False(t, state.Loading)
	assert.False(t, state.Authenticated())
	assert.Empty(t, state.Kind)
	assert.Empty(t, f.kv.Keys(), "rejected token must not survive")
}

func TestSessionController_OlderRefreshLosesToAppliedNewerOne(t *testing.T) {
	api := mockauth.NewFakeAuthAPI()
	f := newControllerFixture(t, nil, api)
	_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
	require.NoError(t, err)

	g := newGate()
	var mu sync.Mutex
	first := true
	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		mu.Lock()
		slow := first
		first = false
		mu.Unlock()
		if slow {
			g.wait()
			p := mockauth.DefaultAdmin()
			p.Nombres = "Stale"
			return p, nil
		}
		return mockauth.DefaultAdmin(), nil
	}

	slowErr := make(chan error, 1)
	go func() { slowErr <- f.ctrl.Refresh(context.Background()) }()
	<-g.entered

	require.NoError(t, f.ctrl.Refresh(context.Background()))
	close(g.release)
	require.ErrorIs(t, <-slowErr, domainauth.ErrSuperseded)
	assert.Equal(t, "Mock", f.ctrl.State().User.Nombres)
}

func TestSessionController_SubscriberMayChangeSession(t *testing.T) {
	f := newControllerFixture(t, nil, nil)

	var mu sync.Mutex
	var states []bool
	loggedOut := false
	f.ctrl.Subscribe(func(s domainauth.Snapshot) {
		mu.Lock()
		states = append(states, s.Authenticated())
		reenter := s.Authenticated() && !loggedOut
		loggedOut = loggedOut || reenter
		mu.Unlock()
		if reenter {
			f.ctrl.Logout(context.Background())
		}
	})

	returned := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Login(context.Background(), LoginInput{Correo: "a@b.c", Password: "p"})
		returned <- err
	}()
	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("login blocked by a subscriber that logs out")
	}

	assert.False(t, f.ctrl.State().Authenticated())
	assert.Empty(t, f.kv.Keys())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, states, "snapshots arrive in order")
}

func TestSessionController_StartIgnoresEmptyCachedProfile(t *testing.T) {
	kv := mockauth.NewMemoryKV()
	kv.Put(sessionstore.KeyToken, "tok")
	kv.Put(sessionstore.KeyKind, "ADMIN")
	kv.Put(sessionstore.KeyProfile, "null")
	api := mockauth.NewFakeAuthAPI()
	g := newGate()
	api.AdminFunc = func(context.Context) (domainauth.Profile, error) {
		g.wait()
		return mockauth.DefaultAdmin(), nil
	}
	f := newControllerFixture(t, kv, api)

	done := f.ctrl.Start(context.Background())
	<-g.entered
	state := f.ctrl.State()
	assert.True(t, state.Loading)
	assert.False(t, state.Authenticated(), "an empty cached profile is not a user")

	close(g.release)
	waitDone(t, done)
	assert.True(t, f.ctrl.State().Authenticated())
}
