package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthAPI       = (*FakeAuthAPI)(nil)
	_ ports.KeyValueStore = (*MemoryKV)(nil)
	_ ports.BatchWriter   = (*MemoryKV)(nil)
	_ ports.AuthMetrics   = (*RecordingMetrics)(nil)
)

// ErrInjected is the default failure returned by MemoryKV when a failure is armed.
var ErrInjected = errors.New("injected storage failure")

// FakeAuthAPI simulates the remote backend. Unset funcs return a deterministic
// admin session.
type FakeAuthAPI struct {
	LoginFunc       func(ctx context.Context, req ports.LoginRequest) (ports.LoginResponse, error)
	LogoutFunc      func(ctx context.Context) error
	AdminFunc       func(ctx context.Context) (domainauth.Profile, error)
	ResponsableFunc func(ctx context.Context) (domainauth.Person, error)
	EvaluadorFunc   func(ctx context.Context) (domainauth.Person, error)

	mu    sync.Mutex
	calls []string
}

// NewFakeAuthAPI creates a FakeAuthAPI with default behavior.
func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{}
}

// DefaultAdmin is the profile returned by an unconfigured FakeAuthAPI.
func DefaultAdmin() domainauth.Profile {
	return domainauth.Profile{
		ID:        "1",
		Nombres:   "Mock",
		Apellidos: "Admin",
		Correo:    "admin@example.com",
		Roles:     []domainauth.Role{{ID: "1", Slug: "ADMIN", Nombre: "Administrador"}},
	}
}

func (f *FakeAuthAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

// Calls returns the names of the invoked methods, in order.
func (f *FakeAuthAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times the named method was invoked.
func (f *FakeAuthAPI) CallCount(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *FakeAuthAPI) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResponse, error) {
	f.record("Login")
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, req)
	}
	user := DefaultAdmin()
	return ports.LoginResponse{Token: "mock-token", User: &user}, nil
}

func (f *FakeAuthAPI) Logout(ctx context.Context) error {
	f.record("Logout")
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx)
	}
	return nil
}

func (f *FakeAuthAPI) AdminProfile(ctx context.Context) (domainauth.Profile, error) {
	f.record("AdminProfile")
	if f.AdminFunc != nil {
		return f.AdminFunc(ctx)
	}
	return DefaultAdmin(), nil
}

func (f *FakeAuthAPI) ResponsableProfile(ctx context.Context) (domainauth.Person, error) {
	f.record("ResponsableProfile")
	if f.ResponsableFunc != nil {
		return f.ResponsableFunc(ctx)
	}
	return domainauth.Person{}, domainauth.ErrUnauthorized
}

func (f *FakeAuthAPI) EvaluadorProfile(ctx context.Context) (domainauth.Person, error) {
	f.record("EvaluadorProfile")
	if f.EvaluadorFunc != nil {
		return f.EvaluadorFunc(ctx)
	}
	return domainauth.Person{}, domainauth.ErrUnauthorized
}

// MemoryKV is an in-memory key/value store for unit tests.
type MemoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
	writes int
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// FailGets makes every subsequent Get return err (nil disarms).
func (m *MemoryKV) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailWrites makes every subsequent Set, Delete and WriteBatch return err (nil disarms).
func (m *MemoryKV) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.writes++
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	m.writes++
	return nil
}

func (m *MemoryKV) WriteBatch(_ context.Context, sets map[string]string, deletes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	for _, k := range deletes {
		delete(m.data, k)
	}
	for k, v := range sets {
		m.data[k] = v
	}
	m.writes++
	return nil
}

// Keys returns the stored keys, sorted.
func (m *MemoryKV) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns the stored value for key without going through the failure hooks.
func (m *MemoryKV) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Put stores a value without going through the failure hooks.
func (m *MemoryKV) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Writes returns the number of successful write operations.
func (m *MemoryKV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// RecordingMetrics captures metric events for assertions.
type RecordingMetrics struct {
	mu       sync.Mutex
	Logins   []string
	Attempts []string
	Clears   []string
}

func (r *RecordingMetrics) LoginCompleted(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Logins = append(r.Logins, outcome)
}

func (r *RecordingMetrics) ResolveAttempt(kind domainauth.Kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts = append(r.Attempts, string(kind)+":"+outcome)
}

func (r *RecordingMetrics) SessionCleared(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clears = append(r.Clears, reason)
}

// Snapshot returns copies of the recorded events.
func (r *RecordingMetrics) Snapshot() (logins, attempts, clears []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Logins...),
		append([]string(nil), r.Attempts...),
		append([]string(nil), r.Clears...)
}
