package ports

// Package ports defines interfaces (hexagonal ports) for the console's auth core.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// KeyValueStore is the durable string store backing the session.
// Get reports ok=false for a missing key rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// BatchWriter is implemented by stores that can apply several writes atomically.
type BatchWriter interface {
	WriteBatch(ctx context.Context, sets map[string]string, deletes []string) error
}

// Persisted is the session triple as read back from storage.
// Profile is nil when absent or unreadable.
type Persisted struct {
	Token   string
	Kind    domainauth.Kind
	Profile *domainauth.Profile
}

// Complete reports whether both token and a valid kind are present.
func (p Persisted) Complete() bool {
	return p.Token != "" && p.Kind.Valid()
}

// SessionStore persists the session triple (token, kind, profile).
type SessionStore interface {
	Load(ctx context.Context) (Persisted, error)
	Save(ctx context.Context, p Persisted) error
	Clear(ctx context.Context) error
	SetKind(ctx context.Context, kind domainauth.Kind) error
	SetProfile(ctx context.Context, profile *domainauth.Profile) error
}

// LoginRequest is the body of the backend credential call.
type LoginRequest struct {
	Correo   string `json:"correo"`
	Password string `json:"password"`
	Device   string `json:"device"`
}

// LoginResponse is the normalized backend login answer. Token and User may be empty.
type LoginResponse struct {
	Token   string
	User    *domainauth.Profile
	Message string
}

// ProfileAPI exposes the three kind-specific profile endpoints.
// A 401/419 answer matches domainauth.ErrUnauthorized via errors.Is.
type ProfileAPI interface {
	AdminProfile(ctx context.Context) (domainauth.Profile, error)
	ResponsableProfile(ctx context.Context) (domainauth.Person, error)
	EvaluadorProfile(ctx context.Context) (domainauth.Person, error)
}

// AuthAPI is the remote backend used by the auth core.
type AuthAPI interface {
	ProfileAPI
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Logout(ctx context.Context) error
}

// AuthMetrics records auth core events. Implementations must be safe for concurrent use.
type AuthMetrics interface {
	LoginCompleted(outcome string, d time.Duration)
	ResolveAttempt(kind domainauth.Kind, outcome string)
	SessionCleared(reason string)
}
