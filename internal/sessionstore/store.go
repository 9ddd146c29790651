// Package sessionstore persists the console session triple (token, kind, profile)
// over a pluggable key/value backend.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// Fixed storage keys.
const (
	KeyToken   = "olympiad.token"
	KeyKind    = "olympiad.kind"
	KeyProfile = "olympiad.profile"
)

// Keys lists every key owned by the store.
func Keys() []string { return []string{KeyToken, KeyKind, KeyProfile} }

var _ ports.SessionStore = (*Store)(nil)

// TokenObserver receives the current bearer token after every token write.
// An empty string means the token was removed.
type TokenObserver func(token string)

// Options configures a Store.
type Options struct {
	KV      ports.KeyValueStore
	Logger  *slog.Logger
	OnToken TokenObserver
}

// Store is the persistent session store.
type Store struct {
	kv      ports.KeyValueStore
	logger  *slog.Logger
	mu      sync.Mutex
	onToken TokenObserver
}

// New creates a Store.
func New(opts Options) (*Store, error) {
	if opts.KV == nil {
		return nil, errors.New("sessionstore: key/value backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:      opts.KV,
		logger:  logger.With("component", "session_store"),
		onToken: opts.OnToken,
	}, nil
}

// OnToken replaces the token observer.
func (s *Store) OnToken(fn TokenObserver) {
	s.mu.Lock()
	s.onToken = fn
	s.mu.Unlock()
}

func (s *Store) notifyToken(token string) {
	s.mu.Lock()
	fn := s.onToken
	s.mu.Unlock()
	if fn != nil {
		fn(token)
	}
}

// SetToken writes the token; an empty token removes the key.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.setOrDelete(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	s.notifyToken(token)
	return nil
}

// Token returns the stored token, or "" when absent.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return v, nil
}

// SetKind writes the principal kind; an empty kind removes the key.
func (s *Store) SetKind(ctx context.Context, kind domainauth.Kind) error {
	if err := s.setOrDelete(ctx, KeyKind, string(kind)); err != nil {
		return fmt.Errorf("set kind: %w", err)
	}
	return nil
}

// Kind returns the stored kind. An absent or unrecognized value yields "".
func (s *Store) Kind(ctx context.Context) (domainauth.Kind, error) {
	v, ok, err := s.kv.Get(ctx, KeyKind)
	if err != nil {
		return "", fmt.Errorf("get kind: %w", err)
	}
	if !ok || v == "" {
		return "", nil
	}
	kind, perr := domainauth.ParseKind(v)
	if perr != nil {
		s.logger.WarnContext(ctx, "ignoring unrecognized stored kind", "value", v)
		return "", nil
	}
	return kind, nil
}

// SetProfile writes the cached profile as JSON; nil removes the key.
func (s *Store) SetProfile(ctx context.Context, profile *domainauth.Profile) error {
	value, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	if err := s.setOrDelete(ctx, KeyProfile, value); err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

// Profile returns the cached profile. A corrupt value, including one without
// an id, is deleted and reported as absent.
func (s *Store) Profile(ctx context.Context) (*domainauth.Profile, error) {
	v, ok, err := s.kv.Get(ctx, KeyProfile)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if !ok || v == "" {
		return nil, nil
	}
	var p domainauth.Profile
	if uerr := json.Unmarshal([]byte(v), &p); uerr != nil {
		s.discardProfile(ctx, "error", uerr)
		return nil, nil
	}
	if strings.TrimSpace(p.ID) == "" {
		s.discardProfile(ctx, "reason", "missing id")
		return nil, nil
	}
	return &p, nil
}

func (s *Store) discardProfile(ctx context.Context, args ...any) {
	s.logger.WarnContext(ctx, "discarding corrupt cached profile", args...)
	if err := s.kv.Delete(ctx, KeyProfile); err != nil {
		s.logger.WarnContext(ctx, "failed to delete corrupt cached profile", "error", err)
	}
}

// fitsKind reports whether a cached profile can belong to kind. Responsable
// and evaluador profiles always carry their own role.
func fitsKind(p *domainauth.Profile, kind domainauth.Kind) bool {
	switch kind {
	case domainauth.KindResponsable:
		return p.HasRole(domainauth.SlugResponsable)
	case domainauth.KindEvaluador:
		return p.HasRole(domainauth.SlugEvaluador)
	default:
		return true
	}
}

// Load reads the whole triple and re-announces the token to the observer.
func (s *Store) Load(ctx context.Context) (ports.Persisted, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return ports.Persisted{}, err
	}
	kind, err := s.Kind(ctx)
	if err != nil {
		return ports.Persisted{}, err
	}
	profile, err := s.Profile(ctx)
	if err != nil {
		return ports.Persisted{}, err
	}
	if profile != nil && kind != "" && !fitsKind(profile, kind) {
		s.discardProfile(ctx, "reason", "kind mismatch", "kind", kind)
		profile = nil
	}
	s.notifyToken(token)
	return ports.Persisted{Token: token, Kind: kind, Profile: profile}, nil
}

// Save replaces the whole triple. Empty fields are removed.
// Backends implementing ports.BatchWriter apply it as one write.
func (s *Store) Save(ctx context.Context, p ports.Persisted) error {
	profile, err := encodeProfile(p.Profile)
	if err != nil {
		return err
	}

	values := map[string]string{
		KeyToken:   p.Token,
		KeyKind:    string(p.Kind),
		KeyProfile: profile,
	}
	sets := make(map[string]string, len(values))
	var deletes []string
	for _, k := range Keys() {
		if values[k] == "" {
			deletes = append(deletes, k)
			continue
		}
		sets[k] = values[k]
	}

	if bw, ok := s.kv.(ports.BatchWriter); ok {
		if err := bw.WriteBatch(ctx, sets, deletes); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	} else {
		if len(deletes) > 0 {
			if err := s.kv.Delete(ctx, deletes...); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
		}
		for _, k := range Keys() {
			v, ok := sets[k]
			if !ok {
				continue
			}
			if err := s.kv.Set(ctx, k, v); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
		}
	}

	s.notifyToken(p.Token)
	return nil
}

// Clear removes the whole triple.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Keys()...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.notifyToken("")
	return nil
}

func (s *Store) setOrDelete(ctx context.Context, key, value string) error {
	if value == "" {
		return s.kv.Delete(ctx, key)
	}
	return s.kv.Set(ctx, key, value)
}

func encodeProfile(p *domainauth.Profile) (string, error) {
	if p == nil {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal profile: %w", err)
	}
	return string(data), nil
}
