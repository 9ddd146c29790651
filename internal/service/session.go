package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	"github.com/ohsansi/olympiad-console/internal/observability/metrics"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// CredentialSubmitter exchanges credentials for a persisted session.
type CredentialSubmitter interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
}

// ProfileSource resolves the profile behind the current token.
type ProfileSource interface {
	Resolve(ctx context.Context, hint domainauth.Kind) (*Resolution, error)
}

// RemoteLogout ends the session on the backend.
type RemoteLogout interface {
	Logout(ctx context.Context) error
}

// SessionControllerOptions groups dependencies for SessionController.
type SessionControllerOptions struct {
	Submitter CredentialSubmitter
	Resolver  ProfileSource
	Remote    RemoteLogout
	Store     ports.SessionStore
	Metrics   ports.AuthMetrics
	Logger    *slog.Logger
}

// SessionController owns the in-memory session and keeps it consistent with
// the persisted triple. One instance lives for the lifetime of the process.
type SessionController struct {
	submitter CredentialSubmitter
	resolver  ProfileSource
	remote    RemoteLogout
	store     ports.SessionStore
	metrics   ports.AuthMetrics
	logger    *slog.Logger

	mu      sync.Mutex
	user    *domainauth.Profile
	kind    domainauth.Kind
	loading bool
	// epoch moves on every login and logout. Refreshes carry a ticket in
	// issue order; applied is the newest ticket whose result was adopted.
	epoch   uint64
	issued  uint64
	applied uint64

	subMu   sync.Mutex
	subs    map[uint64]func(domainauth.Snapshot)
	nextSub uint64

	// notifyMu guards the delivery queue. It is never held while a
	// subscriber runs, so subscribers may call back into the controller.
	notifyMu sync.Mutex
	pending  []domainauth.Snapshot
	draining bool

	startOnce sync.Once
	started   chan struct{}
}

// NewSessionController constructs a SessionController.
func NewSessionController(opts SessionControllerOptions) (*SessionController, error) {
	if opts.Submitter == nil || opts.Resolver == nil || opts.Store == nil {
		return nil, errors.New("session controller: submitter, resolver and store are required")
	}
	c := &SessionController{
		submitter: opts.Submitter,
		resolver:  opts.Resolver,
		remote:    opts.Remote,
		store:     opts.Store,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		subs:      make(map[uint64]func(domainauth.Snapshot)),
		started:   make(chan struct{}),
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "session_controller")
	return c, nil
}

// State returns a copy of the current session.
func (c *SessionController) State() domainauth.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *SessionController) snapshotLocked() domainauth.Snapshot {
	return domainauth.Snapshot{User: c.user.Clone(), Kind: c.kind, Loading: c.loading}
}

// HasRole reports whether the current user holds slug (case-insensitive).
func (c *SessionController) HasRole(slug string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user.HasRole(slug)
}

// HasAnyRole reports whether the current user holds any of slugs.
func (c *SessionController) HasAnyRole(slugs ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user.HasAnyRole(slugs...)
}

// Subscribe registers fn for every state change and returns a function that
// removes it.
func (c *SessionController) Subscribe(fn func(domainauth.Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// notify queues the current state for subscribers. Whichever caller finds
// the queue idle drains it; snapshots are delivered in the order they were
// taken. A notify from inside a subscriber only queues.
func (c *SessionController) notify() {
	c.notifyMu.Lock()
	c.pending = append(c.pending, c.State())
	if c.draining {
		c.notifyMu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 {
		batch := c.pending
		c.pending = nil
		c.notifyMu.Unlock()
		for _, snap := range batch {
			c.deliver(snap)
		}
		c.notifyMu.Lock()
	}
	c.draining = false
	c.notifyMu.Unlock()
}

func (c *SessionController) deliver(snap domainauth.Snapshot) {
	c.subMu.Lock()
	fns := make([]func(domainauth.Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// bumpEpoch invalidates every refresh issued so far and returns the newest
// ticket at that point.
func (c *SessionController) bumpEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.issued
}

type refreshTicket struct {
	seq   uint64
	epoch uint64
}

func (c *SessionController) issue() refreshTicket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return refreshTicket{seq: c.issued, epoch: c.epoch}
}

// Start hydrates the session from the store exactly once. The cached profile
// is applied synchronously; verification runs in the background and the
// returned channel closes when loading has settled. Later calls return the
// same channel.
func (c *SessionController) Start(ctx context.Context) <-chan struct{} {
	c.startOnce.Do(func() { c.hydrate(ctx) })
	return c.started
}

func (c *SessionController) hydrate(ctx context.Context) {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	c.notify()

	persisted, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "session hydration read failed", "error", err)
		persisted = ports.Persisted{}
	}

	if persisted.Token == "" || persisted.Kind == "" {
		if err := c.store.SetProfile(ctx, nil); err != nil {
			c.logger.WarnContext(ctx, "failed to drop cached profile", "error", err)
		}
		c.mu.Lock()
		c.user, c.kind, c.loading = nil, "", false
		c.mu.Unlock()
		c.notify()
		close(c.started)
		return
	}

	if persisted.Profile != nil {
		c.mu.Lock()
		c.user = persisted.Profile.Clone()
		c.kind = persisted.Kind
		c.mu.Unlock()
		c.notify()
	}

	go func() {
		defer close(c.started)
		if err := c.Refresh(ctx); err != nil {
			c.logger.InfoContext(ctx, "session verification did not succeed", "error", err)
		}
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		c.notify()
	}()
}

// Refresh re-resolves the profile for the persisted token and kind.
//
// On success the user and the cached profile are replaced. An unresolvable
// session is cleared from the store as if Logout had been called. Other
// failures clear only the in-memory user. Results that lost to a login, a
// logout or a newer refresh that was already applied are discarded with
// domainauth.ErrSuperseded. A dropped result never invalidates others.
func (c *SessionController) Refresh(ctx context.Context) error {
	return c.refresh(ctx, nil)
}

func (c *SessionController) refresh(ctx context.Context, scope *Scope) error {
	ticket := c.issue()

	persisted, err := c.store.Load(ctx)
	if err != nil {
		return c.failRefresh(ctx, ticket, scope, fmt.Errorf("load session: %w", err))
	}
	if persisted.Token == "" || persisted.Kind == "" {
		return c.failRefresh(ctx, ticket, scope, domainauth.ErrNoSession)
	}

	res, err := c.resolver.Resolve(ctx, persisted.Kind)
	if err != nil {
		return c.failRefresh(ctx, ticket, scope, err)
	}

	c.mu.Lock()
	if err := c.claimLocked(ticket, scope); err != nil {
		c.mu.Unlock()
		return err
	}
	profile := res.Profile
	serr := c.store.Save(ctx, ports.Persisted{Token: persisted.Token, Kind: res.Kind, Profile: &profile})
	if serr != nil {
		c.user, c.kind = nil, ""
	} else {
		c.user, c.kind = profile.Clone(), res.Kind
	}
	c.mu.Unlock()
	c.notify()

	if serr != nil {
		return fmt.Errorf("persist session: %w", serr)
	}
	c.logger.DebugContext(ctx, "session verified", "kind", res.Kind, "attempts", len(res.Attempts))
	return nil
}

func (c *SessionController) failRefresh(ctx context.Context, ticket refreshTicket, scope *Scope, cause error) error {
	c.mu.Lock()
	if err := c.claimLocked(ticket, scope); err != nil {
		c.mu.Unlock()
		return err
	}
	if errors.Is(cause, domainauth.ErrUnresolvableSession) {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.ErrorContext(ctx, "failed to clear unresolvable session", "error", err)
		}
		c.metrics.SessionCleared(metrics.ReasonUnresolvable)
		c.logger.WarnContext(ctx, "session cleared", "reason", metrics.ReasonUnresolvable)
	} else if errors.Is(cause, domainauth.ErrNoSession) {
		c.metrics.SessionCleared(metrics.ReasonMissing)
	}
	c.user, c.kind = nil, ""
	c.mu.Unlock()
	c.notify()
	return cause
}

// claimLocked decides whether a refresh result may be applied and, if so,
// records it as the newest applied one.
func (c *SessionController) claimLocked(t refreshTicket, scope *Scope) error {
	if scope != nil && !scope.Active() {
		return domainauth.ErrUnmounted
	}
	if t.epoch != c.epoch || t.seq < c.applied {
		return domainauth.ErrSuperseded
	}
	c.applied = t.seq
	return nil
}

// Login submits credentials and adopts the resulting session. Any refresh
// still in flight is superseded. Errors are returned to the caller.
func (c *SessionController) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	mark := c.bumpEpoch()

	res, err := c.submitter.Login(ctx, in)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.applied > mark {
		// A refresh issued during this login re-saved the store; write ours back.
		profile := res.Profile
		if err := c.store.Save(ctx, ports.Persisted{Token: res.Token, Kind: res.Kind, Profile: &profile}); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("persist session: %w", err)
		}
	}
	c.epoch++
	c.user = res.Profile.Clone()
	c.kind = res.Kind
	c.mu.Unlock()
	c.notify()
	return res, nil
}

// Logout ends the session remotely on a best-effort basis and always clears
// the local session.
func (c *SessionController) Logout(ctx context.Context) {
	c.bumpEpoch()

	if c.remote != nil {
		if err := c.remote.Logout(ctx); err != nil {
			c.logger.WarnContext(ctx, "remote logout failed", "error", err)
		}
	}

	c.mu.Lock()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.ErrorContext(ctx, "failed to clear persisted session", "error", err)
	}
	c.epoch++
	c.user, c.kind = nil, ""
	c.mu.Unlock()

	c.metrics.SessionCleared(metrics.ReasonLogout)
	c.notify()
}

// Scope is a consumer's view of the controller. Results of requests issued
// through a scope are discarded once it is unmounted.
type Scope struct {
	c      *SessionController
	active atomic.Bool

	mu     sync.Mutex
	unsubs []func()
}

// Mount opens a new consumer scope.
func (c *SessionController) Mount() *Scope {
	s := &Scope{c: c}
	s.active.Store(true)
	return s
}

// Active reports whether the scope is still mounted.
func (s *Scope) Active() bool { return s.active.Load() }

// Unmount closes the scope and removes its subscriptions.
func (s *Scope) Unmount() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

// State returns the controller state.
func (s *Scope) State() domainauth.Snapshot { return s.c.State() }

// HasRole delegates to the controller.
func (s *Scope) HasRole(slug string) bool { return s.c.HasRole(slug) }

// HasAnyRole delegates to the controller.
func (s *Scope) HasAnyRole(slugs ...string) bool { return s.c.HasAnyRole(slugs...) }

// Refresh is SessionController.Refresh, dropped with domainauth.ErrUnmounted
// when the scope has gone away. A dropped result leaves the controller as if
// the request had never been issued.
func (s *Scope) Refresh(ctx context.Context) error {
	if !s.Active() {
		return domainauth.ErrUnmounted
	}
	return s.c.refresh(ctx, s)
}

// Login adopts the session on the controller like SessionController.Login.
// The stored session and the controller always move together, so only the
// caller-facing result is withheld when the scope unmounted meanwhile.
func (s *Scope) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if !s.Active() {
		return nil, domainauth.ErrUnmounted
	}
	res, err := s.c.Login(ctx, in)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, domainauth.ErrUnmounted
	}
	return res, nil
}

// Logout delegates to the controller.
func (s *Scope) Logout(ctx context.Context) { s.c.Logout(ctx) }

// Subscribe registers fn until the scope unmounts.
func (s *Scope) Subscribe(fn func(domainauth.Snapshot)) {
	unsub := s.c.Subscribe(func(snap domainauth.Snapshot) {
		if s.Active() {
			fn(snap)
		}
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Active() {
		unsub()
		return
	}
	s.unsubs = append(s.unsubs, unsub)
}
