// Package metrics records auth core events to Prometheus and StatsD.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	"github.com/ohsansi/olympiad-console/internal/observability/statsd"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// Reasons passed to SessionCleared.
const (
	ReasonLogout       = "logout"
	ReasonUnresolvable = "unresolvable"
	ReasonMissing      = "missing"
)

var (
	_ ports.AuthMetrics = (*Prometheus)(nil)
	_ ports.AuthMetrics = (*StatsD)(nil)
	_ ports.AuthMetrics = Multi(nil)
	_ ports.AuthMetrics = Nop{}
)

// Config configures the Prometheus recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "olympiad").
	Namespace string
	// Subsystem is the metrics subsystem (default: "auth").
	Subsystem string
	// Buckets are the histogram buckets for login duration.
	Buckets []float64
	// Registry is the Prometheus registry to use (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// Option configures the Prometheus recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

// WithBuckets sets the login duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

func defaultConfig() Config {
	return Config{
		Namespace: "olympiad",
		Subsystem: "auth",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus records auth events as Prometheus collectors.
type Prometheus struct {
	logins        *prometheus.CounterVec
	loginDuration prometheus.Histogram
	attempts      *prometheus.CounterVec
	cleared       *prometheus.CounterVec
}

// NewPrometheus registers the auth collectors.
func NewPrometheus(opts ...Option) *Prometheus {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Prometheus{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "logins_total",
			Help:      "Credential submissions by outcome",
		}, []string{"outcome"}),
		loginDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "login_duration_seconds",
			Help:      "Credential submission duration in seconds",
			Buckets:   cfg.Buckets,
		}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "profile_attempts_total",
			Help:      "Profile endpoint attempts by principal kind and outcome",
		}, []string{"kind", "outcome"}),
		cleared: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "sessions_cleared_total",
			Help:      "Sessions cleared by reason",
		}, []string{"reason"}),
	}
}

func (p *Prometheus) LoginCompleted(outcome string, d time.Duration) {
	p.logins.WithLabelValues(outcome).Inc()
	p.loginDuration.Observe(d.Seconds())
}

func (p *Prometheus) ResolveAttempt(kind domainauth.Kind, outcome string) {
	p.attempts.WithLabelValues(string(kind), outcome).Inc()
}

func (p *Prometheus) SessionCleared(reason string) {
	p.cleared.WithLabelValues(reason).Inc()
}

// StatsD records auth events through a statsd.Sink.
type StatsD struct {
	sink statsd.Sink
}

// NewStatsD wraps sink; a nil sink drops everything.
func NewStatsD(sink statsd.Sink) *StatsD { return &StatsD{sink: sink} }

func (s *StatsD) LoginCompleted(outcome string, d time.Duration) {
	if s.sink == nil {
		return
	}
	tags := map[string]string{"outcome": outcome}
	s.sink.Count("auth.login", 1, tags)
	if d > 0 {
		s.sink.Timing("auth.login.duration", d, CloneTags(tags))
	}
}

func (s *StatsD) ResolveAttempt(kind domainauth.Kind, outcome string) {
	if s.sink == nil {
		return
	}
	s.sink.Count("auth.profile_attempt", 1, map[string]string{"kind": string(kind), "outcome": outcome})
}

func (s *StatsD) SessionCleared(reason string) {
	if s.sink == nil {
		return
	}
	s.sink.Count("auth.session_cleared", 1, map[string]string{"reason": reason})
}

// Multi fans every event out to each recorder.
type Multi []ports.AuthMetrics

func (m Multi) LoginCompleted(outcome string, d time.Duration) {
	for _, r := range m {
		r.LoginCompleted(outcome, d)
	}
}

func (m Multi) ResolveAttempt(kind domainauth.Kind, outcome string) {
	for _, r := range m {
		r.ResolveAttempt(kind, outcome)
	}
}

func (m Multi) SessionCleared(reason string) {
	for _, r := range m {
		r.SessionCleared(reason)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) LoginCompleted(string, time.Duration)   {}
func (Nop) ResolveAttempt(domainauth.Kind, string) {}
func (Nop) SessionCleared(string)                  {}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
