package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	"github.com/ohsansi/olympiad-console/internal/observability/metrics"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// ProfileResolverOptions groups dependencies for ProfileResolver.
type ProfileResolverOptions struct {
	API     ports.ProfileAPI
	Metrics ports.AuthMetrics
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// ProfileResolver determines which profile endpoint accepts the current token
// by walking the fallback cycle ADMIN → RESPONSABLE → EVALUADOR.
type ProfileResolver struct {
	api     ports.ProfileAPI
	metrics ports.AuthMetrics
	logger  *slog.Logger
	tracer  trace.Tracer

	mu       sync.Mutex
	lastKind domainauth.Kind
}

// NewProfileResolver constructs a ProfileResolver.
func NewProfileResolver(opts ProfileResolverOptions) *ProfileResolver {
	r := &ProfileResolver{
		api:     opts.API,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
	}
	if r.metrics == nil {
		r.metrics = metrics.Nop{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "profile_resolver")
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// Resolution is a successful resolver outcome.
type Resolution struct {
	Profile  domainauth.Profile
	Kind     domainauth.Kind
	Attempts []domainauth.Kind
}

// LastKind returns the kind that most recently resolved in this process.
func (r *ProfileResolver) LastKind() domainauth.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastKind
}

// Resolve fetches the profile for the current token. The cycle starts at hint,
// falling back to the last resolved kind and then ADMIN. A 401/419 advances to
// the next untried kind; any other failure aborts with that error. When every
// kind rejects the token the result is domainauth.ErrUnresolvableSession.
func (r *ProfileResolver) Resolve(ctx context.Context, hint domainauth.Kind) (*Resolution, error) {
	if !hint.Valid() {
		hint = r.LastKind()
	}

	ctx, span := r.tracer.Start(ctx, "auth.resolve_profile",
		trace.WithAttributes(attribute.String("olympiad.kind_hint", string(hint))))
	defer span.End()

	state := domainauth.StartFallback(hint)
	var profile domainauth.Profile
	var lastErr error

	for !state.Terminal() {
		kind, _ := state.Current()
		p, err := r.attempt(ctx, kind)

		outcome := domainauth.OutcomeResolved
		switch {
		case err == nil:
			profile = p
		case errors.Is(err, domainauth.ErrUnauthorized):
			outcome = domainauth.OutcomeRejected
		default:
			outcome = domainauth.OutcomeFailed
		}
		r.metrics.ResolveAttempt(kind, outcome.String())
		r.logger.DebugContext(ctx, "profile attempt", "kind", kind, "outcome", outcome.String())

		lastErr = err
		state = domainauth.Next(state, outcome)
	}

	if kind, ok := state.Resolved(); ok {
		r.mu.Lock()
		r.lastKind = kind
		r.mu.Unlock()
		span.SetAttributes(attribute.String("olympiad.kind", string(kind)))
		span.SetStatus(codes.Ok, "")
		return &Resolution{Profile: profile, Kind: kind, Attempts: state.Attempts()}, nil
	}

	if state.Exhausted {
		span.SetStatus(codes.Error, "unresolvable")
		return nil, fmt.Errorf("%w (tried %v)", domainauth.ErrUnresolvableSession, state.Attempts())
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "profile request failed")
	return nil, lastErr
}

func (r *ProfileResolver) attempt(ctx context.Context, kind domainauth.Kind) (domainauth.Profile, error) {
	ctx, span := r.tracer.Start(ctx, "auth.profile."+string(kind))
	defer span.End()

	p, err := r.fetch(ctx, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domainauth.Profile{}, err
	}
	return p, nil
}

func (r *ProfileResolver) fetch(ctx context.Context, kind domainauth.Kind) (domainauth.Profile, error) {
	switch kind {
	case domainauth.KindAdmin:
		p, err := r.api.AdminProfile(ctx)
		if err != nil {
			return domainauth.Profile{}, err
		}
		return p.Normalized(), nil
	case domainauth.KindResponsable, domainauth.KindEvaluador:
		fetch := r.api.ResponsableProfile
		if kind == domainauth.KindEvaluador {
			fetch = r.api.EvaluadorProfile
		}
		person, err := fetch(ctx)
		if err != nil {
			return domainauth.Profile{}, err
		}
		p, err := domainauth.Synthesize(kind, person)
		if err != nil {
			return domainauth.Profile{}, err
		}
		return p.Normalized(), nil
	default:
		return domainauth.Profile{}, fmt.Errorf("unknown principal kind %q", kind)
	}
}
