package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	apperrors "github.com/ohsansi/olympiad-console/internal/errors"
	obserrors "github.com/ohsansi/olympiad-console/internal/observability/errors"
	"github.com/ohsansi/olympiad-console/internal/observability/metrics"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

const tracerName = "github.com/ohsansi/olympiad-console/internal/service"

// loginDevice identifies this client kind to the backend.
const loginDevice = "web"

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	API       ports.AuthAPI
	Store     ports.SessionStore
	Metrics   ports.AuthMetrics
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Validator *validator.Validate
}

// AuthService submits credentials and persists the resulting session.
type AuthService struct {
	api      ports.AuthAPI
	store    ports.SessionStore
	metrics  ports.AuthMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
	validate *validator.Validate
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	s := &AuthService{
		api:      opts.API,
		store:    opts.Store,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		validate: opts.Validator,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "auth_service")
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s
}

// LoginInput carries the operator's credentials.
type LoginInput struct {
	Correo   string `validate:"required"`
	Password string `validate:"required"`
}

// LoginResult is the adopted session.
type LoginResult struct {
	Token   string
	Profile domainauth.Profile
	Kind    domainauth.Kind
}

// Login submits credentials exactly once, normalizes and classifies the
// returned profile and persists token, kind and profile as one write.
// Empty credentials fail validation without any network call.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	in.Correo = strings.TrimSpace(in.Correo)
	if verr := s.validate.Struct(in); verr != nil {
		return nil, apperrors.FromAuth(verr)
	}

	ctx, span := s.tracer.Start(ctx, "auth.login", trace.WithSpanKind(trace.SpanKindClient))
	start := time.Now()
	defer func() {
		outcome := obserrors.Outcome(err)
		s.metrics.LoginCompleted(outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetAttributes(attribute.String("olympiad.kind", string(res.Kind)))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	resp, err := s.api.Login(ctx, ports.LoginRequest{
		Correo:   in.Correo,
		Password: in.Password,
		Device:   loginDevice,
	})
	if err != nil {
		return nil, fmt.Errorf("submit credentials: %w", err)
	}

	if resp.Token == "" || resp.User == nil {
		return nil, &domainauth.IncompleteCredentialError{
			Message:        resp.Message,
			MissingToken:   resp.Token == "",
			MissingProfile: resp.User == nil,
		}
	}

	profile := resp.User.Normalized()
	kind := domainauth.Classify(profile)

	if err := s.store.Save(ctx, ports.Persisted{Token: resp.Token, Kind: kind, Profile: &profile}); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "kind", kind, "user_id", profile.ID)
	return &LoginResult{Token: resp.Token, Profile: profile, Kind: kind}, nil
}
