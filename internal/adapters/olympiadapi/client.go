// Package olympiadapi is the HTTP client for the olympiad backend's auth and
// profile endpoints.
package olympiadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// Default endpoint paths.
const (
	PathLogin              = "/auth/login"
	PathLogout             = "/auth/logout"
	PathAdminProfile       = "/auth/perfil"
	PathResponsableProfile = "/responsable/perfil"
	PathEvaluadorProfile   = "/evaluador/perfil"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
	// DefaultDevice identifies the client kind in login requests.
	DefaultDevice = "web"
)

var _ ports.AuthAPI = (*Client)(nil)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Extraction Extraction
	// Transport is the base RoundTripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client talks to the olympiad backend. Authenticated calls carry the
// bearer token held by its BearerSource.
type Client struct {
	baseURL *url.URL
	anon    *http.Client
	authed  *http.Client
	bearer  *BearerSource
	extract Extraction
	logger  *slog.Logger
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url scheme: %q", base.Scheme)
	}

	extract := opts.Extraction.withDefaults()
	if err := extract.Validate(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bearer := &BearerSource{}
	return &Client{
		baseURL: base,
		anon:    &http.Client{Timeout: timeout, Jar: jar, Transport: transport},
		authed: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: &oauth2.Transport{Source: bearer, Base: transport},
		},
		bearer:  bearer,
		extract: extract,
		logger:  logger.With("component", "olympiad_api"),
	}, nil
}

// SetToken replaces the bearer token used by authenticated calls.
func (c *Client) SetToken(token string) { c.bearer.Set(token) }

// Bearer exposes the client's token source.
func (c *Client) Bearer() *BearerSource { return c.bearer }

// Login submits credentials. It never retries.
func (c *Client) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResponse, error) {
	if req.Device == "" {
		req.Device = DefaultDevice
	}
	var body any
	if err := c.do(ctx, c.anon, http.MethodPost, PathLogin, req, &body); err != nil {
		return ports.LoginResponse{}, fmt.Errorf("olympiadapi.Login: %w", err)
	}

	resp := ports.LoginResponse{
		Token:   extractString(c.extract.LoginToken, body),
		Message: extractString(c.extract.LoginMessage, body),
	}
	if v, err := search(c.extract.LoginUser, body); err == nil && v != nil {
		if dto, derr := decodeProfile(v); derr == nil {
			p := dto.toProfile()
			resp.User = &p
		}
	}
	return resp, nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, c.authed, http.MethodPost, PathLogout, nil, nil); err != nil {
		return fmt.Errorf("olympiadapi.Logout: %w", err)
	}
	return nil
}

// AdminProfile fetches the full profile from the admin endpoint.
func (c *Client) AdminProfile(ctx context.Context) (domainauth.Profile, error) {
	dto, err := c.profile(ctx, PathAdminProfile, c.extract.Admin)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("olympiadapi.AdminProfile: %w", err)
	}
	return dto.toProfile(), nil
}

// ResponsableProfile fetches the narrow responsable profile.
func (c *Client) ResponsableProfile(ctx context.Context) (domainauth.Person, error) {
	dto, err := c.profile(ctx, PathResponsableProfile, c.extract.Responsable)
	if err != nil {
		return domainauth.Person{}, fmt.Errorf("olympiadapi.ResponsableProfile: %w", err)
	}
	return dto.toPerson(), nil
}

// EvaluadorProfile fetches the narrow evaluador profile.
func (c *Client) EvaluadorProfile(ctx context.Context) (domainauth.Person, error) {
	dto, err := c.profile(ctx, PathEvaluadorProfile, c.extract.Evaluador)
	if err != nil {
		return domainauth.Person{}, fmt.Errorf("olympiadapi.EvaluadorProfile: %w", err)
	}
	return dto.toPerson(), nil
}

func (c *Client) profile(ctx context.Context, path, expr string) (profileDTO, error) {
	var body any
	if err := c.do(ctx, c.authed, http.MethodGet, path, nil, &body); err != nil {
		return profileDTO{}, err
	}
	return extractProfile(expr, body)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return ErrNoToken
		}
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.DebugContext(ctx, "backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return newHTTPError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	// Numbers stay json.Number so large ids keep every digit.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after response", ErrMalformedPayload)
	}
	return nil
}
