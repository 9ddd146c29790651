package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ohsansi/olympiad-console/internal/adapters/olympiadapi"
	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// FromAuth maps errors surfaced by the auth core to AppError instances:
// - validator.ValidationErrors → Validation (first failing field)
// - context cancellation/deadline → Canceled/Timeout
// - incomplete credentials, 401/419, unresolvable or missing session → Unauthenticated
// - backend 4xx on credential submission → Unauthenticated with the backend message
// - other backend failures → Upstream
// Anything else becomes Internal. Existing AppErrors pass through.
func FromAuth(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		return &AppError{
			Code:    ErrCodeValidation,
			Message: field + " is " + verrs[0].Tag(),
			Field:   field,
			Cause:   err,
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "request timed out")
	}

	var incomplete *domainauth.IncompleteCredentialError
	if errors.As(err, &incomplete) {
		return Wrap(err, ErrCodeUnauthenticated, incomplete.Error())
	}

	var httpErr *olympiadapi.HTTPError
	if errors.As(err, &httpErr) {
		msg := httpErr.Message
		if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			if msg == "" {
				msg = "credentials rejected"
			}
			return Wrap(err, ErrCodeUnauthenticated, msg)
		}
		if msg == "" {
			msg = "olympiad backend error"
		}
		return Wrap(err, ErrCodeUpstream, msg)
	}

	switch {
	case errors.Is(err, domainauth.ErrUnresolvableSession):
		return Wrap(err, ErrCodeUnauthenticated, "session could not be resolved")
	case errors.Is(err, domainauth.ErrUnauthorized), errors.Is(err, olympiadapi.ErrNoToken):
		return Wrap(err, ErrCodeUnauthenticated, "session not accepted")
	case errors.Is(err, domainauth.ErrNoSession):
		return Wrap(err, ErrCodeUnauthenticated, "no active session")
	}

	if errors.Is(err, olympiadapi.ErrMalformedPayload) {
		return Wrap(err, ErrCodeUpstream, "unexpected response from olympiad backend")
	}

	return Wrap(err, ErrCodeInternal, "internal error")
}

// HTTPStatus maps an error code to the HTTP status used by the console.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeUpstream:
		return http.StatusBadGateway
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
