// Package errors derives low-cardinality labels from errors for metrics and logs.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// Outcome labels used by auth metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeUnresolvable = "unresolvable"
	OutcomeIncomplete   = "incomplete"
	OutcomeCanceled     = "canceled"
	OutcomeSuperseded   = "superseded"
	OutcomeError        = "error"
)

// Classify returns a normalized error type name suitable for tagging metrics/logs.
// It unwraps errors until the innermost concrete type is found and converts it to snake_case-ish.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}

// Outcome maps an auth core error to one of the Outcome* labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case goerrors.Is(err, context.Canceled), goerrors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case goerrors.Is(err, domainauth.ErrSuperseded), goerrors.Is(err, domainauth.ErrUnmounted):
		return OutcomeSuperseded
	case goerrors.Is(err, domainauth.ErrUnresolvableSession):
		return OutcomeUnresolvable
	case goerrors.Is(err, domainauth.ErrIncompleteCredentialResponse):
		return OutcomeIncomplete
	case goerrors.Is(err, domainauth.ErrUnauthorized):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
