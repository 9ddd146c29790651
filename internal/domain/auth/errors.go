package auth

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthorized marks a profile endpoint rejecting the session (HTTP 401 or 419).
	// It is the routine signal that drives the fallback cycle.
	ErrUnauthorized = errors.New("principal not recognized by endpoint")

	// ErrUnresolvableSession is returned when every profile endpoint rejected the token.
	ErrUnresolvableSession = errors.New("unresolvable session: no profile endpoint accepted the token")

	// ErrIncompleteCredentialResponse matches any *IncompleteCredentialError.
	ErrIncompleteCredentialResponse = errors.New("incomplete credential response")

	// ErrNoSession is returned when an operation needs a persisted token and kind.
	ErrNoSession = errors.New("no active session")

	// ErrSuperseded is returned when a newer login, logout or refresh made a
	// result stale before it could be applied.
	ErrSuperseded = errors.New("session result superseded")

	// ErrUnmounted is returned when the consumer that issued a request went
	// away before the result arrived.
	ErrUnmounted = errors.New("consumer unmounted")
)

// IncompleteCredentialError reports a login response lacking a token or a profile.
type IncompleteCredentialError struct {
	// Message is the backend-provided message, if any.
	Message        string
	MissingToken   bool
	MissingProfile bool
}

func (e *IncompleteCredentialError) Error() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	var missing []string
	if e.MissingToken {
		missing = append(missing, "token")
	}
	if e.MissingProfile {
		missing = append(missing, "user")
	}
	if len(missing) == 0 {
		return ErrIncompleteCredentialResponse.Error()
	}
	return ErrIncompleteCredentialResponse.Error() + ": missing " + strings.Join(missing, " and ")
}

// Is lets errors.Is match ErrIncompleteCredentialResponse.
func (e *IncompleteCredentialError) Is(target error) bool {
	return target == ErrIncompleteCredentialResponse
}
