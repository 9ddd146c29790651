package olympiadapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// StatusSessionExpired is the non-standard status the backend uses for an
// expired session or CSRF token.
const StatusSessionExpired = 419

// ErrMalformedPayload is returned when a response body cannot be mapped to
// the expected shape.
var ErrMalformedPayload = errors.New("malformed response payload")

// HTTPError represents a non-2xx answer from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, domainauth.ErrUnauthorized) match 401 and 419 answers.
func (e *HTTPError) Is(target error) bool {
	return target == domainauth.ErrUnauthorized && IsUnauthorizedStatus(e.StatusCode)
}

// IsUnauthorizedStatus reports whether code means the token was not accepted.
func IsUnauthorizedStatus(code int) bool {
	return code == http.StatusUnauthorized || code == StatusSessionExpired
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// UserMessage returns the backend message carried by err, if any.
func UserMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return ""
}

// newHTTPError builds an HTTPError from a response body, preferring the
// backend's "message" field, then "error", then the raw text.
func newHTTPError(status int, body []byte) *HTTPError {
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return &HTTPError{StatusCode: status, Message: msg}
		}
		if msg := strings.TrimSpace(apiErr.Error); msg != "" {
			return &HTTPError{StatusCode: status, Message: msg}
		}
	}
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "<") {
		// drop HTML error pages
		text = ""
	}
	return &HTTPError{StatusCode: status, Message: text}
}
