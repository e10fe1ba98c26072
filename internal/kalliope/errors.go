package kalliope

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for Kalliope API calls.
var (
	// ErrRequestFailed wraps transport failures: DNS, refused connections,
	// timeouts, unreadable bodies.
	ErrRequestFailed = errors.New("kalliope: request failed")

	// ErrInvalidURL is returned when the settings URL cannot be parsed.
	ErrInvalidURL = errors.New("kalliope: invalid server url")

	// ErrEmptyOrder is returned by RunOrder for blank order text.
	ErrEmptyOrder = errors.New("kalliope: order text is empty")

	// ErrUnauthorized matches a 401 or 403 StatusError.
	ErrUnauthorized = errors.New("kalliope: unauthorized")

	// ErrNotFound matches a 404 StatusError, returned for unknown synapses
	// and for orders that matched nothing.
	ErrNotFound = errors.New("kalliope: not found")

	// ErrServer matches a 5xx StatusError.
	ErrServer = errors.New("kalliope: server error")
)

// maxErrorBody bounds the response text quoted in StatusError.Error.
const maxErrorBody = 200

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int

	// Body is the response body as received.
	Body []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("kalliope: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return msg
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return msg + ": " + body
}

// Is maps the status code onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}
