package telegram

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingToken is returned when no bot token is configured.
	ErrMissingToken = errors.New("telegram bot token not configured")

	// ErrInvalidSession is returned by Notify for session IDs that are not chat IDs.
	ErrInvalidSession = errors.New("session id is not a telegram chat id")

	// ErrInvalidMaxAttempts is returned when retry attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrAPI matches any *APIError.
	ErrAPI = errors.New("telegram api error")
)

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	// RetryAfter is the server-requested wait in seconds, if any.
	RetryAfter int
}

func (e *APIError) Error() string {
	desc := e.Description
	if desc == "" {
		desc = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.StatusCode, desc)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// Temporary reports whether repeating the call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
