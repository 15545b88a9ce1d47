package api

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when the server reports the caller's
// session as invalid, either via HTTP 401 or a non-success status on the
// transactions list. Callers must clear the session and navigate to
// sign-in; this error is never retried.
var ErrUnauthenticated = errors.New("session is not authenticated")

// Error is a non-2xx response with a server-reported message. The server's
// error body is the usual {"error": "..."} shape.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}
