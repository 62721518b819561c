package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSchema marks a response whose body does not match the expected shape.
	ErrSchema = errors.New("response schema mismatch")
	// ErrInvalidBaseURL is returned by New for unusable base URLs.
	ErrInvalidBaseURL = errors.New("invalid base url")
	// ErrResponseTooLarge is returned when a body exceeds the read limit.
	ErrResponseTooLarge = errors.New("response body too large")
)

// StatusError is returned for every non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// SchemaError wraps a decode or validation failure of a response body.
type SchemaError struct {
	Path   string
	Target string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: decode %s: %v", e.Path, e.Target, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// StatusCode extracts the backend status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend. Feature
// pages treat both as "session invalid".
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// Message returns the backend's human-readable message for err when present,
// otherwise err.Error().
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
