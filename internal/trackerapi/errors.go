package trackerapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTooManyPages is returned when a paginated listing keeps returning
// non-empty pages past the configured page limit.
var ErrTooManyPages = errors.New("pagination limit exceeded")

// TransportError means the HTTP exchange could not complete (DNS failure,
// refused connection, timeout, truncated body).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means a response expected to be JSON was not.
type DecodeError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response (status %d): %v", e.Path, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError means a listing request was answered with an error status.
type StatusError struct {
	Path       string
	StatusCode int
	Errors     []string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: tracker returned status %d", e.Path, e.StatusCode)
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	return msg
}

// CreationError means issue creation round-tripped but the response did not
// describe a created issue.
type CreationError struct {
	StatusCode int
	Errors     []string
}

func (e *CreationError) Error() string {
	msg := fmt.Sprintf("unable to create tracker issue (status %d)", e.StatusCode)
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	return msg
}

// NotFoundError means the tracker could not return the requested issue.
type NotFoundError struct {
	Ref        Ref
	StatusCode int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("issue %s not found (status %d)", e.Ref, e.StatusCode)
}
