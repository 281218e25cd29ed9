package tracker

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when a required option has no value.
var ErrNotConfigured = errors.New("not configured")

// ValidationError is a user-facing error that blocks the action the user
// attempted (linking, adopting an existing issue).
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or malformed configuration option.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
