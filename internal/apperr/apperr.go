// Package apperr holds the error taxonomy shared by the gateway, the store
// and the view bridge.
package apperr

import (
	"errors"
	"fmt"
)

// AuthError reports rejected credentials or an unusable session
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteError reports any failed backend call: network, permission,
// constraint violation
type RemoteError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ValidationError reports input rejected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Auth builds an AuthError
func Auth(op, message string, err error) error {
	return &AuthError{Op: op, Message: message, Err: err}
}

// Remote builds a RemoteError for a transport-level failure
func Remote(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

// Invalid builds a ValidationError
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsAuth reports whether err carries an AuthError
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsRemote reports whether err carries a RemoteError
func IsRemote(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// Message returns the user-facing text of err: the backend or validation
// message when there is one, err.Error() otherwise
func Message(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Message != "" {
		return remoteErr.Message
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	return err.Error()
}
