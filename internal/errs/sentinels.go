// Package errs contains sentinel errors and error kinds used across layers
// for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across store/service layers.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)

// AuthError indicates failed authentication: invalid credentials, duplicate
// account, or a missing session where one is required. The message is passed
// through to the caller verbatim.
type AuthError struct {
	Msg string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Msg, e.Err)
	}
	return "auth: " + e.Msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Auth constructs an AuthError with a plain message.
func Auth(msg string) error { return &AuthError{Msg: msg} }

// ValidationError indicates input rejected before any network call:
// empty required fields, malformed identifiers, weak secrets.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Validation constructs a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StoreError indicates a document store failure: connectivity, permission
// denial, or a missing record where one is required. Never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError for the given operation. Returns nil when
// err is nil so call sites can wrap unconditionally.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStore reports whether err is a StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
