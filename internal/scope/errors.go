package scope

import (
	"errors"
	"fmt"
)

var (
	// ErrSentinelVersion indicates a class whose code version equals
	// SavingSentinel.
	ErrSentinelVersion = errors.New("scope: code version equals the saving sentinel")

	// ErrNotLoadable indicates a loading archive the scope cannot rewind
	// and decode.
	ErrNotLoadable = errors.New("scope: archive cannot be decoded")

	// ErrMissingVersionField indicates the class has no uint64 field with
	// the configured version field name.
	ErrMissingVersionField = errors.New("scope: version field not found")
)

// ScopeError is returned by Begin and End with enough context to locate
// the record and class involved.
type ScopeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Class is the class name of the scoped object.
	Class string

	// Archive names the stream being loaded or saved.
	Archive string

	// Field is the version field name in effect.
	Field string

	Err error
}

// ErrorCode categorizes scope errors.
type ErrorCode string

const (
	// CodeSentinelVersion indicates the class code version is the reserved sentinel.
	CodeSentinelVersion ErrorCode = "SENTINEL_VERSION"

	// CodeNotLoadable indicates the archive does not support generic decoding.
	CodeNotLoadable ErrorCode = "NOT_LOADABLE"

	// CodeHandlerFailed indicates the migration handler returned an error.
	CodeHandlerFailed ErrorCode = "HANDLER_FAILED"

	// CodeCursor indicates the cursor could not be rewound or restored.
	CodeCursor ErrorCode = "CURSOR"

	// CodeVersionWrite indicates the version field could not be updated.
	CodeVersionWrite ErrorCode = "VERSION_WRITE"
)

// Error implements the error interface.
func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s: %v (class=%s, field=%s, archive=%s)", e.Code, e.Err, e.Class, e.Field, e.Archive)
}

func (e *ScopeError) Unwrap() error { return e.Err }

// IsConfigError returns true if err comes from a misconfigured class or
// scope rather than from the record or the handler.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var se *ScopeError
	if errors.As(err, &se) {
		return se.Code == CodeSentinelVersion || se.Code == CodeNotLoadable
	}
	return false
}

// IsHandlerError returns true if err was returned by a migration handler.
func IsHandlerError(err error) bool {
	var se *ScopeError
	if errors.As(err, &se) {
		return se.Code == CodeHandlerFailed
	}
	return false
}
