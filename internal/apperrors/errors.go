// Package apperrors defines the error taxonomy shared by the services and the
// HTTP layer.
//
// Services return *Error values; the HTTP layer maps them to status codes with
// StatusOf and never inspects messages.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind groups error codes by how the caller is expected to react.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindNotFound
	KindUnavailable
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation         Code = "validation_failed"
	CodeEmailTaken         Code = "email_taken"
	CodeProviderMismatch   Code = "provider_mismatch"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeInvalidToken       Code = "invalid_token"
	CodeGoogleTokenInvalid Code = "google_token_invalid"
	CodeUserNotFound       Code = "user_not_found"
	CodeTaskNotFound       Code = "task_not_found"
	CodeUpstreamFailed     Code = "upstream_failed"
)

// Error is the domain error type.
type Error struct {
	Kind    Kind
	Code    Code
	Message string // safe to show to the client
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates a domain error that keeps the underlying cause for logs.
func Wrap(kind Kind, code Code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func Conflict(code Code, message string) *Error {
	return New(KindConflict, code, message)
}

func Unauthorized(code Code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func NotFound(code Code, message string) *Error {
	return New(KindNotFound, code, message)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// statusOverrides keeps wire compatibility for codes whose status differs from
// their kind's default.
var statusOverrides = map[Code]int{
	CodeGoogleTokenInvalid: http.StatusBadRequest,
}

// StatusOf maps err to an HTTP status code.
func StatusOf(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, ok := statusOverrides[appErr.Code]; ok {
		return status
	}
	switch appErr.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
