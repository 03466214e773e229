// Package serviceerr defines the error taxonomy shared by the login and
// launch flows. Every error that reaches the HTTP boundary is mapped onto
// one of the codes below.
package serviceerr

import (
	"errors"
	"net/http"
)

type Code string

const (
	// OIDC / RFC6749 codes
	CodeInvalidRequest Code = "invalid_request"
	CodeServerError    Code = "server_error"

	// Custom codes
	CodeUnknown           Code = "unknown"
	CodeNotFound          Code = "not_found"
	CodeInvalidIDToken    Code = "invalid_id_token"
	CodeMessageValidation Code = "message_validation"
	CodeStoreUnavailable  Code = "store_unavailable"
	CodeInvalidConfig     Code = "invalid_config"
	CodeNoKeyAvailable    Code = "no_key_available"
)

// Error is a classified error. Err carries the classification, Description a
// human readable message that is safe to return to the caller.
type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// Is reports whether target carries the same code, so that errors.Is works
// for both the predefined values and errors created with New.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Err == e.Err
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeInvalidIDToken:
		return http.StatusUnauthorized
	case CodeMessageValidation:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error with the given code and description.
func New(code Code, description string) *Error {
	return &Error{Err: code, Description: description}
}

// CodeOf returns the classification of err, or CodeUnknown if err does not
// wrap an *Error.
func CodeOf(err error) Code {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Err
	}

	return CodeUnknown
}

var (
	ErrUnknown           = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrNotFound          = &Error{Err: CodeNotFound, Description: "not found"}
	ErrBadRequest        = &Error{Err: CodeInvalidRequest, Description: "bad request"}
	ErrInvalidIDToken    = &Error{Err: CodeInvalidIDToken, Description: "invalid id token"}
	ErrMessageValidation = &Error{Err: CodeMessageValidation, Description: "launch message does not match the session"}
	ErrStoreUnavailable  = &Error{Err: CodeStoreUnavailable, Description: "session store unavailable"}
	ErrInvalidConfig     = &Error{Err: CodeInvalidConfig, Description: "invalid configuration"}
	ErrNoKeyAvailable    = &Error{Err: CodeNoKeyAvailable, Description: "no signing key available"}
)
