// Package domainerrors defines the error vocabulary shared between services
// and transport. Services construct these; handlers translate them to HTTP
// status codes and a stable machine-readable reason in the response body.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a coarse error class that maps onto an HTTP status.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal"
)

// Error carries a code for status mapping, a stable reason for clients, and a
// human-readable message. Reason is what clients branch on; Message may change.
type Error struct {
	Code    Code
	Reason  string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error without an underlying cause.
func New(code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// Wrap builds a domain error that preserves the underlying cause for
// errors.Is/errors.As inspection and logging.
func Wrap(err error, code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message, cause: err}
}

// Is reports whether err is a domain error with the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ReasonOf extracts the stable reason from err, or "internal" when err is not
// a domain error.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return string(CodeInternal)
}

// ToHTTPStatus maps an error code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf maps an error to its HTTP status, defaulting to 500 for non-domain
// errors.
func StatusOf(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return ToHTTPStatus(de.Code)
	}
	return http.StatusInternalServerError
}
