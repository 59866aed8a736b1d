package remote

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a remote tracker failure into the categories the
// sync engine reacts to.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized" // 401/403: token refresh + one retry
	KindNotFound     ErrorKind = "not_found"    // 404
	KindRateLimited  ErrorKind = "rate_limited" // 429
	KindTransient    ErrorKind = "transient"    // 5xx or network failure
	KindMalformed    ErrorKind = "malformed"    // unexpected payload shape
)

// Error represents a classified error from a remote tracker operation
type Error struct {
	Operation  string    // e.g. "ListProjects", "GetIssue"
	Kind       ErrorKind // classification the caller switches on
	StatusCode int       // HTTP status code (0 if not an HTTP error)
	Message    string    // human-readable error message
	Body       string    // optional: response body for debugging
	Err        error     // optional: underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error for error wrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized returns true for 401 Unauthorized or 403 Forbidden
func (e *Error) IsUnauthorized() bool { return e.Kind == KindUnauthorized }

// IsNotFound returns true for 404 Not Found
func (e *Error) IsNotFound() bool { return e.Kind == KindNotFound }

// IsRateLimited returns true for 429 Too Many Requests
func (e *Error) IsRateLimited() bool { return e.Kind == KindRateLimited }

// IsTransient returns true for 5xx responses and network-level failures
func (e *Error) IsTransient() bool { return e.Kind == KindTransient }

// IsMalformed returns true when the tracker returned an unparseable payload
func (e *Error) IsMalformed() bool { return e.Kind == KindMalformed }

// classifyStatus maps an HTTP status code to an ErrorKind
func classifyStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return KindUnauthorized
	case statusCode == 404:
		return KindNotFound
	case statusCode == 429:
		return KindRateLimited
	case statusCode >= 500:
		return KindTransient
	default:
		// Remaining 4xx codes mean we sent something the tracker did not
		// expect, which is a payload/contract problem on either side.
		return KindMalformed
	}
}

// NewStatusError creates an Error classified from an HTTP status code
func NewStatusError(operation string, statusCode int, message string) *Error {
	return &Error{
		Operation:  operation,
		Kind:       classifyStatus(statusCode),
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewTransportError creates a transient Error from a network-level failure
func NewTransportError(operation string, err error) *Error {
	return &Error{
		Operation: operation,
		Kind:      KindTransient,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewMalformedError creates an Error for an undecodable response payload
func NewMalformedError(operation string, err error) *Error {
	return &Error{
		Operation: operation,
		Kind:      KindMalformed,
		Message:   "unexpected response payload: " + err.Error(),
		Err:       err,
	}
}

// WithBody adds the response body to the error for debugging
func (e *Error) WithBody(body string) *Error {
	e.Body = body
	return e
}

// WithError wraps an underlying error
func (e *Error) WithError(err error) *Error {
	e.Err = err
	return e
}

// Package-level predicates so callers can classify without type-asserting.

// IsUnauthorized reports whether err is a remote unauthorized error
func IsUnauthorized(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.IsUnauthorized()
}

// IsNotFound reports whether err is a remote not-found error
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.IsNotFound()
}

// IsTransient reports whether err is a transient remote error
func IsTransient(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.IsTransient()
}
