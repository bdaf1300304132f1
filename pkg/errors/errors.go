package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can report a precise cause
type Kind string

const (
	KindRemoteAuth     Kind = "remote_auth"
	KindRemoteNotFound Kind = "remote_not_found"
	KindRemoteProtocol Kind = "remote_protocol"
	KindRemoteService  Kind = "remote_service"
	KindLocalWrite     Kind = "local_write"
	KindUnknown        Kind = "unknown"
)

// Error carries a Kind plus whatever the note service told us about the failure
type Error struct {
	Kind    Kind
	Message string
	// Code is the HTTP status, 0 for transport and local failures
	Code int
	// ErrorCode and Parameter mirror the service error body, e.g. INVALID_AUTH / password
	ErrorCode string
	Parameter string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Parameter != "" {
		msg = fmt.Sprintf("%s (parameter: %s)", msg, e.Parameter)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind
func New(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an Error of the given kind around a cause
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf("%s: %v", message, err), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable checks if an error kind should be retried.
// Only transient service faults are; auth and not-found never change on retry.
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindRemoteService:
		return true
	default:
		return false
	}
}

// KindForStatus maps an HTTP status code to a Kind
func KindForStatus(statusCode int) Kind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return KindRemoteAuth
	case statusCode == 404:
		return KindRemoteNotFound
	case statusCode == 429 || statusCode >= 500:
		return KindRemoteService
	default:
		return KindRemoteProtocol
	}
}
