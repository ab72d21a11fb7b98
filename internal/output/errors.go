package output

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusException mirrors the sentinel status the dispatcher uses for
// failures that never produced an HTTP reply.
const StatusException = http.StatusTeapot

// StatusNotSent mirrors the status of calls rejected before sending.
const StatusNotSent = 0

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:       CodeAuth,
		Message:    msg,
		Hint:       "Run: cencli auth import (paste tokens from Central) or check client_id/client_secret",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func ErrForbidden(msg string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

func ErrRateLimit(msg string) *Error {
	return &Error{
		Code:       CodeRateLimit,
		Message:    msg,
		Hint:       "Central allows 7 calls per second and a daily quota per customer",
		HTTPStatus: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

func ErrNetwork(msg string) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   msg,
		Hint:      "Check connectivity to the account base_url",
		Retryable: true,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

func ErrConfig(msg string, cause error) *Error {
	return &Error{
		Code:    CodeConfig,
		Message: msg,
		Hint:    "See config.yaml in the cencli config directory (cencli config show)",
		Cause:   cause,
	}
}

func ErrCanceled() *Error {
	return &Error{Code: CodeCanceled, Message: "Aborted"}
}

// ErrFromStatus maps a failed call's status and message to a typed error.
func ErrFromStatus(status int, msg string) *Error {
	switch {
	case msg != "":
	case status == StatusNotSent:
		msg = "Request not sent"
	default:
		msg = fmt.Sprintf("Request failed (HTTP %d)", status)
	}
	switch status {
	case StatusNotSent:
		return ErrUsage(msg)
	case StatusException:
		return ErrNetwork(msg)
	case http.StatusUnauthorized:
		return ErrAuth(msg)
	case http.StatusForbidden:
		return ErrForbidden(msg)
	case http.StatusNotFound:
		return &Error{Code: CodeNotFound, Message: msg, HTTPStatus: status}
	case http.StatusTooManyRequests:
		return ErrRateLimit(msg)
	default:
		e := ErrAPI(status, msg)
		e.Retryable = status >= 500
		return e
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}
