// Package errors provides custom error types for the chat backend client.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	ErrNetwork         = errors.New("network error")
	ErrBackend         = errors.New("backend error")
	ErrPrecondition    = errors.New("precondition failed")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoConversation  = errors.New("no active conversation")
)

// GenericFailureMessage is used when the backend rejects a request without
// saying why.
const GenericFailureMessage = "request failed"

// NetworkError represents a request that never produced a response
type NetworkError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request to %s timed out", e.Endpoint)
	}
	if e.Err == nil {
		return fmt.Sprintf("network error at %s", e.Endpoint)
	}
	return fmt.Sprintf("network error at %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *NetworkError) Is(target error) bool {
	if target == ErrNetwork {
		return true
	}
	_, ok := target.(*NetworkError)
	return ok
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(endpoint string, err error) *NetworkError {
	return &NetworkError{Endpoint: endpoint, Err: err}
}

// NewTimeoutError creates a NetworkError for a request that exceeded its deadline
func NewTimeoutError(endpoint string, err error) *NetworkError {
	return &NetworkError{Endpoint: endpoint, Timeout: true, Err: err}
}

// BackendError represents a response the backend marked as failed, either
// through a non-2xx status or a status field other than "success"
type BackendError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("backend error at %s: %s", e.Endpoint, e.Message)
}

// Is allows comparison with sentinel errors
func (e *BackendError) Is(target error) bool {
	if target == ErrBackend {
		return true
	}
	_, ok := target.(*BackendError)
	return ok
}

// NewBackendError creates a new BackendError. An empty message is replaced
// with GenericFailureMessage.
func NewBackendError(statusCode int, endpoint, message string) *BackendError {
	if strings.TrimSpace(message) == "" {
		message = GenericFailureMessage
	}
	return &BackendError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// PreconditionError is returned when an operation is refused locally,
// before any request is made
type PreconditionError struct {
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	return e.Message
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *PreconditionError) Is(target error) bool {
	if target == ErrPrecondition {
		return true
	}
	_, ok := target.(*PreconditionError)
	return ok
}

// NewPreconditionError creates a new PreconditionError
func NewPreconditionError(message string) *PreconditionError {
	return &PreconditionError{Message: message}
}

// WrapPrecondition turns a sentinel into a PreconditionError that still
// matches the sentinel with errors.Is
func WrapPrecondition(sentinel error) *PreconditionError {
	return &PreconditionError{Message: sentinel.Error(), Err: sentinel}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// IsNetworkError reports whether err is, or wraps, a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsTimeoutError reports whether err is a NetworkError caused by a deadline
func IsTimeoutError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Timeout
}

// IsBackendError reports whether err is, or wraps, a BackendError
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsPreconditionError reports whether err is, or wraps, a PreconditionError
func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsParseError reports whether err is, or wraps, a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var be *BackendError
	if errors.As(err, &be) {
		return be.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint carried by err, or ""
func GetEndpoint(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Endpoint
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Endpoint
	}
	return ""
}

// Message returns the human-readable string shown to the user for err.
// Backend rejections surface the backend's own message; other errors use
// their Error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		if ne.Timeout {
			return "the backend did not respond in time"
		}
		return "could not reach the backend"
	}
	return err.Error()
}
