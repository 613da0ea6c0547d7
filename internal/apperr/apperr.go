// Package apperr defines the error taxonomy shared by the chat, recommendation
// and search services.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go/v3"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
)

// Kind classifies an error for retry and transport decisions.
type Kind string

const (
	KindValidation Kind = "validation"
	KindRateLimit  Kind = "rate_limit"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindUnknown    Kind = "unknown"
)

// Error carries the kind, a user-safe message, the retry hint and optional
// metadata. The wrapped cause is never rendered to clients.
type Error struct {
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// With returns a copy of e with key=value merged into its metadata.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Metadata = make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	cp.Metadata[key] = value
	return &cp
}

func newError(kind Kind, retryable bool, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable,
		cause:     cause,
	}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, false, nil, format, args...)
}

func RateLimit(format string, args ...any) *Error {
	return newError(KindRateLimit, true, nil, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, false, nil, format, args...)
}

func Network(cause error, format string, args ...any) *Error {
	return newError(KindNetwork, true, cause, format, args...)
}

func Auth(cause error, format string, args ...any) *Error {
	return newError(KindAuth, false, cause, format, args...)
}

func Unknown(cause error, format string, args ...any) *Error {
	return newError(KindUnknown, false, cause, format, args...)
}

// KindOf reports the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err was classified as retryable.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// Classify maps arbitrary provider errors onto the taxonomy. Errors that are
// already classified pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Network(err, "upstream request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return Unknown(err, "request canceled")
	}

	if code, ok := upstreamStatus(err); ok {
		return fromStatus(code, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Network(err, "upstream unreachable")
	}

	return Unknown(err, "unexpected failure")
}

// upstreamStatus extracts the HTTP status carried by provider SDK errors.
func upstreamStatus(err error) (int, bool) {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}
	var arkErr *arkmodel.APIError
	if errors.As(err, &arkErr) && arkErr.HTTPStatusCode > 0 {
		return arkErr.HTTPStatusCode, true
	}
	var reqErr *arkmodel.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func fromStatus(code int, err error) *Error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Auth(err, "upstream credentials rejected")
	case code == http.StatusTooManyRequests:
		return RateLimit("upstream rate limit reached").withCause(err)
	case code >= http.StatusInternalServerError:
		return Network(err, "upstream unavailable")
	default:
		return Unknown(err, "upstream request rejected")
	}
}

func (e *Error) withCause(cause error) *Error {
	e.cause = cause
	return e
}

// HTTPStatus maps an error kind to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindNetwork, KindAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns text that is safe to show to end users.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindNetwork, KindAuth:
			return "an upstream service is temporarily unavailable"
		case KindUnknown:
			return "internal error"
		}
		return appErr.Message
	}
	return "internal error"
}
