package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorType string

const (
	ErrConfiguration     ErrorType = "CONFIGURATION_ERROR"
	ErrGateRejected      ErrorType = "DERIVE_GATE_REJECTED"
	ErrPermanentRefusal  ErrorType = "DERIVE_REFUSED"
	ErrMalformedUpstream ErrorType = "MALFORMED_UPSTREAM_RESPONSE"
	ErrUnauthorized      ErrorType = "CREDENTIAL_UNAUTHORIZED"
	ErrAuthFailed        ErrorType = "AUTH_FAILED"
	ErrInvalidRequest    ErrorType = "INVALID_REQUEST"
	ErrInternal          ErrorType = "INTERNAL_ERROR"
	ErrNotFound          ErrorType = "NOT_FOUND"
	ErrUpstream          ErrorType = "UPSTREAM_ERROR"
	ErrReadOnly          ErrorType = "READ_ONLY"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Reason     string    `json:"reason,omitempty"`
	RetryAfter int       `json:"retry_after_seconds,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewConfiguration(msg string, cause error) *AppError {
	return New(ErrConfiguration, msg, cause)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

// NewGateRejected carries the gate state that refused the attempt and the wait left.
func NewGateRejected(reason, msg string, retryAfter time.Duration) *AppError {
	e := New(ErrGateRejected, msg, nil)
	e.Reason = reason
	e.RetryAfter = CeilSeconds(retryAfter)
	return e
}

// WithSuggestion replaces the default suggestion for the error type.
func (e *AppError) WithSuggestion(s string) *AppError {
	e.Suggestion = s
	return e
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err is an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// CeilSeconds rounds a positive duration up to whole seconds.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed, ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrPermanentRefusal, ErrReadOnly:
		return http.StatusForbidden
	case ErrGateRejected:
		return http.StatusTooManyRequests
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream, ErrMalformedUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrConfiguration:
		return "Fix the private key / API secret configuration and restart."
	case ErrGateRejected:
		return "Wait for the reported time before retrying credential derivation."
	case ErrPermanentRefusal:
		return "Create API keys manually for this wallet, configure them, and restart."
	case ErrMalformedUpstream:
		return "Retry later; the exchange returned an incomplete credential."
	case ErrUnauthorized, ErrAuthFailed:
		return "Check API keys and signatures."
	case ErrReadOnly:
		return "Disable server.read_only to allow derivation and identity changes."
	default:
		return ""
	}
}
