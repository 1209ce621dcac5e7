package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error for the caller-facing surface.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindTimeout
	KindGateway
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindTimeout:
		return "timeout"
	case KindGateway:
		return "gateway"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the single error type crossing package boundaries.
type Error struct {
	Kind       Kind
	Message    string
	Violations []string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Violations) > 0 {
		msg += ": " + strings.Join(e.Violations, ", ")
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation aggregates every violated rule into one error.
func Validation(message string, violations ...string) error {
	return &Error{Kind: KindValidation, Message: message, Violations: violations}
}

func Auth(message string) error {
	return &Error{Kind: KindAuth, Message: message}
}

func Timeout(message string, cause error) error {
	return &Error{Kind: KindTimeout, Message: message, Cause: cause}
}

func Gateway(message string, cause error) error {
	return &Error{Kind: KindGateway, Message: message, Cause: cause}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Internal wraps an unclassified cause. The message is the cause's text unless given.
func Internal(message string, cause error) error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf reports the kind of err; errors outside this package are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code used by the payment endpoints.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
