// Package apperr defines the typed error taxonomy shared across services and
// translated once, at the HTTP adapter boundary, into a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the taxonomy of application-level failures.
type Kind string

const (
	KindBadRequest             Kind = "bad_request"
	KindBadCredentials         Kind = "bad_credentials"
	KindTokenMalformed         Kind = "token_malformed"
	KindTokenExpired           Kind = "token_expired"
	KindTokenSignatureInvalid  Kind = "token_signature_invalid"
	KindTokenAlgorithmMismatch Kind = "token_algorithm_mismatch"
	KindForbidden              Kind = "forbidden"
	KindNotFound               Kind = "not_found"
	KindConflict               Kind = "conflict"
	KindRateLimited            Kind = "rate_limited"
	KindEvaluationError        Kind = "evaluation_error"
	KindUnavailable            Kind = "unavailable"
)

// Error is a typed application error carrying a Kind for boundary translation
// and an optional wrapped cause for logging/unwrapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target shares this error's Kind, so callers can write
// errors.Is(err, apperr.New(apperr.KindNotFound, "")) against a sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the Kind from err, if err (or one it wraps) is an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// StatusFor maps err to an HTTP status code: leaf components fail with typed
// kinds, and this is the single place that turns a Kind into a wire status. Errors that are not *Error map to 500, since an
// untyped error reaching the boundary is itself a bug.
func StatusFor(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindBadCredentials, KindTokenMalformed, KindTokenExpired,
		KindTokenSignatureInvalid, KindTokenAlgorithmMismatch:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindEvaluationError:
		return http.StatusInternalServerError
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
