// Package apperr defines the typed failure kinds shared by all karibu
// operations. Callers branch on Kind (and conflict Reason) rather than on
// error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure category.
type Kind string

const (
	// KindValidation indicates malformed or missing input.
	KindValidation Kind = "validation"
	// KindNotFound indicates no matching invite, visit, or visitor.
	KindNotFound Kind = "not_found"
	// KindConflict indicates the operation clashes with current state;
	// the Reason narrows it down.
	KindConflict Kind = "conflict"
	// KindQuotaExceeded indicates a per-host daily invite limit was hit.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindKeyspaceExhausted indicates code generation ran out of attempts.
	KindKeyspaceExhausted Kind = "keyspace_exhausted"
	// KindPersistence indicates a storage I/O failure. It is the only kind
	// a caller may retry, and only outside the failing transaction.
	KindPersistence Kind = "persistence"
)

// Reason narrows a conflict to its cause.
type Reason string

const (
	ReasonDuplicatePending        Reason = "duplicate_pending"
	ReasonDuplicateActiveIdentity Reason = "duplicate_active_identity"
	ReasonAlreadyCheckedIn        Reason = "already_checked_in"
	ReasonAlreadyCancelled        Reason = "already_cancelled"
	ReasonAlreadyRequested        Reason = "already_requested"
	ReasonWrongDay                Reason = "wrong_day"
	ReasonInvalidState            Reason = "invalid_state"
)

// Error is a typed karibu failure.
type Error struct {
	Kind    Kind
	Reason  Reason // set only when Kind is KindConflict
	Message string
	Err     error // wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, and by Reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Validation builds a validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a conflict error with the given reason.
func Conflict(reason Reason, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// QuotaExceeded builds a quota error.
func QuotaExceeded(format string, args ...any) *Error {
	return &Error{Kind: KindQuotaExceeded, Message: fmt.Sprintf(format, args...)}
}

// KeyspaceExhausted builds a keyspace-exhausted error.
func KeyspaceExhausted(format string, args ...any) *Error {
	return &Error{Kind: KindKeyspaceExhausted, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage failure for the named operation.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ConflictReason extracts the conflict reason from err, if it is a conflict.
func ConflictReason(err error) (Reason, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindConflict {
		return e.Reason, true
	}
	return "", false
}

// HTTPStatus maps err to an HTTP status code for the web layer.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
