// Package apperr defines the error taxonomy used across the service.  Every
// error that crosses the repository or notification boundary is translated
// into one of these kinds before reaching a handler, so callers always see a
// classification plus a human-readable reason and never a raw driver error.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind int

const (
	// KindValidation means the request itself is malformed; the caller must
	// fix it, retrying is pointless.
	KindValidation Kind = iota
	// KindNotFound means a referenced event, ticket or user does not exist.
	KindNotFound
	// KindAuthorization means the actor lacks the role or ownership required.
	KindAuthorization
	// KindBusinessRule means a domain rule blocks the operation (capacity
	// exceeded, duplicate registration, invalid state transition, frozen
	// field edit).  The caller must change intent, not retry blindly.
	KindBusinessRule
	// KindConflict marks race-condition artifacts such as unique-constraint
	// violations hit at commit time.  The whole operation is safe to retry
	// once.
	KindConflict
	// KindTransient covers infrastructure failures (storage or broker
	// connectivity).  Safe to retry; swallowed when it originates from the
	// notification path.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindBusinessRule:
		return "business_rule"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	}
	return "unknown"
}

// Error is the single error type surfaced above the storage/notification
// boundary.  Message is safe to show to API clients; Err, when set, keeps
// the lower-level cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func BusinessRulef(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Transient wraps an infrastructure failure.
func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

// KindOf extracts the taxonomy kind from any error.  Errors that never got
// classified are treated as transient infrastructure failures, which keeps
// raw driver errors out of API responses.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// MessageOf returns the client-safe reason for an error.  Unclassified
// errors yield a generic message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
