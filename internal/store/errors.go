package store

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure. Screens branch on the kind to decide
// user-facing behavior; the client only classifies, it never recovers.
type Kind int

const (
	// KindTransport covers network failures, timeouts and 5xx responses.
	// Retryable by the user; the client does not auto-retry.
	KindTransport Kind = iota
	// KindNotFound means the row vanished between navigation and the call.
	KindNotFound
	// KindUnauthenticated means no live session backs the call. Screens
	// must redirect to sign-in, superseding any other state.
	KindUnauthenticated
	// KindConstraint is a store-side foreign-key or uniqueness violation.
	KindConstraint
	// KindValidation is a store-side rejection of the payload itself.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConstraint:
		return "constraint violation"
	case KindValidation:
		return "rejected"
	default:
		return "transport"
	}
}

// Error is the single error type returned by the client. Code carries the
// Postgres or PostgREST error code when the server supplied one.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("store: %s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("store: %s: %v", e.Kind, e.cause)
	}
	return "store: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the classification from err, defaulting to transport for
// anything that is not a *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransport
}

// IsNotFound reports whether err is a not-found classification.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindNotFound
}

// IsUnauthenticated reports whether err means the session is absent or dead.
func IsUnauthenticated(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindUnauthenticated
}

// IsConstraint reports whether err is a store-side constraint violation.
func IsConstraint(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindConstraint
}

// ErrNoSession is returned before any network I/O when a call needs an
// identity and none is signed in.
var ErrNoSession = &Error{Kind: KindUnauthenticated, Message: "no active session"}
