package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies service errors so handlers and workers can pick a policy.
type Kind int

const (
	KindInternal Kind = iota
	// KindValidation: bad or missing input.
	KindValidation
	// KindAttribution: merchant not found where one is required.
	KindAttribution
	// KindProvider: payment or receipt gateway unreachable or rejected the call.
	KindProvider
	// KindConsistency: stored data contradicts an invariant; needs manual reconciliation.
	KindConsistency
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAttribution:
		return "attribution"
	case KindProvider:
		return "provider"
	case KindConsistency:
		return "consistency"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a service error of a given Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) error {
	return newf(KindValidation, nil, format, args...)
}

func Attribution(format string, args ...any) error {
	return newf(KindAttribution, nil, format, args...)
}

// Provider wraps a gateway failure.
func Provider(err error, format string, args ...any) error {
	return newf(KindProvider, err, format, args...)
}

func Consistency(format string, args ...any) error {
	return newf(KindConsistency, nil, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(KindNotFound, nil, format, args...)
}

func Conflict(format string, args ...any) error {
	return newf(KindConflict, nil, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
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

// HTTPStatus maps an error to the response code handlers should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindAttribution:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns a client-safe message: the service message for known kinds,
// a generic one for internal and consistency faults.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Kind != KindConsistency {
		return e.Msg
	}
	return "internal server error"
}
