package interpret

import (
	"errors"
	"fmt"
)

// Kind classifies an interpretation failure.
type Kind int

const (
	// KindUnknown is any failure not covered by a more specific kind,
	// including transport errors.
	KindUnknown Kind = iota

	// KindEmptyInput means the dream text was empty after trimming.
	KindEmptyInput

	// KindInputTooLong means the dream text exceeded the configured maximum.
	KindInputTooLong

	// KindAccessBlocked means an access gateway intercepted the request.
	KindAccessBlocked

	// KindUpstreamHTTPError means the upstream answered with a non-2xx status.
	KindUpstreamHTTPError

	// KindStreamUnavailable means the response had no readable body.
	KindStreamUnavailable

	// KindCancelled means the caller cancelled the request.
	KindCancelled

	// KindTimeout means the per-call deadline expired.
	KindTimeout
)

// String returns the stable code for the kind.
func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "EMPTY_INPUT"
	case KindInputTooLong:
		return "INPUT_TOO_LONG"
	case KindAccessBlocked:
		return "ACCESS_BLOCKED"
	case KindUpstreamHTTPError:
		return "HTTP_ERROR"
	case KindStreamUnavailable:
		return "STREAM_ERROR"
	case KindCancelled:
		return "CANCELLED"
	case KindTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is returned by every Client operation that fails.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Status is the upstream HTTP status for KindUpstreamHTTPError, else 0.
	Status int

	// Err is the underlying cause (if any).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "interpret: " + e.Code()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind. A target with a zero Status
// matches any status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Status == 0 || t.Status == e.Status)
}

// Code returns the machine readable code, e.g. "HTTP_ERROR_503".
func (e *Error) Code() string {
	if e.Kind == KindUpstreamHTTPError && e.Status > 0 {
		return fmt.Sprintf("%s_%d", e.Kind, e.Status)
	}
	return e.Kind.String()
}

// Sentinels for errors.Is.
var (
	ErrEmptyInput        = &Error{Kind: KindEmptyInput}
	ErrInputTooLong      = &Error{Kind: KindInputTooLong}
	ErrAccessBlocked     = &Error{Kind: KindAccessBlocked}
	ErrUpstreamHTTP      = &Error{Kind: KindUpstreamHTTPError}
	ErrStreamUnavailable = &Error{Kind: KindStreamUnavailable}
	ErrCancelled         = &Error{Kind: KindCancelled}
	ErrTimeout           = &Error{Kind: KindTimeout}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsUserCancel reports whether err is a caller cancellation, which should
// not be shown to the user as a failure.
func IsUserCancel(err error) bool {
	return err != nil && KindOf(err) == KindCancelled
}
