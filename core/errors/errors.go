// Package errors defines the error taxonomy shared across the DrMem core
// runtime. Every kind is carried by the single Error type, tagged with a
// Kind: callers that need to branch on a kind use Kind() or errors.Is, not
// string matching.
package errors

import "fmt"

// Kind identifies which of the taxonomy's error categories an Error belongs
// to. It is a plain string so it can be logged directly without a String()
// method.
type Kind string

// The DrMem error taxonomy, per the core runtime specification.
const (
	KindNotFound             Kind = "not_found"
	KindInUse                Kind = "in_use"
	KindDeviceDefined        Kind = "device_defined"
	KindMissingPeer          Kind = "missing_peer"
	KindTypeError            Kind = "type_error"
	KindInvArgument          Kind = "invalid_argument"
	KindDbCommunicationError Kind = "db_communication_error"
	KindAuthenticationError  Kind = "authentication_error"
	KindOperationError       Kind = "operation_error"
	KindBadConfig            Kind = "bad_config"
	KindConfigError          Kind = "config_error"
	KindParseError           Kind = "parse_error"
	KindUnknownError         Kind = "unknown_error"
)

// Error is the concrete error type used throughout the core runtime. It
// carries a Kind plus a human-readable message and, optionally, the name of
// the device or resource the error concerns.
type Error struct {
	kind    Kind
	msg     string
	device  string
	wrapped error
}

// New creates a new Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error of the given kind that wraps an underlying error,
// e.g. one surfaced from a store client library.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), wrapped: err}
}

// WithDevice annotates the error with the name of the device it concerns and
// returns the same Error for chaining.
func (e *Error) WithDevice(name string) *Error {
	e.device = name
	return e
}

// Kind returns the error's taxonomy kind.
func (e *Error) Kind() Kind {
	if e == nil {
		return ""
	}
	return e.kind
}

// Error fulfils the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.msg
	if e.device != "" {
		msg = fmt.Sprintf("%s (device: %s)", msg, e.device)
	}
	if e.wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.kind, msg)
}

// Unwrap allows errors.Is/errors.As to reach the wrapped error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.wrapped
}

// Is reports whether target is an *Error with the same kind. This lets
// callers write errors.Is(err, errors.NotFound(...)) style checks, matching
// how the rest of the core compares error kinds.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

// Convenience constructors for the most commonly raised kinds. These mirror
// the per-kind constructor style of the teacher SDK's errors package
// (NewPolicyViolationError, etc.) while keeping a single underlying type.

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// InUse builds a KindInUse error.
func InUse(format string, args ...interface{}) *Error {
	return New(KindInUse, format, args...)
}

// DeviceDefined builds a KindDeviceDefined error for a duplicate device
// registration.
func DeviceDefined(name string) *Error {
	return New(KindDeviceDefined, "device already defined: %s", name).WithDevice(name)
}

// MissingPeer builds a KindMissingPeer error describing which peer (e.g.
// "driver", "client") is gone.
func MissingPeer(ctx string) *Error {
	return New(KindMissingPeer, "missing peer: %s", ctx)
}

// TypeError builds a KindTypeError error.
func TypeError(format string, args ...interface{}) *Error {
	return New(KindTypeError, format, args...)
}

// InvArgument builds a KindInvArgument error.
func InvArgument(format string, args ...interface{}) *Error {
	return New(KindInvArgument, format, args...)
}

// DbCommunicationError builds a KindDbCommunicationError error wrapping the
// underlying client error.
func DbCommunicationError(err error, format string, args ...interface{}) *Error {
	return Wrap(KindDbCommunicationError, err, format, args...)
}

// AuthenticationError builds a KindAuthenticationError error.
func AuthenticationError(err error, format string, args ...interface{}) *Error {
	return Wrap(KindAuthenticationError, err, format, args...)
}

// OperationError builds a KindOperationError error (transient/retryable).
func OperationError(format string, args ...interface{}) *Error {
	return New(KindOperationError, format, args...)
}

// BadConfig builds a KindBadConfig error.
func BadConfig(format string, args ...interface{}) *Error {
	return New(KindBadConfig, format, args...)
}

// ConfigError builds a KindConfigError error.
func ConfigError(format string, args ...interface{}) *Error {
	return New(KindConfigError, format, args...)
}

// ParseError builds a KindParseError error.
func ParseError(format string, args ...interface{}) *Error {
	return New(KindParseError, format, args...)
}

// UnknownError builds a KindUnknownError error wrapping the underlying
// error.
func UnknownError(err error, format string, args ...interface{}) *Error {
	return Wrap(KindUnknownError, err, format, args...)
}
