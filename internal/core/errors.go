package core

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories surfaced by the
// registry and checker. Handlers map kinds to HTTP status codes; the
// hostname router never maps them at all, it degrades to a redirect.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuth          ErrorKind = "auth"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindNotFound      ErrorKind = "not_found"
	KindPrecondition  ErrorKind = "precondition"
	KindRateLimit     ErrorKind = "rate_limit"
	KindTransientDNS  ErrorKind = "transient_dns"
	KindInternal      ErrorKind = "internal"
)

type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// E builds a typed error with an fmt-style message.
func E(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapE attaches a cause to a typed error.
func WrapE(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
