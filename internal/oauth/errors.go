package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind categorizes failures so callers can react without string matching.
type ErrorKind int

const (
	// KindConfiguration covers bad inputs and missing client registrations.
	KindConfiguration ErrorKind = iota + 1
	// KindProtocol covers malformed or error responses from the authorization server.
	KindProtocol
	// KindValidation covers state, nonce, signature and at_hash failures.
	KindValidation
	// KindResource covers local resources such as ports, files and the browser.
	KindResource
	// KindTimeout is returned when a deadline elapses before completion.
	KindTimeout
	// KindNetwork covers transport failures talking to the authorization server.
	KindNetwork
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindProtocol:
		return "protocol error"
	case KindValidation:
		return "validation error"
	case KindResource:
		return "resource error"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network error"
	default:
		return "error"
	}
}

// Error is the error type returned by every operation in this package.
type Error struct {
	Kind ErrorKind
	// Op names the operation that failed, e.g. "get tokens".
	Op string
	// Code is the OAuth error code reported by the authorization server, if any.
	Code        string
	Description string
	Err         error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrProtocol      = &Error{Kind: KindProtocol}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrResource      = &Error{Kind: KindResource}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrNetwork       = &Error{Kind: KindNetwork}
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Code != "" || t.Description != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return 0
}

// CodeOf returns the OAuth error code carried by err, or "".
func CodeOf(err error) string {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

func configError(op string, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Description: fmt.Sprintf(format, args...)}
}

func validationError(op string, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Description: fmt.Sprintf(format, args...)}
}

func protocolError(op, code, description string) *Error {
	return &Error{Kind: KindProtocol, Op: op, Code: code, Description: description}
}

func wrapError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// transportError classifies a failed HTTP round trip.
func transportError(op string, err error) *Error {
	switch {
	case errors.Is(err, errCrossOriginRedirect):
		return &Error{Kind: KindProtocol, Op: op, Description: "refused cross-origin redirect", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return wrapError(KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrapError(KindTimeout, op, err)
	}
	return wrapError(KindNetwork, op, err)
}
