// Package httperr defines the normalized HTTP error taxonomy shared by
// session, codec, and adapter code.
//
// Errors in this package distinguish three situations that must never be
// conflated:
//   - protocol parse errors (malformed ingress, possibly recoverable)
//   - transport errors (EOF, timeout, reset)
//   - internal state errors (illegal ingress/egress state transitions)
//
// Flow-control signals (ingress buffer over limit) are deliberately not
// errors; they are boolean edge signals returned by the session entry points.
package httperr

import (
	"errors"
	"fmt"
)

// Code is the normalized error code attached to every HTTP error.
// Observers receive this code rather than the full error so that error
// accounting stays stable across message rewording.
type Code int

const (
	// CodeNone means no error. The zero value is intentionally CodeNone so
	// an unset code is never mistaken for a real failure class.
	CodeNone Code = iota

	// CodeParseHeader indicates malformed ingress headers.
	CodeParseHeader

	// CodeParseBody indicates malformed ingress body data.
	CodeParseBody

	// CodeMalformedInput indicates ingress that violates the framing layer
	// in a way not attributable to headers or body specifically.
	CodeMalformedInput

	// CodeEOF indicates the peer closed the connection mid-message.
	CodeEOF

	// CodeTimeout indicates an ingress or egress deadline expired.
	CodeTimeout

	// CodeIngressStateTransition indicates a message part arrived in a
	// state that does not admit it (e.g. body before headers).
	CodeIngressStateTransition

	// CodeConnectionReset indicates the transport was reset by the peer.
	CodeConnectionReset

	// CodeUnknown covers errors that carry no more specific class.
	CodeUnknown
)

// String returns the stable identifier used in logs and metric labels.
func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeParseHeader:
		return "parse_header"
	case CodeParseBody:
		return "parse_body"
	case CodeMalformedInput:
		return "malformed_input"
	case CodeEOF:
		return "eof"
	case CodeTimeout:
		return "timeout"
	case CodeIngressStateTransition:
		return "ingress_state_transition"
	case CodeConnectionReset:
		return "connection_reset"
	default:
		return "unknown"
	}
}

// Error is an HTTP-level error with a normalized code and an optional
// HTTP status code suggestion for downstream error responses.
type Error struct {
	// Code is the normalized error class.
	Code Code

	// StatusCode, when non-zero, suggests the HTTP status an error
	// handler should send for this error (e.g. 400 for parse errors).
	StatusCode int

	// Message describes the error for logs. Never shown to peers.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// New creates an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given code wrapping an underlying cause.
func Wrap(code Code, cause error, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// WithStatusCode returns e with the suggested HTTP status code set.
func (e *Error) WithStatusCode(status int) *Error {
	e.StatusCode = status
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the normalized code from any error.
// Non-Error values (including nil) map to CodeUnknown or CodeNone.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	var he *Error
	if errors.As(err, &he) {
		return he.Code
	}
	return CodeUnknown
}
