package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents the local part of a query error code.
// Codes live in the "err" namespace unless raised with an explicit QName.
type ErrorCode string

// Error codes raised by the compiler and the evaluator.
const (
	// XPST: static errors
	ErrUndefinedFunction ErrorCode = "XPST0017"
	ErrUndefinedVariable ErrorCode = "XPST0008"

	// XPTY / XPDY: type and dynamic errors
	ErrNoContext      ErrorCode = "XPDY0002"
	ErrTypeMismatch   ErrorCode = "XPTY0004"
	ErrPathNotNode    ErrorCode = "XPTY0019"
	ErrContextNotNode ErrorCode = "XPTY0020"

	// FO: function and operator errors
	ErrDivByZero       ErrorCode = "FOAR0001"
	ErrNumericOverflow ErrorCode = "FOAR0002"
	ErrInvalidCast     ErrorCode = "FORG0001"
	ErrEBV             ErrorCode = "FORG0006"
	ErrUserError       ErrorCode = "FOER0000"

	// XU: update errors
	ErrMixedUpdates ErrorCode = "XUST0001"
)

// ErrPrefix is the namespace prefix of built-in error codes.
const ErrPrefix = "err"

// QName is a prefixed name. It identifies error codes and node names.
type QName struct {
	Prefix string
	Local  string
}

// Code returns the QName of a built-in error code.
func (c ErrorCode) Code() QName {
	return QName{Prefix: ErrPrefix, Local: string(c)}
}

// ParseQName parses "prefix:local" or "local". An unprefixed name keeps an
// empty prefix, so it only matches unprefixed name tests.
func ParseQName(s string) QName {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return QName{Prefix: s[:i], Local: s[i+1:]}
	}
	return QName{Local: s}
}

// String returns the prefixed form of the name.
func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// Error represents a catchable query error.
type Error struct {
	Code     QName
	Message  string
	Position int
	// Value holds the items passed to fn:error, if any.
	Value Value
	Err   error
}

// NewError creates a new query error with a built-in code.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code.Code(),
		Message:  message,
		Position: position,
	}
}

// Errorf creates a new query error with a formatted message.
func Errorf(code ErrorCode, position int, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...), position)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithPosition sets the position if none is known yet.
func (e *Error) WithPosition(pos int) *Error {
	if e.Position < 0 {
		e.Position = pos
	}
	return e
}

// InternalError signals a violated invariant of the compiler or evaluator.
// It is never caught by try/catch.
type InternalError struct {
	Message string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

// NotExpected returns an internal error for unreachable code paths.
func NotExpected(format string, args ...any) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// AsError returns the catchable query error wrapped by err, if any.
func AsError(err error) (*Error, bool) {
	var ie *InternalError
	if errors.As(err, &ie) {
		return nil, false
	}
	var qe *Error
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// IsCatchable reports whether err may be handled by a try/catch expression.
// Internal errors and context cancellation are fatal.
func IsCatchable(err error) bool {
	_, ok := AsError(err)
	return ok
}
