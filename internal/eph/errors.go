// internal/eph/errors.go
package eph

import (
	"errors"
	"fmt"
)

// Code is the numeric error code reported through the error callback.
type Code int

const (
	CodePayloadTooLong Code = 10001 + iota
	CodeTimeout
	CodeUnexpectedByte
	CodeBadFraming
	CodeChecksumMismatch
	CodeBadSpeed
	CodeOutOfMemory
	CodeInvalidArguments
	CodeExcessiveRetries
	CodeHandshakeFailed
	CodeIO
)

func (c Code) String() string {
	switch c {
	case CodePayloadTooLong:
		return "data too long"
	case CodeTimeout:
		return "timeout"
	case CodeUnexpectedByte:
		return "unexpected control byte"
	case CodeBadFraming:
		return "bad packet header received"
	case CodeChecksumMismatch:
		return "bad checksum on packet"
	case CodeBadSpeed:
		return "bad speed value"
	case CodeOutOfMemory:
		return "no memory"
	case CodeInvalidArguments:
		return "bad arguments"
	case CodeExcessiveRetries:
		return "excessive retries"
	case CodeHandshakeFailed:
		return "handshake failed"
	case CodeIO:
		return "transport i/o error"
	}
	return fmt.Sprintf("error %d", int(c))
}

// Error is the single error type returned by a Connection.
type Error struct {
	Code Code
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := "eph"
	if e.Op != "" {
		s += " " + e.Op
	}
	s += ": " + e.Code.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the retry skeleton may absorb the error.
func (e *Error) Retryable() bool {
	return e.Code == CodeTimeout || e.Code == CodeChecksumMismatch
}

var (
	ErrPayloadTooLong   = &Error{Code: CodePayloadTooLong}
	ErrTimeout          = &Error{Code: CodeTimeout}
	ErrUnexpectedByte   = &Error{Code: CodeUnexpectedByte}
	ErrBadFraming       = &Error{Code: CodeBadFraming}
	ErrChecksumMismatch = &Error{Code: CodeChecksumMismatch}
	ErrBadSpeed         = &Error{Code: CodeBadSpeed}
	ErrOutOfMemory      = &Error{Code: CodeOutOfMemory}
	ErrInvalidArguments = &Error{Code: CodeInvalidArguments}
	ErrExcessiveRetries = &Error{Code: CodeExcessiveRetries}
	ErrHandshakeFailed  = &Error{Code: CodeHandshakeFailed}
	ErrIO               = &Error{Code: CodeIO}
)

// CodeOf extracts the code of an engine error, or zero.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func retryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}
