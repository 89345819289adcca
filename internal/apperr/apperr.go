// Package apperr defines the error kinds surfaced by command handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindParam           Kind = "param"
	KindNotFound        Kind = "not_found"
	KindLockTimeout     Kind = "lock_timeout"
	KindToolUnavailable Kind = "tool_unavailable"
	KindIO              Kind = "io"
	KindFormat          Kind = "format"
	KindUnsupported     Kind = "unsupported"
)

// CodedError exposes a stable error code for callers that need one.
type CodedError interface {
	error
	ErrorCode() string
}

// Error is a tagged failure. Msg is what the UI sees.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorCode implements CodedError.
func (e *Error) ErrorCode() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Param(format string, args ...any) error       { return newf(KindParam, format, args...) }
func NotFound(format string, args ...any) error    { return newf(KindNotFound, format, args...) }
func Unsupported(format string, args ...any) error { return newf(KindUnsupported, format, args...) }
func Format(format string, args ...any) error      { return newf(KindFormat, format, args...) }
func LockTimeout(format string, args ...any) error { return newf(KindLockTimeout, format, args...) }

func ToolUnavailable(format string, args ...any) error {
	return newf(KindToolUnavailable, format, args...)
}

// Wrap tags err with kind, keeping the original for errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		msg = err.Error()
	} else {
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IO wraps a filesystem, network or process failure.
func IO(err error, format string, args ...any) error {
	return Wrap(KindIO, err, format, args...)
}

// Tag returns err unchanged when it already carries a kind, otherwise it
// wraps err with kind.
func Tag(kind Kind, err error) error {
	var e *Error
	if err == nil || errors.As(err, &e) {
		return err
	}
	return Wrap(kind, err, "")
}

// KindOf reports the kind of err, defaulting to KindIO for untagged errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
