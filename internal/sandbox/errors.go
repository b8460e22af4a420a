package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a rejected or failed operation.
type Kind string

const (
	KindOutsideSandbox  Kind = "OutsideSandbox"
	KindExcludedPath    Kind = "ExcludedPath"
	KindUnsupportedType Kind = "UnsupportedType"
	KindNotFound        Kind = "NotFound"
	KindNotADirectory   Kind = "NotADirectory"
	KindNotAFile        Kind = "NotAFile"
	KindFileTooLarge    Kind = "FileTooLarge"
	KindDecodeError     Kind = "DecodeError"
	KindInvalidArgument Kind = "InvalidArgument"
	KindInternal        Kind = "Internal"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrOutsideSandbox  = &Error{Kind: KindOutsideSandbox}
	ErrExcludedPath    = &Error{Kind: KindExcludedPath}
	ErrUnsupportedType = &Error{Kind: KindUnsupportedType}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrNotADirectory   = &Error{Kind: KindNotADirectory}
	ErrNotAFile        = &Error{Kind: KindNotAFile}
	ErrFileTooLarge    = &Error{Kind: KindFileTooLarge}
	ErrDecodeError     = &Error{Kind: KindDecodeError}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrInternal        = &Error{Kind: KindInternal}
)

// Error is the typed failure returned by the guard and the file operations.
// Path is the caller-supplied path, never the host location.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, path string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// WrapOS converts an error from the os package into an *Error, keeping the
// host path out of the message.
func WrapOS(path string, err error) *Error {
	var sbErr *Error
	if errors.As(err, &sbErr) {
		return sbErr
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Error{Kind: KindNotFound, Path: path, Message: fmt.Sprintf("path does not exist: %s", path), Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: KindInternal, Path: path, Message: fmt.Sprintf("permission denied: %s", path), Err: err}
	default:
		return &Error{Kind: KindInternal, Path: path, Message: fmt.Sprintf("cannot access %s", path), Err: err}
	}
}

// KindOf classifies any error. Errors that did not originate in this package
// are reported as KindInternal, except missing files which are KindNotFound.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var sbErr *Error
	if errors.As(err, &sbErr) {
		return sbErr.Kind
	}
	if errors.Is(err, fs.ErrNotExist) {
		return KindNotFound
	}
	return KindInternal
}
