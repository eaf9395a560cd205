// Package apperr defines the tagged error type shared by every quill layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindNone Kind = iota
	KindNullArgument
	KindDirRead
	KindInvalidLocation
	KindFileRead
	KindFileStat
	KindAlreadyExists
	KindNotFilled
	KindDirCreate
	KindFileCreate
	KindDelete
	KindNotFound
	KindTooLong
	KindConflict
	KindInvalid
)

// String returns the human-readable description of k.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "No error"
	case KindNullArgument:
		return "Required argument is missing"
	case KindDirRead:
		return "Cannot read the directory"
	case KindInvalidLocation:
		return "Invalid location"
	case KindFileRead:
		return "Cannot read the file"
	case KindFileStat:
		return "Cannot read the file stat"
	case KindAlreadyExists:
		return "Given name was already declared"
	case KindNotFilled:
		return "Required field wasn't filled"
	case KindDirCreate:
		return "Cannot create the directory"
	case KindFileCreate:
		return "Cannot create the file"
	case KindDelete:
		return "Cannot delete the file"
	case KindNotFound:
		return "Not found"
	case KindTooLong:
		return "Name exceeds the maximum length"
	case KindConflict:
		return "Conflict"
	case KindInvalid:
		return "Invalid argument"
	}
	return "Unknown error"
}

// Error is a failure tagged with its Kind, the operation that produced it,
// the path involved and, for I/O kinds, the OS-level cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// E builds an *Error.
func E(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNullArgument    = &Error{Kind: KindNullArgument}
	ErrDirRead         = &Error{Kind: KindDirRead}
	ErrInvalidLocation = &Error{Kind: KindInvalidLocation}
	ErrFileRead        = &Error{Kind: KindFileRead}
	ErrFileStat        = &Error{Kind: KindFileStat}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrNotFilled       = &Error{Kind: KindNotFilled}
	ErrDirCreate       = &Error{Kind: KindDirCreate}
	ErrFileCreate      = &Error{Kind: KindFileCreate}
	ErrDelete          = &Error{Kind: KindDelete}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrTooLong         = &Error{Kind: KindTooLong}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInvalid         = &Error{Kind: KindInvalid}
)

// KindOf returns the Kind of the first *Error in err's chain, KindNone for a
// nil error and -1 for errors that carry no kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return -1
}

// Describe returns the description of err's kind, falling back to the error
// text for untagged errors.
func Describe(err error) string {
	k := KindOf(err)
	if k < 0 {
		return err.Error()
	}
	return k.String()
}
