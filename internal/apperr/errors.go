// Package apperr defines the error kinds shared by the index, vault and service layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptIndex means a persisted document exists but cannot be parsed.
	// It is fatal to any operation needing the store and is never replaced
	// with an empty index.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrNoteNotFound means a note path has no backing file in the vault.
	ErrNoteNotFound = errors.New("note not found")
	// ErrIO wraps an underlying read or write failure. Callers decide on retries.
	ErrIO = errors.New("i/o failure")
	// ErrInvalidInput rejects malformed arguments before any state is touched.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDanglingRelated is returned when related references must resolve and do not.
	ErrDanglingRelated = errors.New("dangling related reference")
	// ErrLocked is returned when another driver holds the index lock.
	ErrLocked = errors.New("index locked by another process")
)

// Error attaches the failing operation and path to an error kind.
// errors.Is matches both Kind and the wrapped cause.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New builds an *Error.
func New(kind error, op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// Corrupt reports an unparseable persisted document.
func Corrupt(op, path string, err error) error {
	return New(ErrCorruptIndex, op, path, err)
}

// NotFound reports a missing note.
func NotFound(op, path string) error {
	return New(ErrNoteNotFound, op, path, nil)
}

// IO reports an underlying file-system failure.
func IO(op, path string, err error) error {
	return New(ErrIO, op, path, err)
}

// Invalid reports rejected input.
func Invalid(op, path string, err error) error {
	return New(ErrInvalidInput, op, path, err)
}

// Invalidf is Invalid with a formatted cause.
func Invalidf(op, path, format string, args ...any) error {
	return New(ErrInvalidInput, op, path, fmt.Errorf(format, args...))
}

// Code returns a stable machine-readable code for the kind carried by err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCorruptIndex):
		return "CORRUPT_INDEX"
	case errors.Is(err, ErrNoteNotFound):
		return "NOTE_NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrDanglingRelated):
		return "DANGLING_RELATED"
	case errors.Is(err, ErrLocked):
		return "LOCKED"
	case errors.Is(err, ErrIO):
		return "IO_FAILURE"
	default:
		return "INTERNAL"
	}
}
