package queue

import (
	"errors"
	"fmt"
)

// Code is the closed set of results a queue operation can report.
type Code int

const (
	CodeOK Code = iota
	CodeGenericError
	CodeInvalidArgument
	CodeOutOfMemory
	CodeTimeout
	CodeClosed
)

var (
	ErrGeneric         = errors.New("msgq: generic error")
	ErrInvalidArgument = errors.New("msgq: invalid argument")
	ErrOutOfMemory     = errors.New("msgq: out of memory")
	ErrTimeout         = errors.New("msgq: timeout")
	ErrClosed          = errors.New("msgq: queue closed")

	// ErrQueueEmpty is returned by Clear on a queue without messages.
	ErrQueueEmpty = fmt.Errorf("%w: queue is empty", ErrGeneric)
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeGenericError:
		return "generic_error"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeOutOfMemory:
		return "out_of_memory"
	case CodeTimeout:
		return "timeout"
	case CodeClosed:
		return "closed"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// CodeOf maps err, wrapped or not, to its Code. Errors that did not come
// from this package map to CodeGenericError.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrOutOfMemory):
		return CodeOutOfMemory
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrClosed):
		return CodeClosed
	default:
		return CodeGenericError
	}
}
