package mibc

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNoSources is returned by Compile when no sources are configured.
var ErrNoSources = errors.New("no MIB sources configured")

// ErrNotFound signals that a collaborator does not have the requested
// module. Sources and searchers return it (or any error satisfying
// errors.Is(err, ErrNotFound)) to make the compiler try the next
// collaborator of the same kind.
var ErrNotFound = fs.ErrNotExist

// ErrNotModified is the positive freshness signal: a searcher returns it
// when a compiled artifact already exists and is not older than the
// module source, so no regeneration is needed.
var ErrNotModified = errors.New("compiled module is up to date")

// Error is the failure value attached to a module's Failed outcome.
// It carries a fixed set of optional context fields identifying where
// in the pipeline the underlying error occurred.
type Error struct {
	Module  string // module name being processed
	Handler string // collaborator that produced the error, if any
	Line    int    // source line for parse errors, 0 otherwise
	Err     error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Handler != "" {
		msg = e.Handler + ": " + msg
	}
	if e.Module != "" {
		msg += " at MIB " + e.Module
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// describe names a collaborator for logs and error context.
func describe(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", v)
}
