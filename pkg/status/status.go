// Package status defines the error taxonomy shared by the classification
// pipeline. Every failure surfaces synchronously to the caller; nothing in
// this library retries.
package status

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks malformed options or inputs, always detected
	// before any inference work.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInternal marks failures originating in the underlying model engine.
	ErrInternal = errors.New("internal error")
	// ErrNotFound marks a model or label file that does not resolve on disk.
	ErrNotFound = errors.New("not found")
)

// Error couples a sentinel kind with a human-readable message. Message text
// is a compatibility surface: callers match on substrings.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// InvalidArgumentf builds an ErrInvalidArgument error with a formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// Internalf builds an ErrInternal error with a formatted message.
func Internalf(format string, args ...any) error {
	return &Error{Kind: ErrInternal, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds an ErrNotFound error with a formatted message.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}
