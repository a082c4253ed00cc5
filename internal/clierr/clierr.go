// Errors that carry a process exit code.
package clierr

import (
	"errors"
	"fmt"
)

const (
	CodeFailure        = 1
	CodeUsage          = 2
	CodeRepoNotFound   = 3
	CodeCorruptHistory = 4
)

type ExitCoder interface {
	error
	ExitCode() int
}

// Wraps a cause with an exit code. errors.Is and errors.As see through it.
type ExitError struct {
	code  int
	msg   string
	cause error
}

func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

func (e *ExitError) ExitCode() int { return e.code }

func (e *ExitError) Unwrap() error { return e.cause }

func New(code int, msg string) error {
	return &ExitError{code: normalize(code), msg: msg}
}

func Newf(code int, format string, args ...any) error {
	return &ExitError{code: normalize(code), msg: fmt.Sprintf(format, args...)}
}

// Wrap returns nil when cause is nil. An empty msg reports the cause as is.
func Wrap(code int, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ExitError{code: normalize(code), msg: msg, cause: cause}
}

// Extracts an exit code from any error, defaulting to 1.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}

	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return CodeFailure
}

// Exit code 0 means success; errors should never be 0.
func normalize(code int) int {
	if code <= 0 {
		return CodeFailure
	}
	return code
}
