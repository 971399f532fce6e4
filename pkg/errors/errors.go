// Package errors defines the failure taxonomy of the vocabulary pipeline.
// Every failure is a sentinel wrapped in an AppError that carries the file
// or index path needed to diagnose it.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrParse        = errors.New("parse error")
	ErrTimeout      = errors.New("worker timed out")
	ErrWorkerCrash  = errors.New("worker crashed")
	ErrCorruptIndex = errors.New("corrupt index")
	ErrUsage        = errors.New("usage error")
)

// Process exit codes. A worker subprocess reports its failure kind
// through these so the parent can rebuild the error.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitParse        = 3
	ExitCorruptIndex = 4
	ExitTimeout      = 5
)

type AppError struct {
	Err     error
	Path    string
	Message string
}

func (e *AppError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Err.Error(), e.Path, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, path string, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Path:    path,
		Message: message,
	}
}

func Newf(sentinel error, path string, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// Path returns the file or index path attached to err, if any.
func Path(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Path
	}
	return ""
}

// Is and As re-export the standard library helpers so callers importing
// this package under the name "errors" keep access to them.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// ExitCode maps an error onto the process exit code for its kind.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrParse):
		return ExitParse
	case errors.Is(err, ErrCorruptIndex):
		return ExitCorruptIndex
	case errors.Is(err, ErrTimeout):
		return ExitTimeout
	default:
		return ExitFailure
	}
}
