// Package errors defines the error taxonomy shared by the indexer, the
// searcher and their HTTP / CLI front-ends.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyQuery is returned when a query normalizes to zero tokens. It is
	// a user-correctable input error, not a fault.
	ErrEmptyQuery = errors.New("query contains no searchable terms")

	// ErrIndexNotFound is returned when searching before any index has been
	// built at the configured location.
	ErrIndexNotFound = errors.New("index not found, build the index first")

	// ErrIndexBuild wraps every failure raised while constructing an index.
	ErrIndexBuild = errors.New("index build failed")

	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// BuildError wraps cause so that it matches ErrIndexBuild while keeping the
// cause reachable through errors.Is / errors.As.
func BuildError(cause error) error {
	return fmt.Errorf("%w: %w", ErrIndexBuild, cause)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps err to a process exit status for command-line front-ends.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidInput):
		return 2
	case errors.Is(err, ErrIndexNotFound):
		return 3
	default:
		return 1
	}
}
