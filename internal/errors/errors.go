package errors

import (
	"errors"
	"fmt"
)

// Common error types for the check-in runner
var (
	// Configuration errors
	ErrConfigNotFound = errors.New("no config found")
	ErrNoAccounts     = errors.New("no accounts configured")

	// Session errors
	ErrNoSession      = errors.New("no identity provider session available")
	ErrEmptySession   = errors.New("empty session")
	ErrSessionExpired = errors.New("session expired")
	ErrNotLoggedIn    = errors.New("not logged in")

	// OAuth errors
	ErrEmptyOAuthState = errors.New("empty OAuth state")
	ErrNoAuthRedirect  = errors.New("authorization did not redirect back")

	// State errors
	ErrStateNotFound = errors.New("state file not found")
)

// HTTPError is an HTTP/response-classified failure from a panel endpoint,
// as opposed to a generic execution error.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

// NewHTTPError creates an HTTPError for the given endpoint and status code.
func NewHTTPError(endpoint string, statusCode int, format string, args ...interface{}) *HTTPError {
	return &HTTPError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    fmt.Sprintf(format, args...),
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("[%s] HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsHTTPError reports whether any error in err's chain is an HTTPError.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
