package jira

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the issue, project, or attachment does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuthFailed indicates the credentials were rejected.
	ErrAuthFailed = errors.New("authentication failed, check credentials")
	// ErrPermissionDenied indicates the user lacks access rights.
	ErrPermissionDenied = errors.New("permission denied, check access rights")
	// ErrTooLarge indicates an upload exceeded the attachment size limit.
	ErrTooLarge = errors.New("file too large, check attachment size limits")
)

// statusError maps an HTTP status code to a domain error. Server-side and
// throttling statuses come back as transient errors so the retry layer can
// recover them.
func statusError(statusCode int, context string) error {
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, context)
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	case http.StatusTooManyRequests:
		return &transientError{err: fmt.Errorf("rate limited (HTTP 429): %s", context)}
	}
	if statusCode >= 500 {
		return &transientError{err: fmt.Errorf("HTTP %d: %s", statusCode, context)}
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, context)
}

// transientError marks a failure as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }
