package domain

import (
	"errors"
	"fmt"
)

// AuthError indicates the bearer token was rejected (HTTP 401/403).
// It aborts the whole run: retrying with the same credentials is pointless.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization failed with status %d", e.StatusCode)
}

// HTTPStatusError represents a non-2xx response that is not an auth failure.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
}

// Retryable reports whether the status indicates a transient condition.
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// RetryExceededError is returned when a retry policy gives up on a transient
// failure.
type RetryExceededError struct {
	Attempts int
	Err      error
}

func (e *RetryExceededError) Error() string {
	return fmt.Sprintf("exceeded max retries after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExceededError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is (or wraps) a credential failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransient classifies an error for retry purposes. Credential failures and
// non-retryable HTTP statuses are permanent; everything else (timeouts,
// connection errors, 429, 5xx, malformed bodies) is worth another attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return false
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
