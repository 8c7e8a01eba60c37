// Package analysis adapts the external media-analysis backend. The queue
// consumes it through the Analyzer interface and treats every error here as
// a terminal job failure; retry and backoff live in this package only.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend failure categories. The queue does not distinguish between them
// beyond logging; they exist so the adapter can decide what to retry.
var (
	// ErrRateLimited indicates the backend throttled the request.
	ErrRateLimited = errors.New("rate limited by analysis backend")

	// ErrTimeout indicates the call exceeded its bound.
	ErrTimeout = errors.New("analysis call timed out")

	// ErrBackend indicates any other backend failure.
	ErrBackend = errors.New("analysis backend error")
)

// BackendError carries the HTTP status and message from a failed call.
type BackendError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// Unwrap makes the error match ErrBackend via errors.Is.
func (e *BackendError) Unwrap() error {
	return ErrBackend
}

// IsRateLimited checks if an error indicates backend throttling.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.Status == 429 {
		return true
	}

	msg := strings.ToLower(err.Error())
	indicators := []string{
		"rate limit",
		"too many requests",
		"429",
		"quota exceeded",
		"throttled",
	}
	for _, indicator := range indicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}

	return false
}

// IsTimeout checks if an error indicates the call exceeded its bound.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// retryable reports whether a failed call is worth retrying. Context
// cancellation is never retried; the caller has moved on.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
