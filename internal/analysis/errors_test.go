package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBackendErrorUnwraps(t *testing.T) {
	err := &BackendError{Status: 500, Message: "internal error"}

	if !errors.Is(err, ErrBackend) {
		t.Error("Expected BackendError to match ErrBackend")
	}
	if got := err.Error(); got != "backend error 500: internal error" {
		t.Errorf("Unexpected message: %q", got)
	}

	statusless := &BackendError{Message: "connection refused"}
	if got := statusless.Error(); got != "backend error: connection refused" {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrRateLimited, true},
		{"wrapped sentinel", fmt.Errorf("call: %w", ErrRateLimited), true},
		{"status 429", &BackendError{Status: 429, Message: "slow down"}, true},
		{"message indicator", errors.New("quota exceeded for project"), true},
		{"throttled message", errors.New("request throttled"), true},
		{"plain failure", errors.New("connection reset"), false},
		{"other backend error", &BackendError{Status: 500, Message: "oops"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(ErrTimeout) {
		t.Error("Expected ErrTimeout to be a timeout")
	}
	if !IsTimeout(fmt.Errorf("call: %w", context.DeadlineExceeded)) {
		t.Error("Expected DeadlineExceeded to be a timeout")
	}
	if IsTimeout(errors.New("boom")) {
		t.Error("Expected plain error not to be a timeout")
	}
}

func TestRetryable(t *testing.T) {
	if retryable(nil) {
		t.Error("Expected nil to not be retryable")
	}
	if retryable(context.Canceled) {
		t.Error("Expected context.Canceled to not be retryable")
	}
	if !retryable(&BackendError{Status: 503, Message: "unavailable"}) {
		t.Error("Expected backend error to be retryable")
	}
	if !retryable(ErrTimeout) {
		t.Error("Expected timeout to be retryable")
	}
}
