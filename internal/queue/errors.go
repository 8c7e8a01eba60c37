package queue

import (
	"errors"
	"fmt"
)

// Common queue errors.
var (
	// ErrBacklogFull indicates the user's backlog is at capacity.
	ErrBacklogFull = errors.New("backlog full")

	// ErrInvalidKind indicates an unrecognized job kind.
	ErrInvalidKind = errors.New("invalid job kind")

	// ErrJobNotFound indicates the job ID is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal indicates the job already reached a final state.
	ErrJobTerminal = errors.New("job already terminal")

	// ErrManagerStopped indicates the queue manager has shut down.
	ErrManagerStopped = errors.New("queue manager stopped")
)

// RejectionError carries the backlog context for a refused submission.
type RejectionError struct {
	UserID   string
	Capacity int
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("backlog full for user %s (capacity %d)", e.UserID, e.Capacity)
}

// Unwrap makes the error match ErrBacklogFull via errors.Is.
func (e *RejectionError) Unwrap() error {
	return ErrBacklogFull
}

// IsAdmissionRejected reports whether err means a submission was refused at
// admission time. These errors are user-correctable; nothing was mutated.
func IsAdmissionRejected(err error) bool {
	return errors.Is(err, ErrBacklogFull) || errors.Is(err, ErrInvalidKind)
}
