package queue

import (
	"context"

	"github.com/aqljon/aqljon/internal/session"
)

// Analyzer is the external analysis backend, consumed as an opaque call.
// Implementations handle their own timeouts and retries; the queue treats
// any returned error as a terminal job failure.
type Analyzer interface {
	// Analyze runs the backend call for one payload with the user's
	// current context snapshot and returns the analysis text.
	Analyze(ctx context.Context, kind Kind, payloadRef string, snap session.Snapshot) (string, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, kind Kind, payloadRef string, snap session.Snapshot) (string, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, kind Kind, payloadRef string, snap session.Snapshot) (string, error) {
	return f(ctx, kind, payloadRef, snap)
}

// Completion is the outcome delivered to the notification sink.
type Completion struct {
	JobID  string
	UserID string
	Kind   Kind
	State  State
	Result string
	Err    error
}

// Notifier receives job outcomes for delivery to the user. The queue does
// not format or send messages itself. Implementations must be safe for
// concurrent use and must not block for long; they run on the finishing
// job's goroutine.
type Notifier interface {
	JobDone(ctx context.Context, c Completion)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, c Completion)

// JobDone implements Notifier.
func (f NotifierFunc) JobDone(ctx context.Context, c Completion) {
	f(ctx, c)
}

// StateMachine validates job state transitions.
type StateMachine interface {
	// Transition moves a job to a new state if allowed.
	Transition(job *Job, to State) error

	// CanTransition checks if a transition is valid.
	CanTransition(from, to State) bool

	// IsTerminal checks if a state has no outgoing transitions.
	IsTerminal(state State) bool
}
