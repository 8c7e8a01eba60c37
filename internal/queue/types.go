// Package queue implements the media-processing pipeline: per-user
// sequencing, global admission control, and the job lifecycle from
// submission to completion.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the media type of a job.
type Kind string

const (
	// KindPhoto is an image analysis job.
	KindPhoto Kind = "photo"

	// KindVoice is a voice-note analysis job.
	KindVoice Kind = "voice"

	// KindAudio is an audio-file analysis job.
	KindAudio Kind = "audio"

	// KindDocument is a document analysis job.
	KindDocument Kind = "document"

	// KindVideo is a video analysis job.
	KindVideo Kind = "video"

	// KindText is a text message riding along with earlier media context.
	KindText Kind = "text-adjunct"
)

// ValidKind reports whether k is a recognized job kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindPhoto, KindVoice, KindAudio, KindDocument, KindVideo, KindText:
		return true
	default:
		return false
	}
}

// State represents where a job is in its lifecycle.
type State string

const (
	// StateQueued indicates the job is waiting in its user's backlog.
	StateQueued State = "queued"

	// StateSequenced indicates the job has been released as its user's
	// single active job and is heading for the admission gate.
	StateSequenced State = "sequenced"

	// StateAdmitted indicates the job holds a global admission slot.
	StateAdmitted State = "admitted"

	// StateRunning indicates the external analysis call is in progress.
	StateRunning State = "running"

	// StateCompleted indicates the job finished successfully.
	StateCompleted State = "completed"

	// StateFailed indicates the analysis call failed permanently.
	StateFailed State = "failed"

	// StateRejected indicates submission was refused (backlog full).
	StateRejected State = "rejected"

	// StateCancelled indicates the job was cancelled before running.
	StateCancelled State = "cancelled"
)

// Job is one unit of analysis work.
type Job struct {
	ID          string
	UserID      string
	Kind        Kind
	PayloadRef  string
	EnqueuedAt  time.Time
	startedAt   *time.Time
	completedAt *time.Time

	state       State
	result      string
	err         error
	cancelAsked bool
	cancel      context.CancelFunc
	mu          sync.RWMutex
}

// NewJob creates a job in the queued state with a fresh ID.
func NewJob(userID string, kind Kind, payloadRef string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		PayloadRef: payloadRef,
		EnqueuedAt: time.Now(),
		state:      StateQueued,
	}
}

// State safely reads the job state.
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// setState updates the state. Transitions are validated by the state machine
// before this is called.
func (j *Job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	switch j.State() {
	case StateCompleted, StateFailed, StateRejected, StateCancelled:
		return true
	default:
		return false
	}
}

// MarkStarted records when the external call began.
func (j *Job) MarkStarted() {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.startedAt = &now
}

// MarkDone records the terminal timestamp.
func (j *Job) MarkDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.completedAt = &now
}

// StartedAt returns when the external call began, nil if it never ran.
func (j *Job) StartedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.startedAt == nil {
		return nil
	}
	t := *j.startedAt
	return &t
}

// CompletedAt returns when the job reached a terminal state, nil until then.
func (j *Job) CompletedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.completedAt == nil {
		return nil
	}
	t := *j.completedAt
	return &t
}

// SetResult stores the analysis text.
func (j *Job) SetResult(result string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
}

// Result returns the analysis text, empty until completion.
func (j *Job) Result() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

// SetError stores the failure detail.
func (j *Job) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err
}

// Err returns the failure detail, nil unless the job failed.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// RequestCancel marks the job for cancellation and aborts its execution
// context if one is bound. Post-admission this is cooperative only; the
// analysis call's own timeout is the backstop.
func (j *Job) RequestCancel() {
	j.mu.Lock()
	j.cancelAsked = true
	cancel := j.cancel
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// CancelRequested reports whether cancellation has been asked for.
func (j *Job) CancelRequested() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.cancelAsked
}

// bindCancel attaches the job's execution context cancel function. If
// cancellation was already requested, the context is aborted immediately.
func (j *Job) bindCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	j.cancel = cancel
	asked := j.cancelAsked
	j.mu.Unlock()

	if asked {
		cancel()
	}
}
