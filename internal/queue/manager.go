package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aqljon/aqljon/internal/session"
)

const (
	// defaultShutdownTimeout bounds how long Shutdown waits for in-flight jobs.
	defaultShutdownTimeout = 30 * time.Second

	// jobRetention is how long terminal jobs stay queryable via Status.
	jobRetention = 10 * time.Minute
)

// ManagerConfig holds construction parameters for the Manager.
type ManagerConfig struct {
	Store    *session.Store
	Analyzer Analyzer
	Notifier Notifier // optional

	GateCapacity    int
	BacklogCapacity int
}

// Manager orchestrates the job pipeline: it accepts submissions, enforces
// per-user backlog limits, drives released jobs through the admission gate,
// invokes the analysis backend, and writes results back into the session
// store. One goroutine runs per released job; suspension points are the
// sequencer, the gate, and the analysis call itself.
type Manager struct {
	store    *session.Store
	analyzer Analyzer
	notifier Notifier
	gate     *Gate
	seq      *Sequencer
	sm       StateMachine
	jobs     sync.Map // jobID -> *Job
	stats    *collector
	logger   *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// NewManager creates a manager and its gate and sequencer. The store and
// analyzer are required; the notifier may be nil.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Manager{
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		notifier: cfg.Notifier,
		gate:     NewGate(cfg.GateCapacity),
		seq:      NewSequencer(cfg.BacklogCapacity),
		sm:       NewStateMachine(),
		stats:    newCollector(),
		logger:   slog.Default().With(slog.String("component", "queue.manager")),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Submit validates and accepts a job for the user. It returns the job ID;
// the job is queryable via Status even when admission fails. A full backlog
// yields an error matching ErrBacklogFull with no backlog mutation.
func (m *Manager) Submit(userID string, kind Kind, payloadRef string) (string, error) {
	if m.stopped.Load() {
		return "", ErrManagerStopped
	}
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if !ValidKind(kind) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	sess := m.store.GetOrCreate(userID)
	sess.Touch()

	job := NewJob(userID, kind, payloadRef)
	m.jobs.Store(job.ID, job)

	released, err := m.seq.Enqueue(job)
	if err != nil {
		if terr := m.sm.Transition(job, StateRejected); terr != nil {
			job.setState(StateRejected)
		}
		job.MarkDone()
		m.stats.recordRejected()
		m.scheduleForget(job.ID)
		m.logger.DebugContext(m.ctx, "Submission rejected",
			slog.String("job_id", job.ID),
			slog.String("user_id", userID),
			slog.String("kind", string(kind)))
		return job.ID, err
	}

	sess.RecordSubmission(string(kind))
	m.stats.recordSubmit(kind)

	if released {
		m.dispatch(job)
	}

	return job.ID, nil
}

// Status returns the job's current state without blocking.
func (m *Manager) Status(jobID string) (State, error) {
	job, ok := m.Job(jobID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job.State(), nil
}

// Job looks up a job by ID.
func (m *Manager) Job(jobID string) (*Job, bool) {
	v, ok := m.jobs.Load(jobID)
	if !ok {
		return nil, false
	}
	job, ok := v.(*Job)
	return job, ok
}

// Cancel is best-effort: a job still in the backlog is removed without side
// effects; a released job is marked for cancellation, which is exact before
// the analysis call starts and cooperative after (the call's own timeout is
// the backstop).
func (m *Manager) Cancel(jobID string) error {
	job, ok := m.Job(jobID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Terminal() {
		return fmt.Errorf("%w: %s", ErrJobTerminal, jobID)
	}

	if job.State() == StateQueued && m.seq.Remove(job) {
		if err := m.sm.Transition(job, StateCancelled); err != nil {
			job.setState(StateCancelled)
		}
		job.MarkDone()
		m.stats.recordCancelled()
		m.scheduleForget(job.ID)
		return nil
	}

	job.RequestCancel()
	return nil
}

// HasWork reports whether the user has queued or in-flight jobs. Implements
// session.ActivityChecker for the eviction sweeper.
func (m *Manager) HasWork(userID string) bool {
	return m.seq.HasWork(userID)
}

// Stats returns a point-in-time view of queue activity.
func (m *Manager) Stats() Stats {
	st := m.stats.snapshot()
	users, active, backlog := m.seq.Stats()
	st.ActiveUsers = users
	st.InFlight = active
	st.Backlog = backlog
	st.GateInUse = m.gate.InUse()
	st.GateCapacity = m.gate.Capacity()
	return st
}

// Shutdown stops accepting submissions, cancels in-flight work, and waits up
// to timeout for job goroutines to drain.
func (m *Manager) Shutdown(timeout time.Duration) error {
	if !m.stopped.CompareAndSwap(false, true) {
		return fmt.Errorf("already stopped")
	}
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// dispatch moves a released job toward the gate on its own goroutine.
func (m *Manager) dispatch(job *Job) {
	if err := m.sm.Transition(job, StateSequenced); err != nil {
		// Job reached a terminal state before release; skip it and let the
		// user's next backlog entry proceed.
		m.advance(job.UserID)
		return
	}

	m.wg.Add(1)
	go m.run(job)
}

// run drives one released job: gate admission, the analysis call, and the
// terminal bookkeeping. The admission token is released by defer on every
// exit path, success, failure, or cancellation alike.
func (m *Manager) run(job *Job) {
	defer m.wg.Done()

	ctx, cancel := context.WithCancel(m.ctx)
	defer cancel()
	job.bindCancel(cancel)

	token, err := m.gate.Acquire(ctx)
	if err != nil {
		// Cancelled or shut down while waiting for a slot.
		m.finish(job, StateCancelled, "", err)
		return
	}
	defer token.Release()

	if err = m.sm.Transition(job, StateAdmitted); err != nil {
		m.finish(job, StateCancelled, "", nil)
		return
	}

	if job.CancelRequested() {
		m.finish(job, StateCancelled, "", context.Canceled)
		return
	}

	if err = m.sm.Transition(job, StateRunning); err != nil {
		m.finish(job, StateCancelled, "", nil)
		return
	}
	job.MarkStarted()

	snap := m.store.Snapshot(job.UserID)
	result, err := m.analyzer.Analyze(ctx, job.Kind, job.PayloadRef, snap)
	if err != nil {
		m.finish(job, StateFailed, "", err)
		return
	}

	m.finish(job, StateCompleted, result, nil)
}

// finish records the job's terminal state, merges results into the session
// store, notifies the sink, and releases the user's next backlog entry.
func (m *Manager) finish(job *Job, to State, result string, err error) {
	switch to {
	case StateCompleted:
		job.SetResult(result)
		if job.Kind != KindText {
			m.store.RecordContent(job.UserID, string(job.Kind), result, job.PayloadRef)
		}
		m.store.RecordTurn(job.UserID, "model", result)
		m.store.Touch(job.UserID)
	case StateFailed, StateCancelled:
		if err != nil {
			job.SetError(err)
		}
	}

	if terr := m.sm.Transition(job, to); terr != nil {
		m.logger.ErrorContext(m.ctx, "Invalid terminal transition",
			slog.String("job_id", job.ID),
			slog.String("from", string(job.State())),
			slog.String("to", string(to)),
			slog.Any("error", terr))
		job.setState(to)
	}
	job.MarkDone()

	var processing time.Duration
	if started := job.StartedAt(); started != nil {
		processing = time.Since(*started)
	}

	switch to {
	case StateCompleted:
		m.stats.recordCompleted(processing)
	case StateFailed:
		m.stats.recordFailed(processing)
		m.logger.InfoContext(m.ctx, "Job failed",
			slog.String("job_id", job.ID),
			slog.String("user_id", job.UserID),
			slog.String("kind", string(job.Kind)),
			slog.Any("error", err))
	case StateCancelled:
		m.stats.recordCancelled()
	}

	if m.notifier != nil && (to == StateCompleted || to == StateFailed) {
		m.notifier.JobDone(m.ctx, Completion{
			JobID:  job.ID,
			UserID: job.UserID,
			Kind:   job.Kind,
			State:  to,
			Result: job.Result(),
			Err:    job.Err(),
		})
	}

	m.scheduleForget(job.ID)
	m.advance(job.UserID)
}

// advance releases the user's next backlog entry, if any.
func (m *Manager) advance(userID string) {
	if next := m.seq.Complete(userID); next != nil {
		m.dispatch(next)
	}
}

// scheduleForget drops a terminal job from the lookup map after the
// retention window so Status stays bounded under continuous operation.
func (m *Manager) scheduleForget(jobID string) {
	time.AfterFunc(jobRetention, func() {
		m.jobs.Delete(jobID)
	})
}
