package queue

import (
	"container/list"
	"fmt"
	"sync"
)

// DefaultBacklogCapacity bounds outstanding jobs per user.
const DefaultBacklogCapacity = 5

// userQueue holds one user's pending jobs and their single active job.
type userQueue struct {
	backlog *list.List
	active  *Job
}

func (uq *userQueue) outstanding() int {
	n := uq.backlog.Len()
	if uq.active != nil {
		n++
	}
	return n
}

// Sequencer guarantees that each user's jobs are released one at a time, in
// submission order, independently of other users. It also enforces the
// per-user backlog capacity: a user may have at most capacity jobs
// outstanding (active plus backlog) before submissions are refused.
//
// The sequencer does not bound total concurrency; that is the Gate's job.
type Sequencer struct {
	users    map[string]*userQueue
	capacity int
	mu       sync.Mutex
}

// NewSequencer creates a sequencer with the given per-user capacity.
// Non-positive capacities fall back to the default.
func NewSequencer(capacity int) *Sequencer {
	if capacity < 1 {
		capacity = DefaultBacklogCapacity
	}
	return &Sequencer{
		users:    make(map[string]*userQueue),
		capacity: capacity,
	}
}

// Enqueue accepts a job for its user. The returned bool is true when the job
// was released immediately (the user had nothing in flight); the caller then
// owns driving it through the gate. False means the job parked in the
// backlog and will be handed out by a later Complete call.
func (s *Sequencer) Enqueue(job *Job) (bool, error) {
	if job == nil {
		return false, fmt.Errorf("cannot enqueue nil job")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uq, ok := s.users[job.UserID]
	if !ok {
		uq = &userQueue{backlog: list.New()}
		s.users[job.UserID] = uq
	}

	if uq.outstanding() >= s.capacity {
		return false, &RejectionError{UserID: job.UserID, Capacity: s.capacity}
	}

	if uq.active == nil {
		uq.active = job
		return true, nil
	}

	uq.backlog.PushBack(job)
	return false, nil
}

// Complete records that the user's active job reached a terminal state and
// releases the next backlog entry, if any. The returned job (nil when the
// backlog is empty) becomes the user's new active job and must be driven by
// the caller.
func (s *Sequencer) Complete(userID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	uq, ok := s.users[userID]
	if !ok {
		return nil
	}

	uq.active = nil

	front := uq.backlog.Front()
	if front == nil {
		// Nothing outstanding; drop the user's entry entirely.
		delete(s.users, userID)
		return nil
	}

	job, ok := front.Value.(*Job)
	if !ok {
		return nil
	}
	uq.backlog.Remove(front)
	uq.active = job
	return job
}

// Remove takes a still-queued job out of its user's backlog. Returns false
// if the job is no longer there (already released or unknown).
func (s *Sequencer) Remove(job *Job) bool {
	if job == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uq, ok := s.users[job.UserID]
	if !ok {
		return false
	}

	for e := uq.backlog.Front(); e != nil; e = e.Next() {
		if e.Value == job {
			uq.backlog.Remove(e)
			if uq.outstanding() == 0 {
				delete(s.users, job.UserID)
			}
			return true
		}
	}

	return false
}

// HasWork reports whether the user has an active job or a non-empty backlog.
// The session sweeper uses this to defer eviction of busy users.
func (s *Sequencer) HasWork(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	uq, ok := s.users[userID]
	return ok && uq.outstanding() > 0
}

// BacklogLen returns the number of queued (not yet released) jobs for a user.
func (s *Sequencer) BacklogLen(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	uq, ok := s.users[userID]
	if !ok {
		return 0
	}
	return uq.backlog.Len()
}

// Stats returns sequencer-level counters.
func (s *Sequencer) Stats() (users, active, backlog int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, uq := range s.users {
		if uq.active != nil {
			active++
		}
		backlog += uq.backlog.Len()
	}
	return len(s.users), active, backlog
}
