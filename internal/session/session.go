// Package session holds per-user conversational state: bounded history,
// bounded content memory, and activity tracking. Sessions are created lazily
// on first use and aged out by the Sweeper.
package session

import (
	"sync"
	"time"
)

// Turn is a single conversational exchange entry.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ContentEntry records analyzed media so later jobs can reference it.
type ContentEntry struct {
	Kind      string    `json:"kind"`
	Summary   string    `json:"summary"`
	SourceRef string    `json:"source_ref"`
	At        time.Time `json:"at"`
}

// Snapshot is a read-only copy of one user's context, taken for prompt
// construction. Mutating a snapshot never affects the live session.
type Snapshot struct {
	UserID     string
	Turns      []Turn
	Content    []ContentEntry
	LastActive time.Time
}

// Activity holds per-user submission counters.
type Activity struct {
	Submissions map[string]int `json:"submissions"`
	FirstSeen   time.Time      `json:"first_seen"`
	LastActive  time.Time      `json:"last_active"`
}

// UserSession is the record for one user. All mutation goes through methods
// that hold the session's own lock, so operations on one user are atomic
// while different users never contend.
type UserSession struct {
	userID      string
	turns       *Ring[Turn]
	content     *Ring[ContentEntry]
	submissions map[string]int
	firstSeen   time.Time
	lastActive  time.Time
	mu          sync.Mutex
}

func newUserSession(userID string, historyCap, contentCap int, now time.Time) *UserSession {
	return &UserSession{
		userID:      userID,
		turns:       NewRing[Turn](historyCap),
		content:     NewRing[ContentEntry](contentCap),
		submissions: make(map[string]int),
		firstSeen:   now,
		lastActive:  now,
	}
}

// UserID returns the session's identity key.
func (s *UserSession) UserID() string {
	return s.userID
}

// RecordTurn appends a conversational turn, evicting the oldest on overflow.
func (s *UserSession) RecordTurn(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns.Push(Turn{Role: role, Text: text, At: time.Now()})
}

// RecordContent appends a content-memory entry, evicting the oldest on overflow.
func (s *UserSession) RecordContent(kind, summary, sourceRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content.Push(ContentEntry{
		Kind:      kind,
		Summary:   summary,
		SourceRef: sourceRef,
		At:        time.Now(),
	})
}

// RecordSubmission bumps the per-kind submission counter.
func (s *UserSession) RecordSubmission(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions[kind]++
}

// Touch updates the last-active timestamp.
func (s *UserSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
}

// LastActive returns when the session was last touched.
func (s *UserSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActive
}

// Snapshot returns a copy of the session's context for prompt use.
func (s *UserSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		UserID:     s.userID,
		Turns:      s.turns.Items(),
		Content:    s.content.Items(),
		LastActive: s.lastActive,
	}
}

// ActivitySnapshot returns a copy of the session's submission counters.
func (s *UserSession) ActivitySnapshot() Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := make(map[string]int, len(s.submissions))
	for k, v := range s.submissions {
		subs[k] = v
	}

	return Activity{
		Submissions: subs,
		FirstSeen:   s.firstSeen,
		LastActive:  s.lastActive,
	}
}

// HistoryLen returns the number of stored turns.
func (s *UserSession) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.turns.Len()
}

// ContentLen returns the number of stored content entries.
func (s *UserSession) ContentLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.content.Len()
}
