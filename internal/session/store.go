package session

import (
	"sync"
	"time"
)

// Default per-user capacities, overridable through configuration.
const (
	// DefaultHistoryCap bounds conversation turns per user.
	DefaultHistoryCap = 40

	// DefaultContentCap bounds content-memory entries per user.
	DefaultContentCap = 50
)

// Store owns every active UserSession. Sessions are created lazily on first
// use and removed only by the Sweeper. The store lock guards the map; each
// session carries its own lock, so operations on different users never block
// each other.
type Store struct {
	sessions   map[string]*UserSession
	historyCap int
	contentCap int
	mu         sync.RWMutex
}

// NewStore creates an empty store with the given per-user capacities.
// Non-positive capacities fall back to the defaults.
func NewStore(historyCap, contentCap int) *Store {
	if historyCap < 1 {
		historyCap = DefaultHistoryCap
	}
	if contentCap < 1 {
		contentCap = DefaultContentCap
	}

	return &Store{
		sessions:   make(map[string]*UserSession),
		historyCap: historyCap,
		contentCap: contentCap,
	}
}

// GetOrCreate returns the session for userID, creating it if absent.
func (st *Store) GetOrCreate(userID string) *UserSession {
	st.mu.RLock()
	sess, ok := st.sessions[userID]
	st.mu.RUnlock()
	if ok {
		return sess
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// Re-check under the write lock; another caller may have raced us.
	if sess, ok = st.sessions[userID]; ok {
		return sess
	}

	sess = newUserSession(userID, st.historyCap, st.contentCap, time.Now())
	st.sessions[userID] = sess
	return sess
}

// Get returns the session for userID without creating one.
func (st *Store) Get(userID string) (*UserSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[userID]
	return sess, ok
}

// RecordTurn appends a conversational turn to the user's history.
func (st *Store) RecordTurn(userID, role, text string) {
	st.GetOrCreate(userID).RecordTurn(role, text)
}

// RecordContent appends a content-memory entry for the user.
func (st *Store) RecordContent(userID, kind, summary, sourceRef string) {
	st.GetOrCreate(userID).RecordContent(kind, summary, sourceRef)
}

// Touch updates the user's last-active timestamp.
func (st *Store) Touch(userID string) {
	st.GetOrCreate(userID).Touch()
}

// Snapshot returns a read-only copy of the user's context. An unknown user
// yields an empty snapshot without creating a session.
func (st *Store) Snapshot(userID string) Snapshot {
	sess, ok := st.Get(userID)
	if !ok {
		return Snapshot{UserID: userID}
	}
	return sess.Snapshot()
}

// Remove deletes the session for userID. Returns whether it existed.
func (st *Store) Remove(userID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	_, ok := st.sessions[userID]
	delete(st.sessions, userID)
	return ok
}

// Len returns the number of tracked sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.sessions)
}

// sessionRef pairs a user ID with its last-active time for sweep ordering.
type sessionRef struct {
	userID     string
	lastActive time.Time
}

// refs returns an unordered snapshot of user IDs and last-active times.
func (st *Store) refs() []sessionRef {
	st.mu.RLock()
	sessions := make([]*UserSession, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.RUnlock()

	out := make([]sessionRef, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionRef{userID: sess.UserID(), lastActive: sess.LastActive()})
	}
	return out
}

// Stats returns store-level counters for monitoring.
func (st *Store) Stats() map[string]int {
	st.mu.RLock()
	sessions := make([]*UserSession, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.RUnlock()

	turns := 0
	content := 0
	for _, sess := range sessions {
		turns += sess.HistoryLen()
		content += sess.ContentLen()
	}

	return map[string]int{
		"sessions":        len(sessions),
		"turns":           turns,
		"content_entries": content,
	}
}
