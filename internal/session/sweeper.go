package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultSweepInterval is how often the sweeper runs.
	DefaultSweepInterval = 1 * time.Hour

	// DefaultIdleThreshold is how long a session may sit idle before eviction.
	DefaultIdleThreshold = 30 * 24 * time.Hour

	// DefaultMaxSessions caps the total number of tracked sessions.
	DefaultMaxSessions = 2000
)

// ActivityChecker reports whether a user has queued or in-flight work.
// The job queue implements this; the sweeper never evicts a busy user.
type ActivityChecker interface {
	HasWork(userID string) bool
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Idle     int // evicted for inactivity
	Capped   int // evicted to enforce the session cap
	Deferred int // eligible but skipped because work was in flight
}

// Sweeper periodically removes idle sessions and enforces the global session
// cap, always skipping users with in-flight work.
type Sweeper struct {
	store         *Store
	activity      ActivityChecker
	interval      time.Duration
	idleThreshold time.Duration
	maxSessions   int
	cancel        context.CancelFunc
	done          chan struct{}
	mu            sync.Mutex
	running       bool
}

// NewSweeper creates a sweeper with the given retention policy. Non-positive
// values fall back to the defaults.
func NewSweeper(store *Store, activity ActivityChecker, interval, idleThreshold time.Duration, maxSessions int) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if idleThreshold <= 0 {
		idleThreshold = DefaultIdleThreshold
	}
	if maxSessions < 1 {
		maxSessions = DefaultMaxSessions
	}

	return &Sweeper{
		store:         store,
		activity:      activity,
		interval:      interval,
		idleThreshold: idleThreshold,
		maxSessions:   maxSessions,
	}
}

// Start begins the periodic sweep loop.
func (sw *Sweeper) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.running {
		return nil // Already running
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel
	sw.done = make(chan struct{})
	sw.running = true

	go sw.run(sweepCtx)

	return nil
}

// Stop halts the sweep loop and waits for it to exit.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return
	}

	cancel := sw.cancel
	done := sw.done
	sw.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// IsRunning reports whether the sweep loop is active.
func (sw *Sweeper) IsRunning() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.running
}

func (sw *Sweeper) run(ctx context.Context) {
	defer func() {
		sw.mu.Lock()
		sw.running = false
		if sw.done != nil {
			close(sw.done)
		}
		sw.mu.Unlock()
	}()

	logger := slog.Default().With(
		slog.String("component", "session.sweeper"),
	)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Sweeper stopping")
			return

		case <-ticker.C:
			result := sw.Sweep()
			if result.Idle > 0 || result.Capped > 0 {
				logger.InfoContext(ctx, "Evicted sessions",
					slog.Int("idle", result.Idle),
					slog.Int("capped", result.Capped),
					slog.Int("deferred", result.Deferred),
					slog.Int("remaining", sw.store.Len()),
				)
			}
		}
	}
}

// Sweep runs one eviction pass: first idle sessions past the retention
// threshold, then least-recently-active sessions until the store is back
// under the cap. Sessions with in-flight work are deferred to the next pass.
func (sw *Sweeper) Sweep() SweepResult {
	var result SweepResult
	now := time.Now()
	cutoff := now.Add(-sw.idleThreshold)

	refs := sw.store.refs()
	for _, ref := range refs {
		if !ref.lastActive.Before(cutoff) {
			continue
		}
		if sw.busy(ref.userID) {
			result.Deferred++
			continue
		}
		if sw.store.Remove(ref.userID) {
			result.Idle++
		}
	}

	over := sw.store.Len() - sw.maxSessions
	if over <= 0 {
		return result
	}

	// Least-recently-active first.
	refs = sw.store.refs()
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].lastActive.Before(refs[j].lastActive)
	})

	for _, ref := range refs {
		if over <= 0 {
			break
		}
		if sw.busy(ref.userID) {
			result.Deferred++
			continue
		}
		if sw.store.Remove(ref.userID) {
			result.Capped++
			over--
		}
	}

	return result
}

func (sw *Sweeper) busy(userID string) bool {
	return sw.activity != nil && sw.activity.HasWork(userID)
}
