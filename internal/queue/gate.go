package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultGateCapacity matches the external backend's concurrency limit.
const DefaultGateCapacity = 2

// Gate is the global admission limiter: a counting semaphore bounding how
// many jobs run the external analysis call at once, across all users.
// Waiters are admitted in FIFO order of arrival.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	inUse    atomic.Int64
}

// NewGate creates a gate with the given capacity. Non-positive capacities
// fall back to the default.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = DefaultGateCapacity
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is cancelled, then returns a
// token representing occupancy. The caller must release the token on every
// exit path.
func (g *Gate) Acquire(ctx context.Context) (*Token, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	g.inUse.Add(1)
	return &Token{gate: g}, nil
}

// TryAcquire returns a token without blocking, or nil if no slot is free.
func (g *Gate) TryAcquire() *Token {
	if !g.sem.TryAcquire(1) {
		return nil
	}
	g.inUse.Add(1)
	return &Token{gate: g}
}

// InUse returns the number of occupied slots.
func (g *Gate) InUse() int {
	return int(g.inUse.Load())
}

// Capacity returns the fixed slot count.
func (g *Gate) Capacity() int {
	return g.capacity
}

// Token is one unit of gate occupancy. Release is idempotent, so a token can
// never free more than one slot.
type Token struct {
	gate *Gate
	once sync.Once
}

// Release frees the slot and unblocks the next waiter. Safe to call more
// than once; only the first call has effect.
func (t *Token) Release() {
	t.once.Do(func() {
		t.gate.inUse.Add(-1)
		t.gate.sem.Release(1)
	})
}
