package session

// Ring is a fixed-capacity FIFO buffer. Pushing onto a full ring evicts the
// oldest entry. All operations are O(1) except Items, which copies.
//
// Ring is not safe for concurrent use; callers hold their own locks.
type Ring[T any] struct {
	buf  []T
	head int
	size int
}

// NewRing creates a ring with the given capacity. Capacity must be positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf: make([]T, capacity),
	}
}

// Push appends v, evicting the oldest entry if the ring is full.
// It returns the evicted entry and whether an eviction happened.
func (r *Ring[T]) Push(v T) (T, bool) {
	var evicted T
	if r.size == len(r.buf) {
		evicted = r.buf[r.head]
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		return evicted, true
	}

	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
	return evicted, false
}

// Len returns the number of entries currently held.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Items returns the entries oldest-first as a fresh slice.
func (r *Ring[T]) Items() []T {
	items := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		items[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return items
}
