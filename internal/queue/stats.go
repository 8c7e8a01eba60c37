package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// collector tracks queue counters with atomic operations.
type collector struct {
	submitted int64
	completed int64
	failed    int64
	rejected  int64
	cancelled int64

	processingNanos int64
	processedCount  int64

	byKind map[Kind]int64
	mu     sync.Mutex

	startTime time.Time
}

func newCollector() *collector {
	return &collector{
		byKind:    make(map[Kind]int64),
		startTime: time.Now(),
	}
}

func (c *collector) recordSubmit(kind Kind) {
	atomic.AddInt64(&c.submitted, 1)
	c.mu.Lock()
	c.byKind[kind]++
	c.mu.Unlock()
}

func (c *collector) recordCompleted(processing time.Duration) {
	atomic.AddInt64(&c.completed, 1)
	atomic.AddInt64(&c.processingNanos, int64(processing))
	atomic.AddInt64(&c.processedCount, 1)
}

func (c *collector) recordFailed(processing time.Duration) {
	atomic.AddInt64(&c.failed, 1)
	if processing > 0 {
		atomic.AddInt64(&c.processingNanos, int64(processing))
		atomic.AddInt64(&c.processedCount, 1)
	}
}

func (c *collector) recordRejected() {
	atomic.AddInt64(&c.rejected, 1)
}

func (c *collector) recordCancelled() {
	atomic.AddInt64(&c.cancelled, 1)
}

// Stats is a point-in-time view of queue activity.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
	Cancelled int64 `json:"cancelled"`

	ActiveUsers  int `json:"active_users"`
	InFlight     int `json:"in_flight"`
	Backlog      int `json:"backlog"`
	GateInUse    int `json:"gate_in_use"`
	GateCapacity int `json:"gate_capacity"`

	ByKind map[Kind]int64 `json:"by_kind"`

	AvgProcessing time.Duration `json:"avg_processing_ns"`
	Uptime        time.Duration `json:"uptime_ns"`
}

func (c *collector) snapshot() Stats {
	st := Stats{
		Submitted: atomic.LoadInt64(&c.submitted),
		Completed: atomic.LoadInt64(&c.completed),
		Failed:    atomic.LoadInt64(&c.failed),
		Rejected:  atomic.LoadInt64(&c.rejected),
		Cancelled: atomic.LoadInt64(&c.cancelled),
		Uptime:    time.Since(c.startTime),
	}

	if n := atomic.LoadInt64(&c.processedCount); n > 0 {
		st.AvgProcessing = time.Duration(atomic.LoadInt64(&c.processingNanos) / n)
	}

	c.mu.Lock()
	st.ByKind = make(map[Kind]int64, len(c.byKind))
	for k, v := range c.byKind {
		st.ByKind[k] = v
	}
	c.mu.Unlock()

	return st
}
