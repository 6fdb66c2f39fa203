// internal/progress/tracker.go
// Completed-task counter shared by scan workers

package progress

import "sync/atomic"

// Tracker counts completed tasks. Increment and Snapshot never block
// each other.
type Tracker struct {
	completed atomic.Int64
	total     int64
}

// New creates a tracker for total tasks
func New(total int64) *Tracker {
	if total < 0 {
		total = 0
	}
	return &Tracker{total: total}
}

// Increment records one completed task. Calls past total are ignored so
// the counter never exceeds it.
func (t *Tracker) Increment() {
	for {
		cur := t.completed.Load()
		if cur >= t.total {
			return
		}
		if t.completed.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Snapshot returns the completed and total task counts
func (t *Tracker) Snapshot() (completed, total int64) {
	return t.completed.Load(), t.total
}
