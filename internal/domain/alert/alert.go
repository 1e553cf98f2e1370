// Package alert turns externally observed match actions into transient
// operator alerts held in a small bounded queue.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NimnaKs/CG-COMPOSER/pkg/metrics"
)

// defaultCapacity bounds the queue when no option overrides it.
const defaultCapacity = 5

// Alert is one transient operator notification. Alerts live only in
// memory; they vanish on dismissal, eviction, or process restart.
type Alert struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Queue is a bounded alert queue ordered newest first. Inserting past
// capacity evicts the oldest (tail) entries.
type Queue struct {
	mu       sync.Mutex
	alerts   []Alert
	capacity int
}

// NewQueue creates a queue with configuration options.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push prepends a new alert and returns it. Entries past capacity are
// dropped from the tail.
func (q *Queue) Push(message string) Alert {
	a := Alert{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	q.mu.Lock()
	q.alerts = append([]Alert{a}, q.alerts...)
	for len(q.alerts) > q.capacity {
		q.alerts = q.alerts[:len(q.alerts)-1]
		metrics.RecordAlertEvicted()
	}
	depth := len(q.alerts)
	q.mu.Unlock()

	metrics.UpdateAlertQueueDepth(depth)
	return a
}

// Dismiss removes the alert with the given id. It reports whether an
// alert was removed; dismissing an unknown or already-evicted id is a
// no-op.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, a := range q.alerts {
		if a.ID == id {
			q.alerts = append(q.alerts[:i], q.alerts[i+1:]...)
			metrics.UpdateAlertQueueDepth(len(q.alerts))
			return true
		}
	}
	return false
}

// Snapshot returns the queued alerts, newest first.
func (q *Queue) Snapshot() []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Alert, len(q.alerts))
	copy(out, q.alerts)
	return out
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alerts)
}
