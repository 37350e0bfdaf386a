package dispatch

import "sync"

// QueueStats counts queue traffic. Both counters only grow.
type QueueStats struct {
	Pushed uint64
	Popped uint64
}

// Queue is a FIFO of events with a wake signal. The signal is a buffered
// channel of size one plus a flag; both are only touched under mu, so a push
// that races with the consumer's "queue is empty" check can never be lost.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	set    bool
	wake   chan struct{}
	pushed uint64
	popped uint64
}

// NewQueue returns an empty queue with the signal cleared.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends ev and raises the signal. It returns the queue depth.
func (q *Queue) Push(ev Event) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, ev)
	q.pushed++
	if !q.set {
		q.set = true
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	return len(q.items)
}

// Signal fires once per raise of the wake signal.
func (q *Queue) Signal() <-chan struct{} { return q.wake }

// Drain pops every queued event in FIFO order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	q.popped += uint64(len(out))
	return out
}

// ClearIfEmpty lowers the signal when, and only when, the queue is empty.
// The returned stats are taken under the same lock. When it returns false
// the caller must drain again before waiting on the signal.
func (q *Queue) ClearIfEmpty() (QueueStats, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := QueueStats{Pushed: q.pushed, Popped: q.popped}
	if len(q.items) > 0 {
		return stats, false
	}
	q.set = false
	return stats, true
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns the traffic counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{Pushed: q.pushed, Popped: q.popped}
}
