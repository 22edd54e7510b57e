package menu

import (
	"sync"
	"sync/atomic"
	"time"
)

// deadline is one scheduled piece of engine work: a drag expiration, a title
// refresh or an auto-save. Fired on the engine tick, never via blocking
// waits.
type deadline struct {
	at time.Time
	fn func()

	// cancelled deadlines are skipped and compacted away
	cancelled atomic.Bool

	// index is the heap index for efficient removal
	index int
}

// Cancel marks the deadline so it never fires.
func (d *deadline) Cancel() {
	d.cancelled.Store(true)
}

// deadlineQueue is a binary-heap priority queue of deadlines, ordered by
// firing time.
type deadlineQueue struct {
	mu   sync.Mutex
	heap []*deadline
}

func newDeadlineQueue() *deadlineQueue {
	return &deadlineQueue{heap: make([]*deadline, 0, 64)}
}

// Schedule queues fn to fire once at the given time.
func (q *deadlineQueue) Schedule(at time.Time, fn func()) *deadline {
	d := &deadline{at: at, fn: fn}
	q.mu.Lock()
	if len(q.heap) > 100 && len(q.heap)%100 == 0 {
		q.compact()
	}
	d.index = len(q.heap)
	q.heap = append(q.heap, d)
	q.up(d.index)
	q.mu.Unlock()
	return d
}

// PopDue removes and returns all deadlines with at <= now, skipping cancelled
// ones.
func (q *deadlineQueue) PopDue(now time.Time) []*deadline {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*deadline
	for len(q.heap) > 0 {
		top := q.heap[0]
		if top.at.After(now) {
			break
		}
		q.removeTop()
		if top.cancelled.Load() {
			continue
		}
		due = append(due, top)
	}
	return due
}

// Len returns the number of queued deadlines, cancelled included.
func (q *deadlineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// compact drops cancelled deadlines and rebuilds the heap. Caller must hold
// the lock.
func (q *deadlineQueue) compact() {
	write := 0
	for read := 0; read < len(q.heap); read++ {
		if !q.heap[read].cancelled.Load() {
			q.heap[write] = q.heap[read]
			q.heap[write].index = write
			write++
		}
	}
	for i := write; i < len(q.heap); i++ {
		q.heap[i] = nil
	}
	q.heap = q.heap[:write]

	for i := len(q.heap)/2 - 1; i >= 0; i-- {
		q.down(i, len(q.heap))
	}
}

// removeTop removes the heap root. Caller must hold the lock.
func (q *deadlineQueue) removeTop() {
	n := len(q.heap) - 1
	q.swap(0, n)
	q.heap[n] = nil
	q.heap = q.heap[:n]
	if n > 0 {
		q.down(0, n)
	}
}

func (q *deadlineQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.heap[i].at.Before(q.heap[parent].at) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *deadlineQueue) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && q.heap[right].at.Before(q.heap[left].at) {
			smallest = right
		}
		if !q.heap[smallest].at.Before(q.heap[i].at) {
			break
		}
		q.swap(i, smallest)
		i = smallest
	}
}

func (q *deadlineQueue) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.heap[i].index = i
	q.heap[j].index = j
}
