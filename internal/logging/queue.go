package logging

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueCapacity bounds the dispatch queue when no capacity is
// configured.
const DefaultQueueCapacity = 10000

// dropReportInterval throttles the drop notices written to the last-resort
// channel after the first one.
const dropReportInterval = 1000

// Queue is the bounded FIFO between producers and the listener. Enqueue
// never blocks: when the queue is full, or already closed, the record is
// dropped and counted.
type Queue struct {
	ch      chan *Record
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64

	metrics *pipelineMetrics
	diag    *lastResort
}

// NewQueue creates a queue holding up to capacity records.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{ch: make(chan *Record, capacity)}
}

// Enqueue offers rec to the listener and reports whether it was accepted.
func (q *Queue) Enqueue(rec *Record) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop("closed")
		return false
	}
	select {
	case q.ch <- rec:
		q.metrics.recordEnqueued()
		return true
	default:
		q.drop("full")
		return false
	}
}

func (q *Queue) drop(reason string) {
	n := q.dropped.Add(1)
	q.metrics.recordDropped()
	if n == 1 || n%dropReportInterval == 0 {
		q.diag.printf("dispatch queue %s, %d records dropped so far", reason, n)
	}
}

// Dequeue blocks until a record is available. It returns false once the
// queue has been closed and fully drained.
func (q *Queue) Dequeue() (*Record, bool) {
	rec, ok := <-q.ch
	return rec, ok
}

// Close stops accepting records. Records already queued remain available
// to Dequeue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Dropped returns the number of records rejected so far.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of records waiting for the listener.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
