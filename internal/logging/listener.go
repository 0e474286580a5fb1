package logging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrListenerStarted is returned by a second call to Listener.Start.
	ErrListenerStarted = errors.New("logging: listener already started")
	// ErrShutdownTimeout is returned when the listener could not drain the
	// queue before the shutdown deadline.
	ErrShutdownTimeout = errors.New("logging: shutdown timed out before queue drained")
)

// Listener is the single consumer of a Queue. It delivers every record to
// each sink that accepts it, in queue order.
type Listener struct {
	queue *Queue
	sinks []*Sink

	metrics *pipelineMetrics
	diag    *lastResort

	mu        sync.Mutex
	started   bool
	sinksDone bool
	done      chan struct{}
	abort     atomic.Bool
	discarded atomic.Uint64
}

// NewListener binds sinks to queue. Sink failures are reported on stderr.
func NewListener(queue *Queue, sinks []*Sink) *Listener {
	return &Listener{
		queue: queue,
		sinks: append([]*Sink(nil), sinks...),
		diag:  newLastResort(nil),
		done:  make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrListenerStarted
	}
	l.started = true
	go l.run()
	return nil
}

// Stop closes the queue and waits for the listener to deliver what was
// already queued. If ctx ends first the remaining records are discarded and
// ErrShutdownTimeout is returned.
func (l *Listener) Stop(ctx context.Context) error {
	l.queue.Close()

	l.mu.Lock()
	if !l.started {
		l.started = true
		l.mu.Unlock()
		l.closeSinks()
		close(l.done)
		return nil
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.abort.Store(true)
		pending := l.queue.Len()
		l.diag.printf("shutdown deadline reached, discarding %d queued records", pending)
		return fmt.Errorf("%w: %d records discarded", ErrShutdownTimeout, pending)
	}
}

// Done is closed once the listener has exited and released its sinks.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Discarded returns the number of records abandoned after a shutdown
// timeout.
func (l *Listener) Discarded() uint64 {
	return l.discarded.Load()
}

func (l *Listener) run() {
	defer close(l.done)
	defer l.closeSinks()

	for {
		rec, ok := l.queue.Dequeue()
		if !ok {
			return
		}
		if l.abort.Load() {
			l.discarded.Add(1)
			continue
		}
		l.dispatch(rec)
	}
}

func (l *Listener) dispatch(rec *Record) {
	for _, sink := range l.sinks {
		if !sink.Accepts(rec) {
			continue
		}
		if err := l.deliver(sink, rec); err != nil {
			l.metrics.recordSinkError(sink.Name)
			l.diag.printf("%v", err)
		}
	}
}

// deliver isolates a sink so that a failing renderer or destination cannot
// take the listener down.
func (l *Listener) deliver(sink *Sink, rec *Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s: panic: %v", sink.Name, r)
		}
	}()
	return sink.Write(rec)
}

func (l *Listener) closeSinks() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sinksDone {
		return
	}
	l.sinksDone = true
	for _, sink := range l.sinks {
		if err := sink.Close(); err != nil {
			l.diag.printf("%v", err)
		}
	}
}
