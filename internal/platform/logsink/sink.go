// Package logsink is the bounded, ordered event channel between every running
// session and the single consumer that displays or stores the events.
//
// Producers never wait on the consumer: when the buffer is full the oldest
// pending event is evicted and counted. Events from one producer keep their
// relative order; events from different producers appear in arrival order.
// Only one goroutine may read at a time.
package logsink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"engagectl/internal/platform/metrics"
)

const DefaultCapacity = 1000

var ErrClosed = errors.New("log sink closed")

type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Success
)

var severityNames = map[Severity]string{
	Info:    "INFO",
	Warning: "WARNING",
	Error:   "ERROR",
	Success: "SUCCESS",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Event is an immutable log line. Session is empty for system-level events.
type Event struct {
	Time     time.Time
	Severity Severity
	Session  string
	Message  string
}

func (e Event) String() string {
	who := e.Session
	if who == "" {
		who = "system"
	}
	return fmt.Sprintf("[%s] %-7s %s: %s", e.Time.Format("15:04:05"), e.Severity, who, e.Message)
}

type Sink struct {
	mu      sync.Mutex
	buf     []Event
	head    int
	count   int
	dropped uint64
	closed  bool
	notify  chan struct{}
	done    chan struct{}
	now     func() time.Time
}

func New(capacity int) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Sink{
		buf:    make([]Event, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish enqueues ev, evicting the oldest pending event when full. A zero
// Time is stamped with the current time. It only fails once the sink is closed.
func (s *Sink) Publish(ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = s.now()
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	evicted := false
	if s.count == len(s.buf) {
		s.buf[s.head] = Event{}
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.dropped++
		evicted = true
	}
	s.buf[(s.head+s.count)%len(s.buf)] = ev
	s.count++
	s.mu.Unlock()

	if evicted {
		metrics.RecordSinkDrop()
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Publishf is a convenience over Publish for one session's messages.
func (s *Sink) Publishf(severity Severity, session, format string, args ...any) error {
	return s.Publish(Event{Severity: severity, Session: session, Message: fmt.Sprintf(format, args...)})
}

// Drain removes and returns every pending event without blocking.
func (s *Sink) Drain() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, s.count)
	for s.count > 0 {
		out = append(out, s.popLocked())
	}
	return out
}

// Next blocks until an event is available, ctx is done, or the sink is closed
// and empty. Pending events are still delivered after Close.
func (s *Sink) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.count > 0 {
			ev := s.popLocked()
			s.mu.Unlock()
			return ev, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return Event{}, ErrClosed
		}
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.done:
		case <-s.notify:
		}
	}
}

// Stream feeds events to fn until ctx is done or the sink is closed and drained.
func (s *Sink) Stream(ctx context.Context, fn func(Event)) error {
	for {
		ev, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		fn(ev)
	}
}

// Close is idempotent. It wakes a blocked reader and rejects later publishes.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *Sink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Sink) Capacity() int {
	return len(s.buf)
}

func (s *Sink) popLocked() Event {
	ev := s.buf[s.head]
	s.buf[s.head] = Event{}
	s.head = (s.head + 1) % len(s.buf)
	s.count--
	return ev
}
