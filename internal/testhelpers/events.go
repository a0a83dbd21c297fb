package testhelpers

import (
	"sync"
	"testing"
	"time"

	"ninjanight/internal/events"
)

// Recorder is an events.Publisher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
	notify chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Publish(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of typ were recorded.
func (r *Recorder) Count(typ events.Type) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// Last returns the newest event of typ.
func (r *Recorder) Last(typ events.Type) (events.Event, bool) {
	evs := r.Events()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return evs[i], true
		}
	}
	return events.Event{}, false
}

// WaitFor blocks until an event of typ matching pred (nil matches all) has
// been recorded, failing the test after timeout.
func (r *Recorder) WaitFor(t *testing.T, typ events.Type, pred func(events.Event) bool, timeout time.Duration) events.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		for _, ev := range r.Events() {
			if ev.Type == typ && (pred == nil || pred(ev)) {
				return ev
			}
		}
		select {
		case <-r.notify:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", typ)
			return events.Event{}
		}
	}
}

// Eventually polls cond until it holds, failing the test after timeout.
func Eventually(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", msg)
}
