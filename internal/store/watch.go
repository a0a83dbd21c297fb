package store

import (
	"context"
	"sync"
)

// Watch is a standing subscription. Events holds at most one undelivered
// snapshot: a newer snapshot replaces an older one the consumer has not read
// yet, so a slow consumer always catches up to the latest state. The channel
// is closed when the watch stops.
type Watch[T any] struct {
	ch     chan T
	done   chan struct{}
	mu     sync.Mutex
	closed bool
	once   sync.Once
	onStop func()
}

func newWatch[T any](onStop func()) *Watch[T] {
	return &Watch[T]{
		ch:     make(chan T, 1),
		done:   make(chan struct{}),
		onStop: onStop,
	}
}

// Events returns the snapshot channel.
func (w *Watch[T]) Events() <-chan T { return w.ch }

// Done is closed once the watch has stopped.
func (w *Watch[T]) Done() <-chan struct{} { return w.done }

// Stop releases the subscription. It is safe to call more than once.
func (w *Watch[T]) Stop() {
	w.once.Do(func() {
		if w.onStop != nil {
			w.onStop()
		}
		w.mu.Lock()
		w.closed = true
		close(w.ch)
		w.mu.Unlock()
		close(w.done)
	})
}

// stopWith stops the watch when ctx is done.
func (w *Watch[T]) stopWith(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.done:
		}
	}()
}

// deliver never blocks: it drops the pending snapshot in favour of v.
func (w *Watch[T]) deliver(v T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.ch <- v:
		return true
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- v
	return true
}
