// Package presence keeps a player's membership record fresh while the
// client is connected.
package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ninjanight/internal/events"
	"ninjanight/internal/game"
	"ninjanight/internal/metrics"
	"ninjanight/internal/store"
)

// Tracker writes a heartbeat into the caller's own player record on a fixed
// period. It never touches another player's record.
type Tracker struct {
	store    store.Store
	pub      events.Publisher
	metrics  *metrics.Collector
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	path    store.Path
	roomID  string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval overrides the heartbeat period.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMetrics records heartbeat results.
func WithMetrics(m *metrics.Collector) Option {
	return func(t *Tracker) { t.metrics = m }
}

func NewTracker(st store.Store, pub events.Publisher, log *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:    st,
		pub:      pub,
		log:      log,
		interval: game.HeartbeatInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins heartbeating for playerName in roomID. Calling Start while the
// tracker is already running does nothing and returns false.
func (t *Tracker) Start(roomID, playerName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.running = true
	t.roomID = roomID
	t.path = store.PlayerPath(roomID, playerName)
	t.cancel = cancel
	t.done = make(chan struct{})

	go t.loop(ctx, t.path, t.roomID, t.done)
	t.log.Debug("heartbeat started", zap.String("room_id", roomID), zap.String("player", playerName))
	return true
}

// Stop ends the loop and waits for it to exit. It is safe to call when the
// tracker is not running.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, done, roomID := t.cancel, t.done, t.roomID
	t.running = false
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	<-done
	t.log.Debug("heartbeat stopped", zap.String("room_id", roomID))
}

func (t *Tracker) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tracker) loop(ctx context.Context, path store.Path, roomID string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.beat(ctx, path, roomID)
		}
	}
}

// beat reports a failed write and carries on; the next tick retries.
func (t *Tracker) beat(ctx context.Context, path store.Path, roomID string) {
	err := t.store.Update(ctx, path, store.Data{
		"lastHeartbeat": t.now(),
		"isOnline":      true,
	})
	if ctx.Err() != nil {
		return
	}
	t.metrics.Heartbeat(err)
	if err != nil {
		err = game.FromStore("heartbeat", err)
		t.log.Warn("heartbeat write failed", zap.String("path", path.String()), zap.Error(err))
		t.pub.Publish(events.NewFailure(roomID, "heartbeat", err))
	}
}
