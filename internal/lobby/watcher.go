package lobby

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ninjanight/internal/game"
	"ninjanight/internal/store"
)

// Watcher reports when a room document disappears. A transient watch error
// is logged and never reported as a closed room.
type Watcher struct {
	store store.Store
	log   *zap.Logger

	mu      sync.Mutex
	watch   *store.Watch[store.DocumentEvent]
	stopped bool
	gone    chan struct{}
	once    sync.Once
}

func NewWatcher(st store.Store, log *zap.Logger) *Watcher {
	return &Watcher{store: st, log: log, gone: make(chan struct{})}
}

// Start subscribes to roomID. onGone runs at most once, with an error
// wrapping game.ErrRoomNotExist, when the room no longer exists.
func (w *Watcher) Start(ctx context.Context, roomID string, onGone func(error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watch != nil {
		return nil
	}

	watch, err := w.store.WatchDocument(ctx, store.RoomPath(roomID))
	if err != nil {
		return game.FromStore("watch room", err)
	}
	w.watch = watch

	go func() {
		for ev := range watch.Events() {
			if ev.Err != nil {
				w.log.Warn("room watch error", zap.String("room_id", roomID), zap.Error(ev.Err))
				continue
			}
			if ev.Exists || w.isStopped() {
				continue
			}
			w.once.Do(func() {
				close(w.gone)
				w.log.Info("room no longer exists", zap.String("room_id", roomID))
				if onGone != nil {
					onGone(game.E(game.KindNotFound, "watch room", game.ErrRoomNotExist))
				}
			})
			watch.Stop()
			return
		}
	}()
	return nil
}

// Stop ends the subscription without reporting anything. It does not wait
// for an in-flight onGone call.
func (w *Watcher) Stop() {
	w.mu.Lock()
	watch := w.watch
	w.stopped = true
	w.mu.Unlock()
	if watch != nil {
		watch.Stop()
	}
}

func (w *Watcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}
