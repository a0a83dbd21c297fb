package setup

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ninjanight/internal/events"
	"ninjanight/internal/game"
	"ninjanight/internal/store"
)

var errSubscriptionEnded = errors.New("room subscription ended")

// Follow mirrors the host's setup progress from the room document until it
// reaches 1.0, then publishes SetupComplete once and returns. It never writes
// to the store.
func (o *Orchestrator) Follow(ctx context.Context, roomID string) error {
	const op = "follow setup"
	watch, err := o.store.WatchDocument(ctx, store.RoomPath(roomID))
	if err != nil {
		return game.FromStore(op, err)
	}
	defer watch.Stop()

	lastProgress, lastMessage := 0.0, ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watch.Events():
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return game.E(game.KindTransient, op, errSubscriptionEnded)
			}
			if ev.Err != nil {
				err := game.FromStore(op, ev.Err)
				o.log.Warn("setup progress read failed", zap.String("room_id", roomID), zap.Error(err))
				o.pub.Publish(events.NewFailure(roomID, op, err))
				continue
			}
			if !ev.Exists {
				err := game.E(game.KindNotFound, op, game.ErrRoomNotExist)
				o.pub.Publish(events.NewRoomClosed(roomID))
				return err
			}

			room, err := game.RoomFromDocument(ev.Document)
			if err != nil {
				o.log.Warn("undecodable room", zap.String("room_id", roomID), zap.Error(err))
				continue
			}
			if room.CurrentSettingProgress != lastProgress || room.LoadingMessage != lastMessage {
				lastProgress, lastMessage = room.CurrentSettingProgress, room.LoadingMessage
				o.pub.Publish(events.NewSetupProgress(roomID, lastProgress, lastMessage))
			}
			if room.SetupDone() {
				o.pub.Publish(events.NewSetupComplete(roomID, room.LoadingMessage))
				o.log.Info("followed setup to completion", zap.String("room_id", roomID))
				return nil
			}
		}
	}
}
