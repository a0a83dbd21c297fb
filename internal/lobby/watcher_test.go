package lobby

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ninjanight/internal/game"
	"ninjanight/internal/store"
	"ninjanight/internal/testhelpers"
)

func TestWatcher_ReportsDeletionOnce(t *testing.T) {
	st := store.NewMemoryStore()
	roomID := testhelpers.SeedRoom(t, st, game.Room{InvitationCode: "12345678", HostID: "hanzo", MinCapacity: 1, MaxCapacity: 4})

	var calls atomic.Int32
	var got atomic.Value
	w := NewWatcher(st, zap.NewNop())
	require.NoError(t, w.Start(context.Background(), roomID, func(err error) {
		calls.Add(1)
		got.Store(err)
	}))
	defer w.Stop()

	require.NoError(t, st.Update(context.Background(), store.RoomPath(roomID), store.Data{"loadingMessage": "still here"}))
	require.NoError(t, st.Delete(context.Background(), store.RoomPath(roomID)))

	select {
	case <-w.gone:
	case <-time.After(time.Second):
		t.Fatal("room deletion not reported")
	}
	// Deleting again reports nothing more.
	require.NoError(t, st.Delete(context.Background(), store.RoomPath(roomID)))
	time.Sleep(30 * time.Millisecond)

	assert.EqualValues(t, 1, calls.Load())
	err, _ := got.Load().(error)
	assert.ErrorIs(t, err, game.ErrRoomNotExist)
	assert.Equal(t, game.KindNotFound, game.KindOf(err))
}

func TestWatcher_StopSuppressesReport(t *testing.T) {
	st := store.NewMemoryStore()
	roomID := testhelpers.SeedRoom(t, st, game.Room{InvitationCode: "12345678", HostID: "hanzo", MinCapacity: 1, MaxCapacity: 4})

	var calls atomic.Int32
	w := NewWatcher(st, zap.NewNop())
	require.NoError(t, w.Start(context.Background(), roomID, func(error) { calls.Add(1) }))
	w.Stop()
	w.Stop()

	require.NoError(t, st.Delete(context.Background(), store.RoomPath(roomID)))
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestWatcher_TransientErrorIsNotClosure(t *testing.T) {
	st := store.NewMemoryStore()
	roomID := testhelpers.SeedRoom(t, st, game.Room{InvitationCode: "12345678", HostID: "hanzo", MinCapacity: 1, MaxCapacity: 4})

	var calls atomic.Int32
	w := NewWatcher(st, zap.NewNop())
	require.NoError(t, w.Start(context.Background(), roomID, func(error) { calls.Add(1) }))
	defer w.Stop()

	// Closing the store ends the subscription without the room disappearing.
	require.NoError(t, st.Close())
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, calls.Load())
	select {
	case <-w.gone:
		t.Fatal("store shutdown reported as room closure")
	default:
	}
}
