package setup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninjanight/internal/events"
	"ninjanight/internal/game"
	"ninjanight/internal/store"
	"ninjanight/internal/testhelpers"
)

func setProgress(t *testing.T, st store.Store, roomID string, progress float64, msg string) {
	t.Helper()
	require.NoError(t, st.Update(context.Background(), store.RoomPath(roomID), store.Data{
		"currentSettingProgress": progress,
		"loadingMessage":         msg,
	}))
}

// A guest follows the host's run from 0.0 to 1.0 and sees one completion.
func TestRun_GuestFollowsHost(t *testing.T) {
	players := []string{"hanzo", "kaede", "sasuke", "tomoe"}
	fx := newFixture(t, store.NewMemoryStore(), players, 40)
	guestEvents := testhelpers.NewRecorder()

	done := make(chan error, 1)
	go func() {
		plan, err := newOrchestrator(fx.st, guestEvents).Run(context.Background(), fx.roomID, "kaede")
		assert.Nil(t, plan)
		done <- err
	}()
	guestEvents.WaitFor(t, events.SetupProgress, func(ev events.Event) bool {
		return ev.Message == MsgWaiting
	}, time.Second)

	_, err := newOrchestrator(fx.st, nil).Run(context.Background(), fx.roomID, "hanzo")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("guest never saw setup complete")
	}

	// The completed room is written again; nobody is listening any more.
	setProgress(t, fx.st, fx.roomID, 1.0, MsgComplete)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 1, guestEvents.Count(events.SetupComplete))
	last, ok := guestEvents.Last(events.SetupProgress)
	require.True(t, ok)
	assert.Equal(t, 1.0, last.Progress)
	for _, ev := range guestEvents.Events() {
		assert.NotEqual(t, events.Failure, ev.Type, "guest saw failure: %v", ev.Err)
	}

	for _, name := range players {
		_, ok := loadRoundState(t, fx.st, fx.roomID, name)
		assert.True(t, ok)
	}
}

func TestFollow_RepeatedCompletionReportsOnce(t *testing.T) {
	st := store.NewMemoryStore()
	roomID := testhelpers.SeedRoom(t, st, game.Room{InvitationCode: "16180339", HostID: "hanzo", MinCapacity: 1, MaxCapacity: 4})
	rec := testhelpers.NewRecorder()
	o := newOrchestrator(st, rec)

	done := make(chan error, 1)
	go func() { done <- o.Follow(context.Background(), roomID) }()

	setProgress(t, st, roomID, 0.3, MsgDeck)
	rec.WaitFor(t, events.SetupProgress, func(ev events.Event) bool { return ev.Progress == 0.3 }, time.Second)
	setProgress(t, st, roomID, 1.0, MsgComplete)
	setProgress(t, st, roomID, 1.0, MsgComplete+" ")
	setProgress(t, st, roomID, 1.0, MsgComplete)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("follow did not finish")
	}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.Count(events.SetupComplete))

	ev, _ := rec.Last(events.SetupComplete)
	assert.Equal(t, roomID, ev.RoomID)
	assert.Equal(t, 1.0, ev.Progress)
}

func TestFollow_AlreadyComplete(t *testing.T) {
	st := store.NewMemoryStore()
	roomID := testhelpers.SeedRoom(t, st, game.Room{
		InvitationCode:         "16180339",
		HostID:                 "hanzo",
		MinCapacity:            1,
		MaxCapacity:            4,
		CurrentSettingProgress: 1.0,
		LoadingMessage:         MsgComplete,
	})
	rec := testhelpers.NewRecorder()

	require.NoError(t, newOrchestrator(st, rec).Follow(context.Background(), roomID))
	assert.Equal(t, 1, rec.Count(events.SetupComplete))
}

func TestFollow_RoomDeleted(t *testing.T) {
	st := store.NewMemoryStore()
	roomID := testhelpers.SeedRoom(t, st, game.Room{InvitationCode: "16180339", HostID: "hanzo", MinCapacity: 1, MaxCapacity: 4})
	rec := testhelpers.NewRecorder()

	done := make(chan error, 1)
	go func() { done <- newOrchestrator(st, rec).Follow(context.Background(), roomID) }()
	setProgress(t, st, roomID, 0.6, MsgFactions)
	rec.WaitFor(t, events.SetupProgress, nil, time.Second)
	require.NoError(t, st.Delete(context.Background(), store.RoomPath(roomID)))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, game.ErrRoomNotExist)
		assert.Equal(t, game.KindNotFound, game.KindOf(err))
	case <-time.After(time.Second):
		t.Fatal("follow did not notice the room closing")
	}
	assert.Zero(t, rec.Count(events.SetupComplete))
	assert.Equal(t, 1, rec.Count(events.RoomClosed))
}

func TestFollow_Cancelled(t *testing.T) {
	st := store.NewMemoryStore()
	roomID := testhelpers.SeedRoom(t, st, game.Room{InvitationCode: "16180339", HostID: "hanzo", MinCapacity: 1, MaxCapacity: 4})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- newOrchestrator(st, nil).Follow(ctx, roomID) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("follow ignored cancellation")
	}
}
