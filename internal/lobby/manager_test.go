package lobby

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ninjanight/internal/events"
	"ninjanight/internal/game"
	"ninjanight/internal/store"
	"ninjanight/internal/testhelpers"
)

var testStart = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

type client struct {
	*Manager
	events *testhelpers.Recorder
}

func newClient(t *testing.T, st store.Store, clock *testhelpers.Clock, name string) *client {
	t.Helper()
	rec := testhelpers.NewRecorder()
	m := NewManager(name, st, rec, zap.NewNop(),
		WithClock(clock.Now),
		WithHeartbeatInterval(20*time.Millisecond))
	t.Cleanup(m.Close)
	return &client{Manager: m, events: rec}
}

func seedRoom(t *testing.T, st store.Store, host string, maxCapacity int) (string, string) {
	t.Helper()
	code := fmt.Sprintf("1%07d", len(host)*7919%10000000)
	id := testhelpers.SeedRoom(t, st, game.Room{
		InvitationCode: code,
		Name:           host + "'s room",
		HostID:         host,
		MinCapacity:    1,
		MaxCapacity:    maxCapacity,
		CurrentPhase:   game.PhaseDraft,
	})
	return id, code
}

func TestJoinRoom_HostStartsReady(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	roomID, code := seedRoom(t, st, "hanzo", 5)

	host := newClient(t, st, clock, "hanzo")
	players, err := host.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.True(t, players[0].IsReady)
	assert.True(t, players[0].IsOnline)
	assert.True(t, host.IsHost())

	guest := newClient(t, st, clock, "kaede")
	players, err = guest.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.False(t, guest.IsHost())
	assert.False(t, guest.IsReady())

	ev, ok := guest.events.Last(events.JoinSucceeded)
	require.True(t, ok)
	assert.Equal(t, roomID, ev.RoomID)
	assert.Len(t, ev.Players, 2)
}

func TestJoinRoom_Idempotent(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	roomID, code := seedRoom(t, st, "hanzo", 5)

	c := newClient(t, st, clock, "kaede")
	_, err := c.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
	_, err = c.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)

	// A fresh client with the same identity upserts the same record.
	again := newClient(t, st, clock, "kaede")
	_, err = again.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)

	players := testhelpers.LoadPlayers(t, st, roomID)
	require.Len(t, players, 1)
	assert.Equal(t, "kaede", players[0].Name)
}

func TestJoinRoom_Errors(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	_, code := seedRoom(t, st, "hanzo", 2)
	privateID := testhelpers.SeedRoom(t, st, game.Room{
		InvitationCode: "87654321",
		HostID:         "hanzo",
		MinCapacity:    1,
		MaxCapacity:    4,
		IsPrivate:      true,
		Password:       "shuriken",
	})

	tests := []struct {
		name     string
		code     string
		password string
		wantErr  error
		wantKind game.Kind
	}{
		{"empty code", "", "", game.ErrEmptyInvitationCode, game.KindInvalidInput},
		{"unknown code", "99999999", "", game.ErrRoomNotFound, game.KindNotFound},
		{"wrong password", "87654321", "kunai", game.ErrWrongPassword, game.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, st, clock, "kaede")
			_, err := c.JoinRoom(context.Background(), tt.code, tt.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, game.KindOf(err))
			assert.Nil(t, c.Room())
		})
	}

	t.Run("right password", func(t *testing.T) {
		c := newClient(t, st, clock, "kaede")
		_, err := c.JoinRoom(context.Background(), "87654321", "shuriken")
		require.NoError(t, err)
		assert.Equal(t, privateID, c.Room().ID)
	})

	t.Run("other room while joined", func(t *testing.T) {
		c := newClient(t, st, clock, "sasuke")
		_, err := c.JoinRoom(context.Background(), code, "")
		require.NoError(t, err)
		_, err = c.JoinRoom(context.Background(), "87654321", "shuriken")
		assert.ErrorIs(t, err, game.ErrAlreadyJoined)
		assert.Equal(t, game.KindPrecondition, game.KindOf(err))
	})
}

func TestJoinRoom_Full(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	roomID, code := seedRoom(t, st, "hanzo", 2)
	testhelpers.SeedPlayer(t, st, roomID, *game.NewPlayer("hanzo", true, testStart))
	testhelpers.SeedPlayer(t, st, roomID, *game.NewPlayer("kaede", false, testStart))

	late := newClient(t, st, clock, "sasuke")
	_, err := late.JoinRoom(context.Background(), code, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, game.ErrRoomFull)
	assert.Equal(t, game.KindCapacity, game.KindOf(err))
	assert.Equal(t, 1, late.events.Count(events.RoomFull))
	assert.Len(t, testhelpers.LoadPlayers(t, st, roomID), 2, "no record written for a rejected join")

	// A member reconnecting to a full room is not rejected.
	member := newClient(t, st, clock, "kaede")
	_, err = member.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
}

func TestJoinRoom_StoreFailureIsTransient(t *testing.T) {
	mem := store.NewMemoryStore()
	st := testhelpers.NewFlakyStore(mem)
	clock := testhelpers.NewClock(testStart)
	_, code := seedRoom(t, mem, "hanzo", 4)

	st.Fail("put", 1, errors.New("connection reset"))
	c := newClient(t, st, clock, "kaede")
	_, err := c.JoinRoom(context.Background(), code, "")
	require.Error(t, err)
	assert.Equal(t, game.KindTransient, game.KindOf(err))
	assert.Nil(t, c.Room())
}

func TestToggleReady_WritesOnlyOwnRecord(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	roomID, code := seedRoom(t, st, "hanzo", 5)

	host := newClient(t, st, clock, "hanzo")
	_, err := host.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
	guest := newClient(t, st, clock, "kaede")
	_, err = guest.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)

	ready, err := guest.ToggleReady(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)

	byName := map[string]game.Player{}
	for _, p := range testhelpers.LoadPlayers(t, st, roomID) {
		byName[p.Name] = p
	}
	assert.True(t, byName["kaede"].IsReady)
	assert.True(t, byName["hanzo"].IsReady)

	ready, err = guest.ToggleReady(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)

	testhelpers.Eventually(t, func() bool {
		for _, p := range host.Players() {
			if p.Name == "kaede" {
				return !p.IsReady
			}
		}
		return false
	}, time.Second, "host never saw kaede unready")
}

func TestToggleReady_NotJoined(t *testing.T) {
	c := newClient(t, store.NewMemoryStore(), testhelpers.NewClock(testStart), "kaede")
	_, err := c.ToggleReady(context.Background())
	assert.ErrorIs(t, err, game.ErrNotJoined)
}

func TestPlayerList_Replicates(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	_, code := seedRoom(t, st, "hanzo", 5)

	host := newClient(t, st, clock, "hanzo")
	_, err := host.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)

	guest := newClient(t, st, clock, "kaede")
	_, err = guest.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)

	host.events.WaitFor(t, events.PlayerListUpdated, func(ev events.Event) bool {
		return len(ev.Players) == 2
	}, time.Second)

	require.NoError(t, guest.LeaveRoom(context.Background()))
	host.events.WaitFor(t, events.PlayerListUpdated, func(ev events.Event) bool {
		return len(ev.Players) == 1 && ev.Players[0].Name == "hanzo"
	}, time.Second)
	assert.NotNil(t, host.Room(), "a guest leaving never closes the room")
}

// Five players join a room of five, all ready, all heartbeats fresh.
func TestScenario_AllReadyCanStart(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	_, code := seedRoom(t, st, "p0", 5)

	clients := make([]*client, 5)
	for i := range clients {
		clients[i] = newClient(t, st, clock, fmt.Sprintf("p%d", i))
		_, err := clients[i].JoinRoom(context.Background(), code, "")
		require.NoError(t, err)
	}
	for _, c := range clients[1:] {
		_, err := c.ToggleReady(context.Background())
		require.NoError(t, err)
	}

	host := clients[0]
	ev := host.events.WaitFor(t, events.PlayerListUpdated, func(ev events.Event) bool {
		return ev.Gate.CanStart
	}, 2*time.Second)
	assert.Equal(t, 5, ev.Gate.PlayerCount)
	assert.True(t, ev.Gate.AllReady)
	assert.True(t, ev.Gate.AllAlive)
	assert.True(t, ev.Gate.WithinCapacity)
	assert.True(t, host.Gate().CanStart)
}

// Same as above, but one player's heartbeat is 40s old.
func TestScenario_StaleHeartbeatBlocksStart(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	roomID, code := seedRoom(t, st, "p0", 5)

	clients := make([]*client, 4)
	for i := range clients {
		clients[i] = newClient(t, st, clock, fmt.Sprintf("p%d", i))
		_, err := clients[i].JoinRoom(context.Background(), code, "")
		require.NoError(t, err)
	}
	for _, c := range clients[1:] {
		_, err := c.ToggleReady(context.Background())
		require.NoError(t, err)
	}
	stale := game.NewPlayer("p4", true, testStart.Add(-40*time.Second))
	testhelpers.SeedPlayer(t, st, roomID, *stale)

	host := clients[0]
	ev := host.events.WaitFor(t, events.PlayerListUpdated, func(ev events.Event) bool {
		return ev.Gate.PlayerCount == 5 && ev.Gate.AllReady
	}, 2*time.Second)
	assert.False(t, ev.Gate.AllAlive)
	assert.True(t, ev.Gate.WithinCapacity)
	assert.False(t, ev.Gate.CanStart)
	assert.False(t, host.Gate().CanStart)
}

func TestLeaveRoom_HostClosesRoom(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	roomID, code := seedRoom(t, st, "hanzo", 5)

	host := newClient(t, st, clock, "hanzo")
	_, err := host.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
	guests := []*client{newClient(t, st, clock, "kaede"), newClient(t, st, clock, "sasuke")}
	for _, g := range guests {
		_, err := g.JoinRoom(context.Background(), code, "")
		require.NoError(t, err)
	}

	require.NoError(t, host.LeaveRoom(context.Background()))

	_, err = st.Get(context.Background(), store.RoomPath(roomID))
	assert.True(t, store.IsNotFound(err))
	assert.Empty(t, testhelpers.LoadPlayers(t, st, roomID))

	for _, g := range guests {
		ev := g.events.WaitFor(t, events.RoomClosed, nil, time.Second)
		assert.ErrorIs(t, ev.Err, game.ErrRoomNotExist)
		assert.Equal(t, game.KindNotFound, ev.Kind)
		testhelpers.Eventually(t, func() bool { return g.Room() == nil }, time.Second, "guest session not torn down")
	}

	time.Sleep(50 * time.Millisecond)
	for _, g := range guests {
		assert.Equal(t, 1, g.events.Count(events.RoomClosed))
	}
	assert.Zero(t, host.events.Count(events.RoomClosed), "the host is not told about its own leave")
	assert.Nil(t, host.Room())
}

func TestLeaveRoom_GuestDeletesOnlyOwnRecord(t *testing.T) {
	st := store.NewMemoryStore()
	clock := testhelpers.NewClock(testStart)
	roomID, code := seedRoom(t, st, "hanzo", 5)

	guest := newClient(t, st, clock, "kaede")
	_, err := guest.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
	require.NoError(t, guest.LeaveRoom(context.Background()))

	room := testhelpers.LoadRoom(t, st, roomID)
	assert.Equal(t, roomID, room.ID, "an empty room stays until its host leaves")
	assert.Empty(t, testhelpers.LoadPlayers(t, st, roomID))

	err = guest.LeaveRoom(context.Background())
	assert.ErrorIs(t, err, game.ErrNotJoined)
}

func TestLeaveRoom_StopsHeartbeats(t *testing.T) {
	st := testhelpers.NewFlakyStore(store.NewMemoryStore())
	clock := testhelpers.NewClock(testStart)
	_, code := seedRoom(t, st, "hanzo", 5)

	guest := newClient(t, st, clock, "kaede")
	_, err := guest.JoinRoom(context.Background(), code, "")
	require.NoError(t, err)
	testhelpers.Eventually(t, func() bool { return st.Calls("update") > 0 }, time.Second, "no heartbeat written")

	require.NoError(t, guest.LeaveRoom(context.Background()))
	calls := st.Calls("update")
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, calls, st.Calls("update"))
}
