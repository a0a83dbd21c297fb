package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninjanight/internal/store"
)

func TestRoomFromDocument(t *testing.T) {
	created := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)
	data, err := store.Encode(Room{
		ID:             "ignored",
		InvitationCode: "12345678",
		Name:           "Moonlit Dojo",
		HostID:         "kaede",
		MinCapacity:    3,
		MaxCapacity:    5,
		CurrentPhase:   PhaseDraft,
		CreatedAt:      created,
	})
	require.NoError(t, err)
	assert.NotContains(t, data, "ID")

	room, err := RoomFromDocument(store.Document{ID: "room-1", Path: store.RoomPath("room-1"), Data: data})
	require.NoError(t, err)

	assert.Equal(t, "room-1", room.ID)
	assert.Equal(t, "12345678", room.InvitationCode)
	assert.Equal(t, 5, room.MaxCapacity)
	assert.Equal(t, PhaseDraft, room.CurrentPhase)
	assert.True(t, created.Equal(room.CreatedAt))
	assert.True(t, room.IsHost("kaede"))
	assert.False(t, room.IsHost("ren"))
}

func TestRoomCheckPassword(t *testing.T) {
	public := &Room{}
	assert.True(t, public.CheckPassword("anything"))

	private := &Room{IsPrivate: true, Password: "shuriken"}
	assert.True(t, private.CheckPassword("shuriken"))
	assert.False(t, private.CheckPassword("Shuriken"))
	assert.False(t, private.CheckPassword(""))
}

func TestRoomSetupDone(t *testing.T) {
	r := &Room{CurrentSettingProgress: 0.9}
	assert.False(t, r.SetupDone())
	r.CurrentSettingProgress = 1.0
	assert.True(t, r.SetupDone())
}

func TestRoomSettingsValidate(t *testing.T) {
	valid := RoomSettings{Name: "dojo", HostID: "kaede", MinCapacity: 3, MaxCapacity: 5}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*RoomSettings)
		want   error
	}{
		{"no host", func(s *RoomSettings) { s.HostID = "" }, ErrInvalidData},
		{"zero min", func(s *RoomSettings) { s.MinCapacity = 0 }, ErrInvalidPlayerCount},
		{"max below min", func(s *RoomSettings) { s.MaxCapacity = 2 }, ErrInvalidPlayerCount},
		{"private without password", func(s *RoomSettings) { s.IsPrivate = true }, ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestSummarize(t *testing.T) {
	r := &Room{ID: "r", MaxCapacity: 4}
	assert.False(t, Summarize(r, 3).IsFull)
	s := Summarize(r, 4)
	assert.True(t, s.IsFull)
	assert.Equal(t, 4, s.CurrentPlayerCount)
}

func TestGamePhase(t *testing.T) {
	assert.True(t, PhaseJonin.Valid())
	assert.False(t, GamePhase("lunch").Valid())
	assert.Equal(t, PhaseSpy, PhaseDraft.Next())
	assert.Equal(t, PhaseDraft, PhaseReveal.Next())
}
