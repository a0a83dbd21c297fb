package game

import (
	"crypto/subtle"
	"fmt"
	"time"

	"ninjanight/internal/store"
)

// Room is one game session, stored at RoomList/{id}.
type Room struct {
	ID                     string    `json:"-"`
	InvitationCode         string    `json:"invitationCode"`
	Name                   string    `json:"name"`
	HostID                 string    `json:"hostID"`
	MinCapacity            int       `json:"minCapacity"`
	MaxCapacity            int       `json:"maxCapacity"`
	IsPrivate              bool      `json:"isPrivate"`
	Password               string    `json:"password"`
	CurrentSettingProgress float64   `json:"currentSettingProgress"`
	LoadingMessage         string    `json:"loadingMessage"`
	GameStarted            bool      `json:"gameStarted"`
	CurrentPhase           GamePhase `json:"currentPhase"`
	GameRound              int       `json:"gameRound"`
	CreatedAt              time.Time `json:"createdAt"`
}

// RoomSettings is what a host chooses when opening a room.
type RoomSettings struct {
	Name        string
	HostID      string
	MinCapacity int
	MaxCapacity int
	IsPrivate   bool
	Password    string
}

// Validate checks the capacity bounds and the private-room password.
func (s RoomSettings) Validate() error {
	if s.HostID == "" {
		return fmt.Errorf("%w: host id is required", ErrInvalidData)
	}
	if s.MinCapacity < 1 {
		return fmt.Errorf("%w: min capacity must be at least 1", ErrInvalidPlayerCount)
	}
	if s.MaxCapacity < s.MinCapacity {
		return fmt.Errorf("%w: max capacity %d is below min capacity %d", ErrInvalidPlayerCount, s.MaxCapacity, s.MinCapacity)
	}
	if s.IsPrivate && s.Password == "" {
		return fmt.Errorf("%w: private rooms need a password", ErrInvalidData)
	}
	return nil
}

// RoomFromDocument decodes a room snapshot, taking its ID from the document key.
func RoomFromDocument(doc store.Document) (*Room, error) {
	var r Room
	if err := doc.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: room %s: %v", ErrInvalidData, doc.ID, err)
	}
	r.ID = doc.ID
	return &r, nil
}

// IsHost reports whether identity owns the room.
func (r *Room) IsHost(identity string) bool {
	return r.HostID != "" && r.HostID == identity
}

// CheckPassword reports whether password admits the caller. Public rooms
// admit everyone.
func (r *Room) CheckPassword(password string) bool {
	if !r.IsPrivate {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(r.Password), []byte(password)) == 1
}

// SetupDone reports whether the host has finished setting up the game.
func (r *Room) SetupDone() bool {
	return r.CurrentSettingProgress >= 1.0
}

// RoomSummary is a room as listed by the directory.
type RoomSummary struct {
	Room
	CurrentPlayerCount int  `json:"currentPlayerCount"`
	IsFull             bool `json:"isFull"`
}

// Summarize pairs r with its current occupancy.
func Summarize(r *Room, playerCount int) RoomSummary {
	return RoomSummary{
		Room:               *r,
		CurrentPlayerCount: playerCount,
		IsFull:             playerCount >= r.MaxCapacity,
	}
}
