// Package events carries what a lobby client tells its user interface.
package events

import (
	"time"

	"ninjanight/internal/game"
)

// Type names an event.
type Type string

const (
	JoinSucceeded     Type = "join_succeeded"
	PlayerListUpdated Type = "player_list_updated"
	RoomClosed        Type = "room_closed"
	RoomFull          Type = "room_full"
	SetupProgress     Type = "setup_progress"
	SetupComplete     Type = "setup_complete"
	Failure           Type = "error"
)

// Terminal reports whether t ends a phase of the lobby. A subscriber must
// not miss these.
func (t Type) Terminal() bool {
	return t == SetupComplete || t == RoomClosed
}

// Event is one client-visible notification. Only the fields relevant to
// Type are set.
type Event struct {
	Type     Type
	RoomID   string
	Players  []game.Player
	Gate     game.StartGate
	Progress float64
	Message  string
	Op       string
	Kind     game.Kind
	Err      error
	At       time.Time
}

func NewJoinSucceeded(roomID string, players []game.Player, gate game.StartGate) Event {
	return Event{Type: JoinSucceeded, RoomID: roomID, Players: players, Gate: gate, At: time.Now()}
}

func NewPlayerListUpdated(roomID string, players []game.Player, gate game.StartGate) Event {
	return Event{Type: PlayerListUpdated, RoomID: roomID, Players: players, Gate: gate, At: time.Now()}
}

func NewRoomClosed(roomID string) Event {
	return Event{
		Type:   RoomClosed,
		RoomID: roomID,
		Kind:   game.KindNotFound,
		Err:    game.ErrRoomNotExist,
		At:     time.Now(),
	}
}

func NewRoomFull(roomID string) Event {
	return Event{Type: RoomFull, RoomID: roomID, Kind: game.KindCapacity, Err: game.ErrRoomFull, At: time.Now()}
}

func NewSetupProgress(roomID string, progress float64, message string) Event {
	return Event{Type: SetupProgress, RoomID: roomID, Progress: progress, Message: message, At: time.Now()}
}

func NewSetupComplete(roomID, message string) Event {
	return Event{Type: SetupComplete, RoomID: roomID, Progress: 1.0, Message: message, At: time.Now()}
}

// NewFailure reports err from op, classified by its kind.
func NewFailure(roomID, op string, err error) Event {
	return Event{Type: Failure, RoomID: roomID, Op: op, Kind: game.KindOf(err), Err: err, At: time.Now()}
}

// Publisher accepts events for one client.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
