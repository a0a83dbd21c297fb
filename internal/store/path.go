package store

import (
	"fmt"
	"strings"
)

// Collection names used by the lobby.
const (
	RoomsCollection       = "RoomList"
	PlayersCollection     = "RoomPlayerList"
	RoundStatesCollection = "PlayerRoundStateList"
	CardsCollection       = "DeckSetting"
)

// Path addresses a document or a collection. Paths alternate collection and
// document segments, so a document path always has an even number of
// segments: "RoomList/abc" is a document, "RoomList/abc/RoomPlayerList" is a
// collection.
type Path string

// Segments returns the non-empty segments of the path.
func (p Path) Segments() []string {
	parts := strings.Split(string(p), "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsDocument reports whether p addresses a document.
func (p Path) IsDocument() bool {
	n := len(p.Segments())
	return n > 0 && n%2 == 0
}

// IsCollection reports whether p addresses a collection.
func (p Path) IsCollection() bool {
	return len(p.Segments())%2 == 1
}

// ID returns the last segment.
func (p Path) ID() string {
	segs := p.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Parent returns the enclosing collection of a document, or the enclosing
// document of a collection. The parent of a top-level collection is "".
func (p Path) Parent() Path {
	segs := p.Segments()
	if len(segs) <= 1 {
		return ""
	}
	return Path(strings.Join(segs[:len(segs)-1], "/"))
}

// Child appends a segment.
func (p Path) Child(segment string) Path {
	if p == "" {
		return Path(segment)
	}
	return Path(string(p) + "/" + segment)
}

// Contains reports whether other lies strictly below p.
func (p Path) Contains(other Path) bool {
	return strings.HasPrefix(string(other), string(p)+"/")
}

func (p Path) String() string { return string(p) }

func validSegment(s string) error {
	if s == "" {
		return fmt.Errorf("empty path segment")
	}
	if strings.Contains(s, "/") {
		return fmt.Errorf("path segment %q contains '/'", s)
	}
	return nil
}

// RoomsPath is the collection of all rooms.
func RoomsPath() Path { return Path(RoomsCollection) }

// RoomPath addresses a room document.
func RoomPath(roomID string) Path { return RoomsPath().Child(roomID) }

// PlayersPath addresses the membership collection of a room.
func PlayersPath(roomID string) Path { return RoomPath(roomID).Child(PlayersCollection) }

// PlayerPath addresses one player's membership record.
func PlayerPath(roomID, playerName string) Path { return PlayersPath(roomID).Child(playerName) }

// RoundStatesPath addresses the round state collection of one player.
func RoundStatesPath(roomID, playerName string) Path {
	return PlayerPath(roomID, playerName).Child(RoundStatesCollection)
}

// RoundStatePath addresses one round state record.
func RoundStatePath(roomID, playerName, roundKey string) Path {
	return RoundStatesPath(roomID, playerName).Child(roundKey)
}

// CardsPath is the card catalog collection.
func CardsPath() Path { return Path(CardsCollection) }

// CardPath addresses one catalog card.
func CardPath(cardID string) Path { return CardsPath().Child(cardID) }

// ValidateDocumentPath checks that p is a well-formed document path.
func ValidateDocumentPath(p Path) error {
	if !p.IsDocument() {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, p)
	}
	for _, s := range strings.Split(string(p), "/") {
		if err := validSegment(s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
	}
	return nil
}

// ValidateCollectionPath checks that p is a well-formed collection path.
func ValidateCollectionPath(p Path) error {
	if !p.IsCollection() {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, p)
	}
	for _, s := range strings.Split(string(p), "/") {
		if err := validSegment(s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
	}
	return nil
}
