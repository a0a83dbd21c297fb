package game

import (
	"fmt"
	"time"

	"ninjanight/internal/store"
)

// Player is a membership record, stored at RoomList/{roomID}/RoomPlayerList/{name}.
type Player struct {
	Name          string    `json:"name"`
	IsReady       bool      `json:"isReady"`
	IsOnline      bool      `json:"isOnline"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	Score         int       `json:"score"`
}

// NewPlayer creates the record a client writes when it joins.
func NewPlayer(name string, ready bool, now time.Time) *Player {
	return &Player{
		Name:          name,
		IsReady:       ready,
		IsOnline:      true,
		LastHeartbeat: now,
	}
}

// PlayerFromDocument decodes a membership record. The document key is the
// player name.
func PlayerFromDocument(doc store.Document) (Player, error) {
	var p Player
	if err := doc.Decode(&p); err != nil {
		return Player{}, fmt.Errorf("%w: player %s: %v", ErrInvalidData, doc.ID, err)
	}
	if p.Name == "" {
		p.Name = doc.ID
	}
	return p, nil
}

// PlayersFromDocuments decodes a player list snapshot, keeping its order.
func PlayersFromDocuments(docs []store.Document) ([]Player, error) {
	players := make([]Player, 0, len(docs))
	for _, doc := range docs {
		p, err := PlayerFromDocument(doc)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}
