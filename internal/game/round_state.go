package game

import "fmt"

// FirstRoundKey keys the round state written by setup.
const FirstRoundKey = "Round_1"

// RoundKey returns the document key of a round's state.
func RoundKey(round int) string {
	return fmt.Sprintf("Round_%d", round)
}

// RoundState is one player's state for one round.
type RoundState struct {
	Faction           string   `json:"faction"`
	IsFactionRevealed bool     `json:"isFactionRevealed"`
	CurrentHand       []string `json:"currentHand"`
	IsAlive           bool     `json:"isAlive"`
}
