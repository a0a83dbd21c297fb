package game

import "fmt"

// CardType is the role a card plays in a round.
type CardType string

const (
	CardSpy           CardType = "spy"
	CardHermit        CardType = "hermit"
	CardLiar          CardType = "liar"
	CardBlindAssassin CardType = "blindAssassin"
	CardJonin         CardType = "jonin"
	CardCounterattack CardType = "counterattack"
	CardSpecial       CardType = "special"
)

var cardTypes = []CardType{
	CardSpy, CardHermit, CardLiar, CardBlindAssassin, CardJonin, CardCounterattack, CardSpecial,
}

func (t CardType) Valid() bool {
	for _, known := range cardTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Card is a catalog entry, stored at DeckSetting/{id}.
type Card struct {
	ID     string   `json:"-" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Level  int      `json:"level" yaml:"level"`
	Type   CardType `json:"type" yaml:"type"`
	Detail string   `json:"detail" yaml:"detail"`
}

// CardCollection represents the full YAML catalog
type CardCollection struct {
	Version int    `yaml:"version"`
	Cards   []Card `yaml:"cards"`
}

// Validate checks that the card can be stored and dealt.
func (c *Card) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: card %q has no id", ErrInvalidData, c.Name)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: card %s has no name", ErrInvalidData, c.ID)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: card %s has unknown type %q", ErrInvalidData, c.ID, c.Type)
	}
	if c.Level < 0 {
		return fmt.Errorf("%w: card %s has negative level", ErrInvalidData, c.ID)
	}
	return nil
}

// CardIDs returns the identifiers of cards in order.
func CardIDs(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}
