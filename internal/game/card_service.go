package game

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// CardService holds a parsed card catalog.
type CardService struct {
	allCards []Card
}

// NewCardService parses a YAML catalog.
func NewCardService(yamlData []byte) (*CardService, error) {
	var collection CardCollection
	if err := yaml.Unmarshal(yamlData, &collection); err != nil {
		return nil, fmt.Errorf("failed to parse card catalog: %w", err)
	}

	service := &CardService{
		allCards: collection.Cards,
	}

	seen := make(map[string]bool, len(collection.Cards))
	for i := range service.allCards {
		card := &service.allCards[i]
		if err := card.Validate(); err != nil {
			return nil, err
		}
		if seen[card.ID] {
			return nil, fmt.Errorf("%w: duplicate card id %s", ErrInvalidData, card.ID)
		}
		seen[card.ID] = true
	}

	return service, nil
}

// Cards returns a copy of the whole catalog.
func (cs *CardService) Cards() []Card {
	out := make([]Card, len(cs.allCards))
	copy(out, cs.allCards)
	return out
}

// Count returns the catalog size.
func (cs *CardService) Count() int {
	return len(cs.allCards)
}
