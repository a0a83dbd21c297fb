package game

import "fmt"

// makeCatalog creates n distinct cards cycling through the dealable types.
func makeCatalog(n int) []Card {
	types := []CardType{CardSpy, CardHermit, CardLiar, CardBlindAssassin, CardJonin}
	cards := make([]Card, n)
	for i := range cards {
		t := types[i%len(types)]
		cards[i] = Card{
			ID:    fmt.Sprintf("%s_%d", t, i),
			Name:  string(t),
			Level: i%6 + 1,
			Type:  t,
		}
	}
	return cards
}
