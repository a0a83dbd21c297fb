package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Generator builds the randomized parts of a game: the dealt deck, the
// faction deck and the honor-mark pool. The shape of every result depends
// only on its inputs; the order comes from the random source.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator uses src for shuffling, or a time-seeded source when src is nil.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(src)}
}

func (g *Generator) shuffle(n int, swap func(i, j int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(n, swap)
}

// DrawDeck draws playerCount*handSize distinct cards from catalog without
// replacement.
func (g *Generator) DrawDeck(catalog []Card, playerCount, handSize int) ([]Card, error) {
	if playerCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	if handSize <= 0 {
		return nil, fmt.Errorf("%w: hand size must be positive, got %d", ErrInvalidData, handSize)
	}
	required := playerCount * handSize
	if len(catalog) < required {
		return nil, fmt.Errorf("%w: need %d, catalog has %d", ErrInsufficientCards, required, len(catalog))
	}

	// Shuffle a private pool; catalog order is the caller's
	pool := make([]Card, len(catalog))
	copy(pool, catalog)
	g.shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:required], nil
}

// DistributeHands splits deck into playerCount contiguous hands of handSize.
func DistributeHands(deck []Card, playerCount, handSize int) ([][]Card, error) {
	if playerCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	if handSize <= 0 {
		return nil, fmt.Errorf("%w: hand size must be positive, got %d", ErrInvalidData, handSize)
	}
	if len(deck) < playerCount*handSize {
		return nil, fmt.Errorf("%w: deck of %d cannot fill %d hands of %d", ErrInsufficientCards, len(deck), playerCount, handSize)
	}
	hands := make([][]Card, playerCount)
	for i := range hands {
		hand := make([]Card, handSize)
		copy(hand, deck[i*handSize:(i+1)*handSize])
		hands[i] = hand
	}
	return hands, nil
}

// GenerateHands draws a deck and deals it, one hand per player in player order.
func (g *Generator) GenerateHands(catalog []Card, playerCount, handSize int) ([][]Card, error) {
	deck, err := g.DrawDeck(catalog, playerCount, handSize)
	if err != nil {
		return nil, err
	}
	return DistributeHands(deck, playerCount, handSize)
}

// FactionDeck returns a shuffled deck of exactly playerCount factions. A lone
// player is Ronin; otherwise Crane and Lotus are paired, and an odd count adds
// one Ronin.
func (g *Generator) FactionDeck(playerCount int) ([]Faction, error) {
	if playerCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}

	deck := make([]Faction, 0, playerCount)
	if playerCount%2 == 1 {
		deck = append(deck, Ronin())
	}
	for i := 1; i <= playerCount/2; i++ {
		deck = append(deck, Crane(i), Lotus(i))
	}

	g.shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck, nil
}

// HonorMarkPool returns the full shuffled honor-mark pool for a table of
// playerCount players.
func (g *Generator) HonorMarkPool(playerCount int) ([]HonorMark, error) {
	if playerCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	pool := newHonorMarkPool()
	g.shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool, nil
}
