// Package catalog stores the card catalog the setup deals from.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ninjanight/internal/game"
	"ninjanight/internal/store"
)

// Repository reads and writes cards under DeckSetting.
type Repository struct {
	store store.Store
	log   *zap.Logger
}

func NewRepository(st store.Store, log *zap.Logger) *Repository {
	return &Repository{store: st, log: log}
}

// Seed writes every card of cs under its own id, replacing what is there.
func (r *Repository) Seed(ctx context.Context, cs *game.CardService) (int, error) {
	cards := cs.Cards()
	for _, card := range cards {
		if err := r.put(ctx, card); err != nil {
			return 0, game.FromStore("seed catalog", err)
		}
	}
	r.log.Info("card catalog seeded", zap.Int("cards", len(cards)))
	return len(cards), nil
}

// Fetch returns the whole catalog in id order. Documents that are not valid
// cards are skipped.
func (r *Repository) Fetch(ctx context.Context) ([]game.Card, error) {
	docs, err := r.store.List(ctx, store.CardsPath())
	if err != nil {
		return nil, game.FromStore("fetch catalog", err)
	}

	cards := make([]game.Card, 0, len(docs))
	for _, doc := range docs {
		var card game.Card
		if err := doc.Decode(&card); err != nil {
			r.log.Warn("skipping undecodable card", zap.String("card_id", doc.ID), zap.Error(err))
			continue
		}
		card.ID = doc.ID
		if err := card.Validate(); err != nil {
			r.log.Warn("skipping invalid card", zap.String("card_id", doc.ID), zap.Error(err))
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// CreateCard adds one card. A card without an id gets a store-assigned one.
func (r *Repository) CreateCard(ctx context.Context, card game.Card) (game.Card, error) {
	const op = "create card"
	if card.ID == "" {
		named := card
		named.ID = "new"
		if err := named.Validate(); err != nil {
			return game.Card{}, game.E(game.KindInvalidInput, op, err)
		}
		data, err := store.Encode(card)
		if err != nil {
			return game.Card{}, game.E(game.KindInvalidInput, op, err)
		}
		id, err := r.store.Add(ctx, store.CardsPath(), data)
		if err != nil {
			return game.Card{}, game.FromStore(op, err)
		}
		card.ID = id
		return card, nil
	}

	if err := card.Validate(); err != nil {
		return game.Card{}, game.E(game.KindInvalidInput, op, err)
	}
	_, err := r.store.Get(ctx, store.CardPath(card.ID))
	switch {
	case err == nil:
		return game.Card{}, game.E(game.KindPrecondition, op, fmt.Errorf("%w: card %s already exists", game.ErrInvalidData, card.ID))
	case !errors.Is(err, store.ErrNotFound):
		return game.Card{}, game.FromStore(op, err)
	}
	if err := r.put(ctx, card); err != nil {
		return game.Card{}, game.FromStore(op, err)
	}
	return card, nil
}

func (r *Repository) put(ctx context.Context, card game.Card) error {
	data, err := store.Encode(card)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, store.CardPath(card.ID), data)
}
