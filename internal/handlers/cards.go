package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ninjanight/internal/game"
	"ninjanight/internal/setup"
)

// CardCatalog is the card store setup deals from and the gateway edits.
type CardCatalog interface {
	setup.CardSource
	CreateCard(ctx context.Context, card game.Card) (game.Card, error)
}

type cardView struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Level  int           `json:"level"`
	Type   game.CardType `json:"type"`
	Detail string        `json:"detail"`
}

func viewCard(c game.Card) cardView {
	return cardView{ID: c.ID, Name: c.Name, Level: c.Level, Type: c.Type, Detail: c.Detail}
}

// ListCards returns the catalog in id order
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.Fetch(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]cardView, len(cards))
	for i, c := range cards {
		out[i] = viewCard(c)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// CreateCard adds a card to the catalog. Without an id the store picks one.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.CreateCard(r.Context(), game.Card{
		ID:     strings.TrimSpace(r.FormValue("id")),
		Name:   strings.TrimSpace(r.FormValue("name")),
		Level:  formInt(r, "level", 0),
		Type:   game.CardType(r.FormValue("type")),
		Detail: r.FormValue("detail"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("card created", zap.String("card_id", card.ID), zap.String("type", string(card.Type)))
	h.writeJSON(w, http.StatusCreated, viewCard(card))
}
