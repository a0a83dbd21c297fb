package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ninjanight"
	"ninjanight/internal/game"
	"ninjanight/internal/store"
)

func TestSeedAndFetch(t *testing.T) {
	st := store.NewMemoryStore()
	cs, err := game.NewCardService(ninjanight.DeckSettingsYAML)
	require.NoError(t, err)

	repo := NewRepository(st, zap.NewNop())
	n, err := repo.Seed(context.Background(), cs)
	require.NoError(t, err)
	assert.Equal(t, cs.Count(), n)

	// Seeding twice does not duplicate.
	_, err = repo.Seed(context.Background(), cs)
	require.NoError(t, err)

	cards, err := repo.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, cs.Count())
	for i := 1; i < len(cards); i++ {
		assert.Less(t, cards[i-1].ID, cards[i].ID)
	}

	byID := map[string]game.Card{}
	for _, c := range cards {
		byID[c.ID] = c
	}
	assert.Equal(t, "Martyr", byID["counterattack_martyr"].Name)
	assert.Equal(t, game.CardCounterattack, byID["counterattack_martyr"].Type)
}

func TestFetch_SkipsInvalidCards(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, store.CardPath("ok"), store.Data{"name": "Spy", "level": 1, "type": "spy"}))
	require.NoError(t, st.Put(ctx, store.CardPath("bad"), store.Data{"name": "Nobody", "type": "dragon"}))

	cards, err := NewRepository(st, zap.NewNop()).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "ok", cards[0].ID)
}

func TestFetch_EmptyCatalog(t *testing.T) {
	cards, err := NewRepository(store.NewMemoryStore(), zap.NewNop()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestCreateCard(t *testing.T) {
	st := store.NewMemoryStore()
	repo := NewRepository(st, zap.NewNop())
	ctx := context.Background()

	named, err := repo.CreateCard(ctx, game.Card{ID: "jonin_7", Name: "Jonin", Level: 7, Type: game.CardJonin})
	require.NoError(t, err)
	assert.Equal(t, "jonin_7", named.ID)

	_, err = repo.CreateCard(ctx, named)
	require.Error(t, err)
	assert.Equal(t, game.KindPrecondition, game.KindOf(err))

	generated, err := repo.CreateCard(ctx, game.Card{Name: "Hermit", Level: 2, Type: game.CardHermit})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)

	_, err = repo.CreateCard(ctx, game.Card{Name: "Ghost", Type: "ghost"})
	require.Error(t, err)
	assert.Equal(t, game.KindInvalidInput, game.KindOf(err))

	cards, err := repo.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}
