// Package testhelpers holds fixtures shared by package tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ninjanight/internal/game"
	"ninjanight/internal/store"
)

// FlakyStore wraps a Store and fails selected operations on demand.
type FlakyStore struct {
	store.Store

	mu       sync.Mutex
	failures map[string]failure
	calls    map[string]int
}

type failure struct {
	remaining int // -1 fails forever
	err       error
}

func NewFlakyStore(inner store.Store) *FlakyStore {
	return &FlakyStore{
		Store:    inner,
		failures: make(map[string]failure),
		calls:    make(map[string]int),
	}
}

// Fail makes the next n calls of op ("get", "list", "query", "put",
// "update", "delete") return err. n < 0 fails until Heal.
func (f *FlakyStore) Fail(op string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = failure{remaining: n, err: err}
}

// Heal clears every injected failure.
func (f *FlakyStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]failure)
}

// Calls returns how often op was invoked.
func (f *FlakyStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FlakyStore) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	fl, ok := f.failures[op]
	if !ok || fl.remaining == 0 {
		return nil
	}
	if fl.remaining > 0 {
		fl.remaining--
		f.failures[op] = fl
	}
	return fl.err
}

func (f *FlakyStore) Get(ctx context.Context, path store.Path) (store.Document, error) {
	if err := f.check("get"); err != nil {
		return store.Document{}, err
	}
	return f.Store.Get(ctx, path)
}

func (f *FlakyStore) List(ctx context.Context, collection store.Path) ([]store.Document, error) {
	if err := f.check("list"); err != nil {
		return nil, err
	}
	return f.Store.List(ctx, collection)
}

func (f *FlakyStore) Query(ctx context.Context, collection store.Path, field string, value any) ([]store.Document, error) {
	if err := f.check("query"); err != nil {
		return nil, err
	}
	return f.Store.Query(ctx, collection, field, value)
}

func (f *FlakyStore) Put(ctx context.Context, path store.Path, data store.Data) error {
	if err := f.check("put"); err != nil {
		return err
	}
	return f.Store.Put(ctx, path, data)
}

func (f *FlakyStore) Update(ctx context.Context, path store.Path, fields store.Data) error {
	if err := f.check("update"); err != nil {
		return err
	}
	return f.Store.Update(ctx, path, fields)
}

func (f *FlakyStore) Delete(ctx context.Context, path store.Path) error {
	if err := f.check("delete"); err != nil {
		return err
	}
	return f.Store.Delete(ctx, path)
}

// SeedRoom writes room under a store-assigned key and returns the key.
func SeedRoom(t *testing.T, st store.Store, room game.Room) string {
	t.Helper()
	data, err := store.Encode(room)
	require.NoError(t, err)
	id, err := st.Add(context.Background(), store.RoomsPath(), data)
	require.NoError(t, err)
	return id
}

// SeedPlayer writes a membership record directly.
func SeedPlayer(t *testing.T, st store.Store, roomID string, p game.Player) {
	t.Helper()
	data, err := store.Encode(p)
	require.NoError(t, err)
	require.NoError(t, st.Put(context.Background(), store.PlayerPath(roomID, p.Name), data))
}

// LoadPlayers reads the membership records of a room.
func LoadPlayers(t *testing.T, st store.Store, roomID string) []game.Player {
	t.Helper()
	docs, err := st.List(context.Background(), store.PlayersPath(roomID))
	require.NoError(t, err)
	players, err := game.PlayersFromDocuments(docs)
	require.NoError(t, err)
	return players
}

// LoadRoom reads a room document.
func LoadRoom(t *testing.T, st store.Store, roomID string) *game.Room {
	t.Helper()
	doc, err := st.Get(context.Background(), store.RoomPath(roomID))
	require.NoError(t, err)
	room, err := game.RoomFromDocument(doc)
	require.NoError(t, err)
	return room
}

// SeedCatalog writes n distinct cards into DeckSetting.
func SeedCatalog(t *testing.T, st store.Store, n int) []game.Card {
	t.Helper()
	types := []game.CardType{game.CardSpy, game.CardHermit, game.CardLiar, game.CardBlindAssassin, game.CardJonin}
	cards := make([]game.Card, n)
	for i := range cards {
		ct := types[i%len(types)]
		cards[i] = game.Card{
			ID:     fmt.Sprintf("%s_%02d", ct, i),
			Name:   string(ct),
			Level:  i%6 + 1,
			Type:   ct,
			Detail: "test card",
		}
		data, err := store.Encode(cards[i])
		require.NoError(t, err)
		require.NoError(t, st.Put(context.Background(), store.CardPath(cards[i].ID), data))
	}
	return cards
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
