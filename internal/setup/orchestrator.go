// Package setup deals a new game. The host generates and writes it; every
// other client follows the host's progress through the room document.
package setup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ninjanight/internal/events"
	"ninjanight/internal/game"
	"ninjanight/internal/metrics"
	"ninjanight/internal/store"
)

// Messages written to the room as setup advances.
const (
	MsgStart      = "Start setting."
	MsgWaiting    = "Waiting for host to start setting."
	MsgPlayers    = "Fetched players successfully."
	MsgDeck       = "Deck configured successfully."
	MsgFactions   = "Faction deck configured successfully."
	MsgHonorMarks = "Honer marks configured successfully."
	MsgComplete   = "Game setup completed successfully."
)

// CardSource supplies the catalog to deal from.
type CardSource interface {
	Fetch(ctx context.Context) ([]game.Card, error)
}

// Plan is what the host dealt. Players are in dealing order.
type Plan struct {
	RoomID     string
	Players    []string
	Hands      map[string][]game.Card
	Factions   map[string]game.Faction
	HonorMarks []game.HonorMark
}

// Orchestrator runs setup for one client.
type Orchestrator struct {
	store      store.Store
	cards      CardSource
	gen        *game.Generator
	pub        events.Publisher
	log        *zap.Logger
	metrics    *metrics.Collector
	handSize   int
	roundCards int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHandSize sets how many cards each player is dealt.
func WithHandSize(n int) Option {
	return func(o *Orchestrator) { o.handSize = n }
}

// WithRoundStateCards sets how many dealt cards go into the first round hand.
func WithRoundStateCards(n int) Option {
	return func(o *Orchestrator) { o.roundCards = n }
}

func WithGenerator(g *game.Generator) Option {
	return func(o *Orchestrator) { o.gen = g }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func NewOrchestrator(st store.Store, cards CardSource, pub events.Publisher, log *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      st,
		cards:      cards,
		pub:        pub,
		log:        log,
		handSize:   3,
		roundCards: 3,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gen == nil {
		o.gen = game.NewGenerator(nil)
	}
	if o.pub == nil {
		o.pub = events.Discard
	}
	return o
}

// Run checks whether identity hosts roomID. The host deals the game and gets
// the plan back; anyone else follows the host's progress and gets a nil plan
// once setup is complete. Both end with exactly one SetupComplete event.
func (o *Orchestrator) Run(ctx context.Context, roomID, identity string) (*Plan, error) {
	room, err := o.checkHost(ctx, roomID)
	if err != nil {
		o.fail(roomID, err)
		return nil, err
	}
	if !room.IsHost(identity) {
		o.pub.Publish(events.NewSetupProgress(roomID, 0, MsgWaiting))
		return nil, o.Follow(ctx, roomID)
	}

	start := time.Now()
	plan, err := o.runHost(ctx, roomID)
	if err != nil {
		o.fail(roomID, err)
		return nil, err
	}
	o.metrics.SetupRun("ok")
	o.pub.Publish(events.NewSetupComplete(roomID, MsgComplete))
	o.log.Info("game setup complete",
		zap.String("room_id", roomID),
		zap.Int("players", len(plan.Players)),
		zap.Duration("elapsed", time.Since(start)))
	return plan, nil
}

func (o *Orchestrator) checkHost(ctx context.Context, roomID string) (*game.Room, error) {
	doc, err := o.store.Get(ctx, store.RoomPath(roomID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, game.E(game.KindNotFound, "check host", fmt.Errorf("%w: %v", game.ErrRoomNotFound, err))
		}
		return nil, game.FromStore("check host", err)
	}
	room, err := game.RoomFromDocument(doc)
	if err != nil {
		return nil, game.Wrap("check host", err)
	}
	return room, nil
}

func (o *Orchestrator) runHost(ctx context.Context, roomID string) (*Plan, error) {
	if err := o.progress(ctx, roomID, 0, MsgStart); err != nil {
		return nil, err
	}

	var names []string
	err := o.step(ctx, roomID, "fetch_players", 0.1, MsgPlayers, func() error {
		docs, err := o.store.List(ctx, store.PlayersPath(roomID))
		if err != nil {
			return game.FromStore("fetch players", err)
		}
		players, err := game.PlayersFromDocuments(docs)
		if err != nil {
			return game.Wrap("fetch players", err)
		}
		for _, p := range players {
			names = append(names, p.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var hands [][]game.Card
	err = o.step(ctx, roomID, "card_deck", 0.3, MsgDeck, func() error {
		catalog, err := o.cards.Fetch(ctx)
		if err != nil {
			return game.Wrap("configure deck", err)
		}
		hands, err = o.gen.GenerateHands(catalog, len(names), o.handSize)
		return game.Wrap("configure deck", err)
	})
	if err != nil {
		return nil, err
	}

	var factions []game.Faction
	err = o.step(ctx, roomID, "faction_deck", 0.6, MsgFactions, func() error {
		var err error
		factions, err = o.gen.FactionDeck(len(names))
		return game.Wrap("configure factions", err)
	})
	if err != nil {
		return nil, err
	}

	var marks []game.HonorMark
	err = o.step(ctx, roomID, "honor_marks", 0.9, MsgHonorMarks, func() error {
		var err error
		marks, err = o.gen.HonorMarkPool(len(names))
		return game.Wrap("configure honor marks", err)
	})
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		RoomID:     roomID,
		Players:    names,
		Hands:      make(map[string][]game.Card, len(names)),
		Factions:   make(map[string]game.Faction, len(names)),
		HonorMarks: marks,
	}
	err = o.step(ctx, roomID, "round_states", 1.0, MsgComplete, func() error {
		states, err := AssignRoundStates(names, hands, factions, o.roundCards)
		if err != nil {
			return game.Wrap("assign round states", err)
		}
		for i, name := range names {
			data, err := store.Encode(states[name])
			if err != nil {
				return game.E(game.KindInvalidInput, "assign round states", err)
			}
			path := store.RoundStatePath(roomID, name, game.FirstRoundKey)
			if err := o.store.Put(ctx, path, data); err != nil {
				return game.FromStore("assign round states", err)
			}
			plan.Hands[name] = hands[i]
			plan.Factions[name] = factions[i]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// AssignRoundStates pairs every player with one faction and the first
// cards of their hand. Nothing is returned unless every player can be
// assigned.
func AssignRoundStates(players []string, hands [][]game.Card, factions []game.Faction, cards int) (map[string]game.RoundState, error) {
	if len(factions) < len(players) {
		return nil, fmt.Errorf("%w: %d factions for %d players", game.ErrInvalidData, len(factions), len(players))
	}
	if len(hands) < len(players) {
		return nil, fmt.Errorf("%w: %d hands for %d players", game.ErrInvalidData, len(hands), len(players))
	}

	states := make(map[string]game.RoundState, len(players))
	for i, name := range players {
		if len(hands[i]) < cards {
			return nil, fmt.Errorf("%w: player %s holds %d cards, needs %d", game.ErrInvalidData, name, len(hands[i]), cards)
		}
		states[name] = game.RoundState{
			Faction:     factions[i].String(),
			CurrentHand: game.CardIDs(hands[i][:cards]),
			IsAlive:     true,
		}
	}
	return states, nil
}

// step runs fn and, when it succeeds, records progress on the room.
func (o *Orchestrator) step(ctx context.Context, roomID, name string, progress float64, msg string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		o.log.Warn("setup step failed", zap.String("room_id", roomID), zap.String("step", name), zap.Error(err))
		return err
	}
	o.metrics.SetupStep(name, time.Since(start))
	if progress >= 1.0 {
		return o.complete(ctx, roomID)
	}
	return o.progress(ctx, roomID, progress, msg)
}

func (o *Orchestrator) progress(ctx context.Context, roomID string, progress float64, msg string) error {
	err := o.store.Update(ctx, store.RoomPath(roomID), store.Data{
		"currentSettingProgress": progress,
		"loadingMessage":         msg,
	})
	if err != nil {
		return game.FromStore("write progress", err)
	}
	o.pub.Publish(events.NewSetupProgress(roomID, progress, msg))
	o.log.Debug("setup progress", zap.String("room_id", roomID), zap.Float64("progress", progress))
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, roomID string) error {
	err := o.store.Update(ctx, store.RoomPath(roomID), store.Data{
		"currentSettingProgress": 1.0,
		"loadingMessage":         MsgComplete,
		"gameStarted":            true,
		"gameRound":              1,
		"currentPhase":           string(game.PhaseDraft),
	})
	if err != nil {
		return game.FromStore("write progress", err)
	}
	o.pub.Publish(events.NewSetupProgress(roomID, 1.0, MsgComplete))
	return nil
}

func (o *Orchestrator) fail(roomID string, err error) {
	o.metrics.SetupRun(game.KindOf(err).String())
	o.pub.Publish(events.NewFailure(roomID, "setup", err))
	o.log.Warn("game setup failed",
		zap.String("room_id", roomID),
		zap.Stringer("kind", game.KindOf(err)),
		zap.Error(err))
}
