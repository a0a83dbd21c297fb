package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ninjanight/internal/events"
	"ninjanight/internal/game"
	"ninjanight/internal/lobby"
	"ninjanight/internal/setup"
)

var (
	errNameRequired = game.E(game.KindInvalidInput, "session", errors.New("player name is required"))
	errNameInUse    = game.E(game.KindPrecondition, "session", fmt.Errorf("%w: leave before changing name", game.ErrAlreadyJoined))
	errSetupRunning = game.E(game.KindPrecondition, "setup", errors.New("setup is already running"))
)

// client is one browser session's lobby client.
type client struct {
	session string
	pub     events.Publisher
	log     *zap.Logger
	manager *lobby.Manager
	setup   *setup.Orchestrator

	mu          sync.Mutex
	setupCancel context.CancelFunc
	setupDone   chan struct{}
}

// startSetup runs setup in the background. The host must see a startable
// room; anyone else just follows along.
func (c *client) startSetup(parent context.Context) error {
	room := c.manager.Room()
	if room == nil {
		return game.Wrap("setup", game.ErrNotJoined)
	}
	if c.manager.IsHost() && !c.manager.Gate().CanStart {
		return game.Wrap("setup", game.ErrNotReady)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setupCancel != nil {
		return errSetupRunning
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	c.setupCancel = cancel
	c.setupDone = done

	go func() {
		defer close(done)
		defer func() {
			c.mu.Lock()
			c.setupCancel = nil
			c.setupDone = nil
			c.mu.Unlock()
			cancel()
		}()
		plan, err := c.setup.Run(ctx, room.ID, c.manager.Identity())
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			c.log.Warn("setup ended with error", zap.String("room_id", room.ID), zap.Error(err))
		case plan != nil:
			c.log.Info("setup dealt", zap.String("room_id", room.ID), zap.Int("players", len(plan.Players)))
		}
	}()
	return nil
}

// stopSetup cancels a running setup and waits for it.
func (c *client) stopSetup() {
	c.mu.Lock()
	cancel, done := c.setupCancel, c.setupDone
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *client) leave(ctx context.Context) error {
	c.stopSetup()
	return c.manager.LeaveRoom(ctx)
}

func (c *client) close() {
	c.stopSetup()
	c.manager.Close()
}
