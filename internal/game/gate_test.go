package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func gatePlayers(now time.Time, n int) []Player {
	players := make([]Player, n)
	for i := range players {
		players[i] = Player{
			Name:          string(rune('a' + i)),
			IsReady:       true,
			IsOnline:      true,
			LastHeartbeat: now.Add(-2 * time.Second),
		}
	}
	return players
}

func TestEvaluateStart(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	t.Run("all conditions hold", func(t *testing.T) {
		g := EvaluateStart(gatePlayers(now, 4), 3, 5, now, LivenessWindow)
		assert.True(t, g.CanStart)
		assert.Equal(t, 4, g.PlayerCount)
	})

	t.Run("one player not ready", func(t *testing.T) {
		players := gatePlayers(now, 4)
		players[2].IsReady = false
		g := EvaluateStart(players, 3, 5, now, LivenessWindow)
		assert.False(t, g.AllReady)
		assert.True(t, g.AllAlive)
		assert.False(t, g.CanStart)
	})

	t.Run("one player stale", func(t *testing.T) {
		players := gatePlayers(now, 4)
		players[1].LastHeartbeat = now.Add(-40 * time.Second)
		g := EvaluateStart(players, 3, 5, now, LivenessWindow)
		assert.True(t, g.AllReady)
		assert.False(t, g.AllAlive)
		assert.False(t, g.CanStart)
	})

	t.Run("below minimum", func(t *testing.T) {
		g := EvaluateStart(gatePlayers(now, 2), 3, 5, now, LivenessWindow)
		assert.False(t, g.WithinCapacity)
		assert.False(t, g.CanStart)
	})

	t.Run("above maximum", func(t *testing.T) {
		g := EvaluateStart(gatePlayers(now, 6), 3, 5, now, LivenessWindow)
		assert.False(t, g.WithinCapacity)
		assert.False(t, g.CanStart)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		assert.True(t, EvaluateStart(gatePlayers(now, 3), 3, 5, now, LivenessWindow).CanStart)
		assert.True(t, EvaluateStart(gatePlayers(now, 5), 3, 5, now, LivenessWindow).CanStart)
	})

	t.Run("empty room never starts", func(t *testing.T) {
		assert.False(t, EvaluateStart(nil, 0, 5, now, LivenessWindow).CanStart)
	})
}
