package game

import "time"

// StartGate is the start-game decision for one player list snapshot.
type StartGate struct {
	PlayerCount    int
	AllReady       bool
	AllAlive       bool
	WithinCapacity bool
	CanStart       bool
}

// EvaluateStart decides whether the game can start. It depends only on its
// arguments.
func EvaluateStart(players []Player, minCapacity, maxCapacity int, now time.Time, window time.Duration) StartGate {
	g := StartGate{
		PlayerCount: len(players),
		AllReady:    len(players) > 0,
		AllAlive:    len(players) > 0,
	}
	for _, p := range players {
		if !p.IsReady {
			g.AllReady = false
		}
		if !IsAliveWithin(now, p.LastHeartbeat, window) {
			g.AllAlive = false
		}
	}
	g.WithinCapacity = len(players) > 0 && minCapacity <= len(players) && len(players) <= maxCapacity
	g.CanStart = g.AllReady && g.AllAlive && g.WithinCapacity
	return g
}
