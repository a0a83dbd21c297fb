package game

import "time"

const (
	// HeartbeatInterval is how often a client refreshes its own record.
	HeartbeatInterval = 5 * time.Second
	// LivenessWindow is how old a heartbeat may be before the player counts as gone.
	LivenessWindow = 30 * time.Second
)

// IsAlive reports whether a heartbeat at last is fresh at now.
func IsAlive(now, last time.Time) bool {
	return IsAliveWithin(now, last, LivenessWindow)
}

func IsAliveWithin(now, last time.Time, window time.Duration) bool {
	return now.Sub(last) < window
}
