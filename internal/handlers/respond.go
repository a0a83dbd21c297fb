package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ninjanight/internal/game"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type playerView struct {
	Name          string    `json:"name"`
	IsReady       bool      `json:"isReady"`
	IsOnline      bool      `json:"isOnline"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

type gateView struct {
	PlayerCount    int  `json:"playerCount"`
	AllReady       bool `json:"allReady"`
	AllAlive       bool `json:"allAlive"`
	WithinCapacity bool `json:"withinCapacity"`
	CanStart       bool `json:"canStart"`
}

type lobbyView struct {
	RoomID         string       `json:"roomID"`
	InvitationCode string       `json:"invitationCode"`
	Name           string       `json:"name"`
	Player         string       `json:"player"`
	IsHost         bool         `json:"isHost"`
	IsReady        bool         `json:"isReady"`
	Players        []playerView `json:"players"`
	Gate           gateView     `json:"gate"`
}

func viewPlayers(players []game.Player) []playerView {
	out := make([]playerView, len(players))
	for i, p := range players {
		out[i] = playerView{Name: p.Name, IsReady: p.IsReady, IsOnline: p.IsOnline, LastHeartbeat: p.LastHeartbeat}
	}
	return out
}

func viewGate(g game.StartGate) gateView {
	return gateView{
		PlayerCount:    g.PlayerCount,
		AllReady:       g.AllReady,
		AllAlive:       g.AllAlive,
		WithinCapacity: g.WithinCapacity,
		CanStart:       g.CanStart,
	}
}

func viewLobby(c *client) lobbyView {
	v := lobbyView{
		Player:  c.manager.Identity(),
		IsHost:  c.manager.IsHost(),
		IsReady: c.manager.IsReady(),
		Players: viewPlayers(c.manager.Players()),
		Gate:    viewGate(c.manager.Gate()),
	}
	if room := c.manager.Room(); room != nil {
		v.RoomID = room.ID
		v.InvitationCode = room.InvitationCode
		v.Name = room.Name
	}
	return v
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, http.ErrHandlerTimeout) {
		return http.StatusServiceUnavailable
	}
	switch game.KindOf(err) {
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindCapacity:
		return http.StatusConflict
	case game.KindInvalidInput:
		return http.StatusBadRequest
	case game.KindPrecondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.log.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	h.writeJSON(w, status, errorBody{Error: err.Error(), Kind: game.KindOf(err).String()})
}
