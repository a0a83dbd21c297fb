package handlers

import (
	"net/http"
	"strings"

	"ninjanight/internal/game"
)

// LobbyState returns the caller's lobby as the client currently sees it
func (h *Handler) LobbyState(w http.ResponseWriter, r *http.Request) {
	c := h.existingClient(sessionID(r))
	if c == nil || c.manager.Room() == nil {
		h.writeError(w, r, game.Wrap("lobby", game.ErrNotJoined))
		return
	}
	h.writeJSON(w, http.StatusOK, viewLobby(c))
}

// JoinRoom joins the room with the posted invitation code
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	session := getOrCreateSession(w, r)
	if !h.joins.Allow(session) {
		http.Error(w, "Too many join attempts", http.StatusTooManyRequests)
		return
	}

	c, err := h.clientFor(session, strings.TrimSpace(r.FormValue("player_name")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	code := strings.TrimSpace(r.FormValue("room_code"))
	if _, err := c.manager.JoinRoom(r.Context(), code, r.FormValue("password")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewLobby(c))
}

// ToggleReady flips the caller's ready flag
func (h *Handler) ToggleReady(w http.ResponseWriter, r *http.Request) {
	c := h.existingClient(sessionID(r))
	if c == nil {
		h.writeError(w, r, game.Wrap("toggle ready", game.ErrNotJoined))
		return
	}
	if _, err := c.manager.ToggleReady(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewLobby(c))
}

// LeaveRoom leaves the caller's room; a host leaving closes it
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	c := h.existingClient(sessionID(r))
	if c == nil {
		h.writeError(w, r, game.Wrap("leave room", game.ErrNotJoined))
		return
	}
	if err := c.leave(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartSetup starts dealing the game (host) or following it (everyone else).
// Progress arrives on the event stream.
func (h *Handler) StartSetup(w http.ResponseWriter, r *http.Request) {
	c := h.existingClient(sessionID(r))
	if c == nil {
		h.writeError(w, r, game.Wrap("setup", game.ErrNotJoined))
		return
	}
	if err := c.startSetup(h.ctx); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
