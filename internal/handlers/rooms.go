package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ninjanight/internal/game"
	"ninjanight/internal/store"
)

// ListRooms returns every room with its occupancy
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.directory.ListRooms(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	for i := range rooms {
		rooms[i].Password = ""
	}
	h.writeJSON(w, http.StatusOK, rooms)
}

// CreateRoom opens a room hosted by the caller. The host joins it like any
// other player, so the response already carries the lobby state.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	session := getOrCreateSession(w, r)
	name := strings.TrimSpace(r.FormValue("player_name"))

	settings := game.RoomSettings{
		Name:        strings.TrimSpace(r.FormValue("room_name")),
		HostID:      name,
		MinCapacity: formInt(r, "min_capacity", h.cfg.Lobby.MinCapacity),
		MaxCapacity: formInt(r, "max_capacity", h.cfg.Lobby.MaxCapacity),
		IsPrivate:   r.FormValue("private") == "true" || r.FormValue("private") == "on",
		Password:    r.FormValue("password"),
	}
	if settings.Name == "" {
		settings.Name = name + "'s room"
	}

	c, err := h.clientFor(session, name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if c.manager.Room() != nil {
		h.writeError(w, r, game.Wrap("create room", game.ErrAlreadyJoined))
		return
	}

	room, err := h.directory.CreateRoom(r.Context(), settings)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := c.manager.JoinRoom(r.Context(), room.InvitationCode, settings.Password); err != nil {
		// A room nobody could enter as host is removed again
		if derr := h.store.Delete(context.WithoutCancel(r.Context()), store.RoomPath(room.ID)); derr != nil {
			h.log.Warn("failed to remove room after host join failed",
				zap.String("room_id", room.ID), zap.Error(derr))
		}
		h.writeError(w, r, err)
		return
	}

	h.log.Info("room opened", zap.String("room_id", room.ID), zap.String("host", name))
	h.writeJSON(w, http.StatusCreated, viewLobby(c))
}

// RoomQR serves a PNG QR code that points at the join URL of a room
func (h *Handler) RoomQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	exists, err := h.directory.CheckRoomExists(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !exists {
		h.writeError(w, r, game.Wrap("room qr", fmt.Errorf("%w: code %s", game.ErrRoomNotFound, code)))
		return
	}

	png, err := generateQRCode(h.joinURL(r, code))
	if err != nil {
		h.log.Error("failed to generate QR code", zap.String("code", code), zap.Error(err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

func (h *Handler) joinURL(r *http.Request, code string) string {
	base := strings.TrimRight(h.cfg.Server.PublicURL, "/")
	if base == "" {
		base = getBaseURL(r)
	}
	return base + "/?code=" + code
}

func formInt(r *http.Request, key string, fallback int) int {
	v := r.FormValue(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
