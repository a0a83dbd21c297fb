package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	datastar "github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"ninjanight/internal/events"
)

const keepaliveInterval = 30 * time.Second

// StreamLobby streams the session's lobby events as datastar signal patches
func (h *Handler) StreamLobby(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	c := h.existingClient(session)
	if c == nil {
		http.Error(w, "No lobby session", http.StatusUnauthorized)
		return
	}

	if limit := h.cfg.Server.MaxSSEConnections; limit > 0 && int(h.sseConns.Load()) >= limit {
		http.Error(w, "Too many event streams", http.StatusServiceUnavailable)
		return
	}
	h.sseConns.Add(1)
	defer h.sseConns.Add(-1)

	// Subscribe before the first patch so nothing published in between is lost
	stream := h.bus.Subscribe(session)
	defer h.bus.Unsubscribe(session, stream)

	sse := datastar.NewSSE(w, r)
	log := h.log.With(zap.String("session", session))
	log.Debug("lobby stream opened")

	// Initial state, so a reconnecting browser is in sync
	if err := sse.MarshalAndPatchSignals(lobbySignals(c)); err != nil {
		log.Debug("failed to send initial lobby state", zap.Error(err))
		return
	}

	ctx := r.Context()
	if d := h.cfg.Server.SSETimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	heartbeat := time.NewTicker(keepaliveInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("lobby stream closed")
			return
		case <-h.ctx.Done():
			return
		case <-heartbeat.C:
			if err := sse.Send("keepalive", []string{fmt.Sprintf(`{"time":"%s"}`, time.Now().Format(time.RFC3339))}); err != nil {
				log.Debug("keepalive failed, closing stream", zap.Error(err))
				return
			}
		case ev, ok := <-stream:
			if !ok {
				return
			}
			if err := sse.MarshalAndPatchSignals(eventSignals(ev)); err != nil {
				log.Debug("failed to patch signals", zap.String("event", string(ev.Type)), zap.Error(err))
				return
			}
		}
	}
}

func lobbySignals(c *client) map[string]any {
	v := viewLobby(c)
	return map[string]any{
		"event":          "snapshot",
		"roomID":         v.RoomID,
		"invitationCode": v.InvitationCode,
		"isHost":         v.IsHost,
		"isReady":        v.IsReady,
		"players":        v.Players,
		"gate":           v.Gate,
	}
}

// eventSignals flattens an event into the signals the lobby page binds to.
func eventSignals(ev events.Event) map[string]any {
	s := map[string]any{"event": string(ev.Type), "roomID": ev.RoomID}
	switch ev.Type {
	case events.JoinSucceeded, events.PlayerListUpdated:
		s["players"] = viewPlayers(ev.Players)
		s["gate"] = viewGate(ev.Gate)
	case events.SetupProgress:
		s["progress"] = ev.Progress
		s["loadingMessage"] = ev.Message
	case events.SetupComplete:
		s["progress"] = ev.Progress
		s["loadingMessage"] = ev.Message
		s["setupComplete"] = true
	case events.RoomClosed:
		s["roomClosed"] = true
		s["players"] = []playerView{}
	case events.RoomFull:
		s["roomFull"] = true
	case events.Failure:
		s["error"] = errString(ev.Err)
		s["errorKind"] = ev.Kind.String()
		s["errorOp"] = ev.Op
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
