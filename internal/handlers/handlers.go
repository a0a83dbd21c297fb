package handlers

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ninjanight/internal/config"
	"ninjanight/internal/events"
	"ninjanight/internal/lobby"
	"ninjanight/internal/metrics"
	localMiddleware "ninjanight/internal/middleware"
	"ninjanight/internal/setup"
	"ninjanight/internal/store"
)

const sessionCookie = "session"

// Handler holds dependencies for HTTP handlers. Each browser session owns
// one lobby client; the handler itself holds no game state.
type Handler struct {
	cfg       *config.ServerConfig
	store     store.Store
	directory *lobby.Directory
	cards     CardCatalog
	bus       *events.Bus
	metrics   *metrics.Collector
	log       *zap.Logger
	joins     *localMiddleware.RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[string]*client

	sseConns atomic.Int32
}

// New creates a new handler
func New(cfg *config.ServerConfig, st store.Store, cards CardCatalog, m *metrics.Collector, log *zap.Logger) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		cfg:   cfg,
		store: st,
		directory: lobby.NewDirectory(st, log.Named("directory"),
			lobby.WithCodeLength(cfg.Lobby.InvitationCodeLength),
			lobby.WithCodeTries(cfg.Lobby.InvitationCodeTries),
			lobby.WithDirectoryMetrics(m)),
		cards:   cards,
		bus:     events.NewBus(log.Named("bus"), 32),
		metrics: m,
		log:     log,
		joins:   localMiddleware.NewRateLimiter(cfg.Server.JoinRateLimit, cfg.Server.JoinRateBurst),
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[string]*client),
	}
}

// Close releases every session's background tasks. Nothing is deleted from
// the store.
func (h *Handler) Close() {
	h.cancel()
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
		h.metrics.SessionClosed()
	}
}

// Sessions returns the number of sessions with a lobby client.
func (h *Handler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// getOrCreateSession gets or creates a session for the user
func getOrCreateSession(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7, // 7 days
	})
	return sessionID
}

// sessionID returns the caller's session without creating one.
func sessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// clientFor returns the session's client, creating it for name when there is
// none. A client that is not in a room is rebuilt when the name changes.
func (h *Handler) clientFor(session, name string) (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[session]; ok {
		if name == "" || name == c.manager.Identity() {
			return c, nil
		}
		if c.manager.Room() != nil {
			return nil, errNameInUse
		}
		c.close()
		delete(h.clients, session)
		h.metrics.SessionClosed()
	}
	if name == "" {
		return nil, errNameRequired
	}

	c := h.newClient(session, name)
	h.clients[session] = c
	h.metrics.SessionOpened()
	return c, nil
}

// existingClient returns the session's client or nil.
func (h *Handler) existingClient(session string) *client {
	if session == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients[session]
}

func (h *Handler) newClient(session, name string) *client {
	pub := h.bus.Topic(session)
	log := h.log.With(zap.String("session", session))
	return &client{
		session: session,
		pub:     pub,
		log:     log,
		manager: lobby.NewManager(name, h.store, pub, log.Named("lobby"),
			lobby.WithHeartbeatInterval(h.cfg.Lobby.HeartbeatInterval),
			lobby.WithLivenessWindow(h.cfg.Lobby.LivenessWindow),
			lobby.WithMetrics(h.metrics)),
		setup: setup.NewOrchestrator(h.store, h.cards, pub, log.Named("setup"),
			setup.WithHandSize(h.cfg.Setup.HandSize),
			setup.WithRoundStateCards(h.cfg.Setup.RoundStateCards),
			setup.WithMetrics(h.metrics)),
	}
}
