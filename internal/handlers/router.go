package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ninjanight/internal/config"
	localMiddleware "ninjanight/internal/middleware"
)

// RouterOptions allows customization of router setup for tests
type RouterOptions struct {
	DisableRateLimiting  bool
	DisableRequestLogger bool
	CustomMiddleware     []func(http.Handler) http.Handler
	// Ready reports whether dependencies are reachable; nil means always ready
	Ready func(r *http.Request) error
}

// SetupRouter creates the application router with all routes and middleware
func SetupRouter(h *Handler, cfg *config.ServerConfig, opts *RouterOptions) *chi.Mux {
	if opts == nil {
		opts = &RouterOptions{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if !opts.DisableRequestLogger {
		r.Use(localMiddleware.RequestLogger(h.log.Named("http")))
	}
	r.Use(middleware.Recoverer)

	r.Use(localMiddleware.RequestSizeLimiter(cfg.Server.MaxRequestSize))
	r.Use(localMiddleware.SecurityHeaders())

	// Rate limiting (conditionally applied)
	if !opts.DisableRateLimiting {
		rateLimiter := localMiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
	}

	for _, mw := range opts.CustomMiddleware {
		r.Use(mw)
	}

	// Short-lived requests get a timeout; the event stream does not
	r.Group(func(r chi.Router) {
		if cfg.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
		}

		r.Get("/rooms", h.ListRooms)
		r.Post("/rooms", h.CreateRoom)
		r.Get("/rooms/{code}/qr", h.RoomQR)

		r.Get("/cards", h.ListCards)
		r.Post("/cards", h.CreateCard)

		r.Get("/lobby", h.LobbyState)
		r.Post("/lobby/join", h.JoinRoom)
		r.Post("/lobby/ready", h.ToggleReady)
		r.Post("/lobby/leave", h.LeaveRoom)
		r.Post("/lobby/setup", h.StartSetup)
	})

	r.Get("/sse/lobby", ValidateSSERequest(h.StreamLobby))

	if cfg.Metrics.Enabled && h.metrics != nil {
		r.Handle(cfg.Metrics.Path, h.metrics.Handler())
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r); err != nil {
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
