package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"ninjanight"
	"ninjanight/internal/catalog"
	"ninjanight/internal/config"
	"ninjanight/internal/game"
	"ninjanight/internal/handlers"
	"ninjanight/internal/metrics"
	"ninjanight/internal/store"
)

// App is the wired server: store, catalog, metrics and HTTP routes.
type App struct {
	cfg     *config.ServerConfig
	log     *zap.Logger
	store   store.Store
	metrics *metrics.Collector
	handler *handlers.Handler
	router  http.Handler
}

// NewApp builds every component from cfg. The embedded card catalog is
// written to the store when seeding is enabled.
func NewApp(ctx context.Context, cfg *config.ServerConfig, log *zap.Logger) (*App, error) {
	st, err := openStore(ctx, cfg.Store, log.Named("store"))
	if err != nil {
		return nil, err
	}

	// Fail fast on a broken embedded catalog
	cardService, err := game.NewCardService(ninjanight.DeckSettingsYAML)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize card service: %w", err)
	}
	cards := catalog.NewRepository(st, log.Named("catalog"))
	if cfg.Setup.SeedCatalog {
		if _, err := cards.Seed(ctx, cardService); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to seed card catalog: %w", err)
		}
	}

	var m *metrics.Collector
	if cfg.Metrics.Enabled {
		m = metrics.New(log.Named("metrics"))
	}

	h := handlers.New(cfg, st, cards, m, log)
	router := handlers.SetupRouter(h, cfg, &handlers.RouterOptions{
		Ready: func(r *http.Request) error {
			_, err := st.List(r.Context(), store.RoomsPath())
			return err
		},
	})

	return &App{cfg: cfg, log: log, store: st, metrics: m, handler: h, router: router}, nil
}

func openStore(ctx context.Context, cfg config.StoreSettings, log *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "memory", "":
		log.Info("using in-memory store")
		return store.NewMemoryStore(), nil
	case "redis":
		r := cfg.Redis
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:         r.Addr,
			Password:     r.Password,
			DB:           r.DB,
			PoolSize:     r.PoolSize,
			DialTimeout:  r.DialTimeout,
			ReadTimeout:  r.ReadTimeout,
			WriteTimeout: r.WriteTimeout,
			KeyPrefix:    r.KeyPrefix,
		}, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// RunBackground starts the process sampler until ctx is done.
func (a *App) RunBackground(ctx context.Context) {
	if a.metrics != nil && a.cfg.Metrics.ProcessInterval > 0 {
		go a.metrics.RunProcessSampler(ctx, a.cfg.Metrics.ProcessInterval)
	}
}

// Close stops every session and closes the store.
func (a *App) Close() error {
	a.handler.Close()
	return a.store.Close()
}
