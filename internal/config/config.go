package config

import (
	"fmt"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// ServerConfig represents the server configuration
type ServerConfig struct {
	Server  ServerSettings  `yaml:"server"`
	Store   StoreSettings   `yaml:"store"`
	Lobby   LobbySettings   `yaml:"lobby"`
	Setup   SetupSettings   `yaml:"setup"`
	Log     LogSettings     `yaml:"log"`
	Metrics MetricsSettings `yaml:"metrics"`
}

// ServerSettings contains HTTP gateway settings
type ServerSettings struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	PublicURL       string        `yaml:"publicURL"` // Base URL encoded into invitation QR codes
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"` // 0 for SSE support
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	SSETimeout      time.Duration `yaml:"sseTimeout"` // 0 = no timeout

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`      // requests per second per IP
	RateLimitBurst int     `yaml:"rateLimitBurst"` // burst size
	JoinRateLimit  float64 `yaml:"joinRateLimit"`  // join attempts per second per session
	JoinRateBurst  int     `yaml:"joinRateBurst"`

	// Request limits
	MaxRequestSize    int64 `yaml:"maxRequestSize"`
	MaxSSEConnections int   `yaml:"maxSSEConnections"`
}

// StoreSettings selects and configures the document store
type StoreSettings struct {
	Driver string        `yaml:"driver"` // memory or redis
	Redis  RedisSettings `yaml:"redis"`
}

// RedisSettings configures the Redis document store
type RedisSettings struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"poolSize"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	KeyPrefix    string        `yaml:"keyPrefix"`
}

// LobbySettings holds room and presence policy
type LobbySettings struct {
	HeartbeatInterval    time.Duration `yaml:"heartbeatInterval"`
	LivenessWindow       time.Duration `yaml:"livenessWindow"`
	MinCapacity          int           `yaml:"minCapacity"` // default for new rooms
	MaxCapacity          int           `yaml:"maxCapacity"` // default for new rooms
	InvitationCodeLength int           `yaml:"invitationCodeLength"`
	InvitationCodeTries  int           `yaml:"invitationCodeTries"`
}

// SetupSettings holds game setup policy
type SetupSettings struct {
	HandSize        int  `yaml:"handSize"`
	RoundStateCards int  `yaml:"roundStateCards"`
	SeedCatalog     bool `yaml:"seedCatalog"` // write the embedded catalog on startup
}

// LogSettings configures the zap logger
type LogSettings struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json or console
	Output      string `yaml:"output"` // stdout or stderr
	Development bool   `yaml:"development"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled         bool          `yaml:"enabled"`
	Path            string        `yaml:"path"`
	ProcessInterval time.Duration `yaml:"processInterval"` // how often process CPU and memory are sampled
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port:            "", // Must be set via env
			Host:            "", // Must be set via env
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // 0 for SSE support
			IdleTimeout:     0,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
			SSETimeout:      24 * time.Hour,

			RateLimit:      10,
			RateLimitBurst: 20,
			JoinRateLimit:  1,
			JoinRateBurst:  5,

			MaxRequestSize:    1048576, // 1MB
			MaxSSEConnections: 1000,
		},
		Store: StoreSettings{
			Driver: "memory",
			Redis: RedisSettings{
				Addr:         "localhost:6379",
				PoolSize:     20,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				KeyPrefix:    "ninjanight:",
			},
		},
		Lobby: LobbySettings{
			HeartbeatInterval:    5 * time.Second,
			LivenessWindow:       30 * time.Second,
			MinCapacity:          3,
			MaxCapacity:          8,
			InvitationCodeLength: 8,
			InvitationCodeTries:  5,
		},
		Setup: SetupSettings{
			HandSize:        3,
			RoundStateCards: 3,
			SeedCatalog:     true,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsSettings{
			Enabled:         true,
			Path:            "/metrics",
			ProcessInterval: 15 * time.Second,
		},
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	// Required fields
	if c.Server.Port == "" {
		return fmt.Errorf("PORT environment variable must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST environment variable must be set")
	}

	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr must be set when the redis driver is used")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Lobby.MinCapacity < 1 {
		return fmt.Errorf("lobby.minCapacity must be at least 1")
	}
	if c.Lobby.MinCapacity > c.Lobby.MaxCapacity {
		return fmt.Errorf("lobby.minCapacity cannot be greater than lobby.maxCapacity")
	}
	if c.Lobby.HeartbeatInterval <= 0 {
		return fmt.Errorf("lobby.heartbeatInterval must be positive")
	}
	if c.Lobby.HeartbeatInterval >= c.Lobby.LivenessWindow {
		return fmt.Errorf("lobby.heartbeatInterval must be shorter than lobby.livenessWindow")
	}
	if c.Lobby.InvitationCodeLength < 4 {
		return fmt.Errorf("lobby.invitationCodeLength must be at least 4")
	}
	if c.Lobby.InvitationCodeTries < 1 {
		c.Lobby.InvitationCodeTries = 1
	}

	if c.Setup.HandSize < 1 {
		return fmt.Errorf("setup.handSize must be at least 1")
	}
	if c.Setup.HandSize < c.Setup.RoundStateCards {
		return fmt.Errorf("setup.handSize cannot be smaller than setup.roundStateCards")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console")
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path must be set when metrics are enabled")
	}

	return nil
}
