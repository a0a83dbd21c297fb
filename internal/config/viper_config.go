package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("server")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ninjanight")
	}

	// Enable environment variable binding
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Short aliases next to the SERVER_PORT style names AutomaticEnv gives us
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.publicurl", "PUBLIC_URL")
	v.BindEnv("server.ratelimit", "RATE_LIMIT")
	v.BindEnv("server.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("server.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("server.maxsseconnections", "MAX_SSE_CONNECTIONS")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.redis.addr", "REDIS_ADDR")
	v.BindEnv("store.redis.password", "REDIS_PASSWORD")
	v.BindEnv("store.redis.db", "REDIS_DB")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
	v.BindEnv("metrics.enabled", "ENABLE_METRICS")

	setDefaults(v, DefaultConfig())

	// Try to read config file (it's optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *ServerConfig) {
	v.SetDefault("server.readtimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writetimeout", d.Server.WriteTimeout)
	v.SetDefault("server.idletimeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdowntimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.requesttimeout", d.Server.RequestTimeout)
	v.SetDefault("server.ssetimeout", d.Server.SSETimeout)
	v.SetDefault("server.ratelimit", d.Server.RateLimit)
	v.SetDefault("server.ratelimitburst", d.Server.RateLimitBurst)
	v.SetDefault("server.joinratelimit", d.Server.JoinRateLimit)
	v.SetDefault("server.joinrateburst", d.Server.JoinRateBurst)
	v.SetDefault("server.maxrequestsize", d.Server.MaxRequestSize)
	v.SetDefault("server.maxsseconnections", d.Server.MaxSSEConnections)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.redis.addr", d.Store.Redis.Addr)
	v.SetDefault("store.redis.db", d.Store.Redis.DB)
	v.SetDefault("store.redis.poolsize", d.Store.Redis.PoolSize)
	v.SetDefault("store.redis.dialtimeout", d.Store.Redis.DialTimeout)
	v.SetDefault("store.redis.readtimeout", d.Store.Redis.ReadTimeout)
	v.SetDefault("store.redis.writetimeout", d.Store.Redis.WriteTimeout)
	v.SetDefault("store.redis.keyprefix", d.Store.Redis.KeyPrefix)

	v.SetDefault("lobby.heartbeatinterval", d.Lobby.HeartbeatInterval)
	v.SetDefault("lobby.livenesswindow", d.Lobby.LivenessWindow)
	v.SetDefault("lobby.mincapacity", d.Lobby.MinCapacity)
	v.SetDefault("lobby.maxcapacity", d.Lobby.MaxCapacity)
	v.SetDefault("lobby.invitationcodelength", d.Lobby.InvitationCodeLength)
	v.SetDefault("lobby.invitationcodetries", d.Lobby.InvitationCodeTries)

	v.SetDefault("setup.handsize", d.Setup.HandSize)
	v.SetDefault("setup.roundstatecards", d.Setup.RoundStateCards)
	v.SetDefault("setup.seedcatalog", d.Setup.SeedCatalog)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.processinterval", d.Metrics.ProcessInterval)
}
