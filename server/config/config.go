// Package config loads the server configuration from the environment and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	// GRPCAddr is where the CallService gRPC server listens.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr serves the monitoring API and the WebSocket endpoint.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabasePath is the SQLite file; ":memory:" keeps everything in process.
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	// OutboundQueueSize bounds each connection's queue; the oldest envelope is dropped when full.
	OutboundQueueSize int `mapstructure:"OUTBOUND_QUEUE_SIZE"`
	// PersistTimeout bounds background event writes and profile lookups.
	PersistTimeout time.Duration `mapstructure:"PERSIST_TIMEOUT"`
	// StrictIdentity drops events whose userId differs from the connection's identity.
	StrictIdentity bool `mapstructure:"STRICT_IDENTITY"`
	// AllowedOrigins is a comma-separated list of WebSocket origin patterns.
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "json" or "console".
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":50051")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_PATH", "./callwatch.db")
	v.SetDefault("OUTBOUND_QUEUE_SIZE", 256)
	v.SetDefault("PERSIST_TIMEOUT", "5s")
	v.SetDefault("STRICT_IDENTITY", false)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GRPCAddr == "" && c.HTTPAddr == "" {
		return errors.New("config: at least one of GRPC_ADDR and HTTP_ADDR must be set")
	}
	if c.DatabasePath == "" {
		return errors.New("config: DATABASE_PATH must be set")
	}
	if c.OutboundQueueSize <= 0 {
		return errors.New("config: OUTBOUND_QUEUE_SIZE must be positive")
	}
	if c.PersistTimeout <= 0 {
		return errors.New("config: PERSIST_TIMEOUT must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.New("config: LOG_LEVEL is not a valid level")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return errors.New("config: LOG_FORMAT must be json or console")
	}
	return nil
}

// Level returns the parsed log level, info when unset.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// OriginPatterns splits AllowedOrigins. Nil means same-origin only.
func (c *Config) OriginPatterns() []string {
	if c == nil || c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
