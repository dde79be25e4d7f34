// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the server binary needs to start.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// DBPath is where the SQLite database lives.
	DBPath string

	// JWTSecret signs session tokens. Required; there is no safe default.
	JWTSecret string

	// TokenTTL is how long issued session tokens stay valid.
	TokenTTL time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for everything except the JWT secret.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      8080,
		DBPath:    "./data/ledger.db",
		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  24 * time.Hour,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
		cfg.TokenTTL = ttl
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}
