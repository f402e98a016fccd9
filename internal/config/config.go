package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Confirm  ConfirmConfig
	Ledger   LedgerConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// ConfirmConfig holds the confirmation-code signing configuration. An empty
// key means a fresh key per process, invalidating codes across restarts.
type ConfirmConfig struct {
	Key string
	TTL time.Duration
}

// LedgerConfig holds ledger defaults. DefaultStrategy names the strategy
// used when a buy request carries neither a strategy id nor a name.
type LedgerConfig struct {
	DefaultStrategy string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	confirmTTL, err := time.ParseDuration(getEnv("CONFIRM_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIRM_TTL: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/trade_ledger.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Confirm: ConfirmConfig{
			Key: getEnv("CONFIRM_KEY", ""),
			TTL: confirmTTL,
		},
		Ledger: LedgerConfig{
			DefaultStrategy: getEnv("DEFAULT_STRATEGY", "默认策略"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
