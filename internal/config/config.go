// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the address the token server will bind to.
	ServerHost string
	// ServerPort is the port the token server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// UsersFile is the path of the users snapshot file.
	UsersFile string
	// CardsFile is the path of the bank cards snapshot file.
	CardsFile string
	// SnapshotInterval is how often the registries are snapshotted to disk.
	// Zero disables periodic snapshots; a final snapshot is always taken on
	// shutdown.
	SnapshotInterval time.Duration

	// TokenMaxAttempts is the number of times token generation is retried
	// against the registry before the operation is reported as failed.
	TokenMaxAttempts int

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsHost is the bind address for the metrics server.
	MetricsHost string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "127.0.0.1"),
		ServerPort: env.GetInt("SERVER_PORT", 10000),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Persistence
		UsersFile:        env.GetString("USERS_FILE", "users.xml"),
		CardsFile:        env.GetString("CARDS_FILE", "cards.xml"),
		SnapshotInterval: env.GetDuration("SNAPSHOT_INTERVAL_SECONDS", 0, time.Second),

		// Tokenization
		TokenMaxAttempts: env.GetInt("TOKEN_MAX_ATTEMPTS", 100000),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "tokenvault"),
		MetricsHost:      env.GetString("METRICS_HOST", "0.0.0.0"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
