// Package config handles process configuration from environment variables.
// Runtime tunables (poll interval, notification credentials) live in the
// settings table instead and are snapshotted once per poll cycle.
package config

import "os"

// Config holds the process configuration.
type Config struct {
	DatabasePath string
	LogLevel     string
	StatusAddr   string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		DatabasePath: envOrDefault("RSSWATCHER_DB_PATH", "./data/rss-watcher.db"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		StatusAddr:   envOrDefault("STATUS_ADDR", ":8080"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
