// Package config loads server configuration from the environment, with a
// .env file honored in development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string

	// DatabaseURL is a postgres DSN. Empty means in-memory persistence.
	DatabaseURL string
	// RedisURL enables cross-process notifications. Empty means in-process.
	RedisURL string

	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Addr:        getenv("ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		AIBaseURL:   getenv("AI_BASE_URL", "https://generativelanguage.googleapis.com"),
		AIAPIKey:    os.Getenv("AI_API_KEY"),
		AIModel:     getenv("AI_MODEL", "gemini-2.5-flash"),
		AITimeout:   30 * time.Second,
	}
	if raw := os.Getenv("AI_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse AI_TIMEOUT: %w", err)
		}
		cfg.AITimeout = d
	}
	if cfg.AIAPIKey == "" {
		return Config{}, fmt.Errorf("AI_API_KEY is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
