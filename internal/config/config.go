// Package config reads configuration from the environment, with an optional
// .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseDSN string // empty selects the in-memory store

	// DevTokens seeds the in-process credential verifier, comma-separated
	// token=userID pairs. Real deployments register tokens out of band.
	DevTokens string

	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	HeartbeatInterval time.Duration
	ConfirmTimeout    time.Duration
	StatsInterval     time.Duration

	ReconnectMaxAttempts  int
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", ""),
		DevTokens:   getEnv("DEV_TOKENS", ""),

		HandshakeTimeout:  getDuration("HANDSHAKE_TIMEOUT", 10*time.Second),
		WriteTimeout:      getDuration("WRITE_TIMEOUT", 3*time.Second),
		ReadTimeout:       getDuration("READ_TIMEOUT", 60*time.Second),
		HeartbeatInterval: getDuration("HEARTBEAT_INTERVAL", 20*time.Second),
		ConfirmTimeout:    getDuration("CONFIRM_TIMEOUT", 5*time.Second),
		StatsInterval:     getDuration("STATS_INTERVAL", 15*time.Second),

		ReconnectMaxAttempts:  getInt("RECONNECT_MAX_ATTEMPTS", 5),
		ReconnectInitialDelay: getDuration("RECONNECT_INITIAL_DELAY", 500*time.Millisecond),
		ReconnectMaxDelay:     getDuration("RECONNECT_MAX_DELAY", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
