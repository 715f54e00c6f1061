package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the endpoints and timeouts the SDK needs to reach the auction backend.
type Config struct {
	// Base URL of the REST API, e.g. http://localhost:4000/api/v1
	APIBaseURL string
	// WebSocket endpoint of the bidding server, e.g. ws://localhost:4000/ws
	WSURL string
	// Maximum time allowed for the WebSocket handshake.
	ConnectTimeout time.Duration
	// Time allowed to write a message to the peer.
	WriteTimeout time.Duration
}

// Load reads configuration from environment variables, loading .env first if present.
// Missing variables fall back to the local development defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIBaseURL:     getEnv("KOIBID_API_URL", "http://localhost:4000/api/v1"),
		WSURL:          getEnv("KOIBID_WS_URL", "ws://localhost:4000/ws"),
		ConnectTimeout: getDuration("KOIBID_CONNECT_TIMEOUT", 10*time.Second),
		WriteTimeout:   getDuration("KOIBID_WRITE_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
