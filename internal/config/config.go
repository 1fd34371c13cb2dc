package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	Port           string
	MaxUploadBytes int64         // largest accepted upload
	MaxFieldSize   int           // longer side of the simulation grid
	CanvasSize     int           // longer side of the output raster
	RateLimit      int           // uploads per client IP per window
	RateWindow     time.Duration // rate-limit window
}

// Load reads the configuration from the environment, falling back to
// defaults suitable for local development.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	return &Config{
		Port:           port,
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10<<20),
		MaxFieldSize:   envInt("MAX_FIELD_SIZE", 512),
		CanvasSize:     envInt("CANVAS_SIZE", 800),
		RateLimit:      envInt("RATE_LIMIT", 30),
		RateWindow:     time.Duration(envInt("RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
