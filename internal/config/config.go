package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the mgl client binary. Everything has a
// default so `mgl` runs with no environment at all; the server URL
// saved at join time wins over the env fallback.
type ClientConfig struct {
	ServerURL   string
	PlayerName  string
	ArchivePath string
	OverlayAddr string
	DialTimeout time.Duration
}

// LoadClient reads `.env` if present, then the environment.
func LoadClient() ClientConfig {
	_ = godotenv.Load()

	return ClientConfig{
		ServerURL:   strings.TrimRight(envDefault("MGL_SERVER_URL", "ws://localhost:8080/ws"), "/"),
		PlayerName:  envDefault("MGL_PLAYER_NAME", ""),
		ArchivePath: envDefault("MGL_ARCHIVE_PATH", defaultArchivePath()),
		OverlayAddr: envDefault("MGL_OVERLAY_ADDR", ":9190"),
		DialTimeout: envDurationDefault("MGL_DIAL_TIMEOUT", 10*time.Second),
	}
}

func defaultArchivePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mogul-archive.db"
	}
	return filepath.Join(home, ".mgl", "archive.db")
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
