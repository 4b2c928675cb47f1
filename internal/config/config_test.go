package config

import (
	"testing"
	"time"
)

func TestLoadClientDefaults(t *testing.T) {
	cfg := LoadClient()
	if cfg.ServerURL == "" {
		t.Fatalf("server URL must default")
	}
	if cfg.DialTimeout <= 0 {
		t.Fatalf("dial timeout must default positive")
	}
	if cfg.ArchivePath == "" {
		t.Fatalf("archive path must default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MGL_SERVER_URL", "ws://example.test/ws/")
	t.Setenv("MGL_PLAYER_NAME", "Avery")
	t.Setenv("MGL_DIAL_TIMEOUT", "3s")

	cfg := LoadClient()
	if cfg.ServerURL != "ws://example.test/ws" {
		t.Fatalf("server URL = %q, trailing slash should be trimmed", cfg.ServerURL)
	}
	if cfg.PlayerName != "Avery" {
		t.Fatalf("player name = %q", cfg.PlayerName)
	}
	if cfg.DialTimeout != 3*time.Second {
		t.Fatalf("dial timeout = %v", cfg.DialTimeout)
	}
}

func TestEnvBadDurationFallsBack(t *testing.T) {
	t.Setenv("MGL_DIAL_TIMEOUT", "soon")
	cfg := LoadClient()
	if cfg.DialTimeout != 10*time.Second {
		t.Fatalf("bad duration must fall back, got %v", cfg.DialTimeout)
	}
}
