package app

import (
	"testing"

	"streamadesk/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.PlaybackMode != domain.ModePreBuffer {
		t.Fatalf("PlaybackMode = %v, want prebuffer", cfg.PlaybackMode)
	}
	if cfg.BufferSizeMB != defaultBufferSizeMB {
		t.Fatalf("BufferSizeMB = %d, want %d", cfg.BufferSizeMB, defaultBufferSizeMB)
	}
	if cfg.ControlAddr != "127.0.0.1:8099" {
		t.Fatalf("ControlAddr = %q", cfg.ControlAddr)
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"empty server", Config{Port: "8080"}, ""},
		{"plain http", Config{Server: "media.local", Port: "8080"}, "http://media.local:8080"},
		{"ssl", Config{Server: "media.local", Port: "443", SSL: true}, "https://media.local:443"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BaseURL(); got != tt.want {
				t.Fatalf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClampBufferSize(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, defaultBufferSizeMB},
		{-3, defaultBufferSizeMB},
		{1, 1},
		{5, 5},
		{50, 50},
		{51, defaultBufferSizeMB},
		{5000, defaultBufferSizeMB},
	}
	for _, tt := range tests {
		if got := clampBufferSize(tt.in); got != tt.want {
			t.Fatalf("clampBufferSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STREAMA_SERVER", "example.org")
	t.Setenv("STREAMA_SSL", "true")
	t.Setenv("PLAYBACK_MODE", "full")
	t.Setenv("PLAYBACK_BUFFER_MB", "12")
	t.Setenv("PLAYER_ARGS", "--fs --mute")

	cfg := LoadConfig()
	if cfg.Server != "example.org" || !cfg.SSL {
		t.Fatalf("server override not applied: %+v", cfg)
	}
	if cfg.PlaybackMode != domain.ModeFullDownload {
		t.Fatalf("PlaybackMode = %v, want full", cfg.PlaybackMode)
	}
	if cfg.BufferSizeMB != 12 {
		t.Fatalf("BufferSizeMB = %d, want 12", cfg.BufferSizeMB)
	}
	if len(cfg.PlayerArgs) != 2 || cfg.PlayerArgs[0] != "--fs" {
		t.Fatalf("PlayerArgs = %v", cfg.PlayerArgs)
	}
}
