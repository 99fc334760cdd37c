package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONTROLLER_COMMAND", "python3 -m chronos")
	t.Setenv("MODE", "poll")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("FOLLOW_MARGIN", "12.5")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if len(cfg.ControllerCommand) != 3 || cfg.ControllerCommand[0] != "python3" {
		t.Errorf("ControllerCommand = %v, want [python3 -m chronos]", cfg.ControllerCommand)
	}
	if cfg.Mode != "poll" {
		t.Errorf("Mode = %v, want poll", cfg.Mode)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.FollowMargin != 12.5 {
		t.Errorf("FollowMargin = %v, want 12.5", cfg.FollowMargin)
	}
	if cfg.ReadyMarker != "a" {
		t.Errorf("ReadyMarker = %q, want %q", cfg.ReadyMarker, "a")
	}
	if cfg.ConsoleRefresh != 50*time.Millisecond {
		t.Errorf("ConsoleRefresh = %v, want 50ms", cfg.ConsoleRefresh)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chronos.yaml")
	content := `controller_url: ws://127.0.0.1:8765/ws
stream_dir: /tmp/hls
poll_interval: 3s
console_limit: 200
player_command: ["ffplay", "-autoexit", "{url}"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CONSOLE_LIMIT", "300")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ControllerURL != "ws://127.0.0.1:8765/ws" {
		t.Errorf("ControllerURL = %v", cfg.ControllerURL)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.PollInterval)
	}
	if cfg.ConsoleLimit != 300 {
		t.Errorf("ConsoleLimit = %d, want env override 300", cfg.ConsoleLimit)
	}
	if got := cfg.PlaylistPath(); got != filepath.Join("/tmp/hls", "live.m3u8") {
		t.Errorf("PlaylistPath() = %v", got)
	}
	if got := cfg.StreamSource(); got != cfg.PlaylistPath() {
		t.Errorf("StreamSource() = %v, want playlist path", got)
	}
	if len(cfg.PlayerCommand) != 3 {
		t.Errorf("PlayerCommand = %v", cfg.PlayerCommand)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "local controller",
			mutate: func(c *Config) { c.ControllerCommand = []string{"chronos"} },
		},
		{
			name:   "remote controller",
			mutate: func(c *Config) { c.ControllerURL = "ws://localhost/ws" },
		},
		{
			name:    "no controller",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "bad mode",
			mutate: func(c *Config) {
				c.ControllerCommand = []string{"chronos"}
				c.Mode = "inotify"
			},
			wantErr: true,
		},
		{
			name: "empty playlist",
			mutate: func(c *Config) {
				c.ControllerCommand = []string{"chronos"}
				c.Playlist = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseHelpers(t *testing.T) {
	if got := parseInt("abc", 7); got != 7 {
		t.Errorf("parseInt(abc) = %d, want 7", got)
	}
	if got := parseDuration("nope", time.Second); got != time.Second {
		t.Errorf("parseDuration(nope) = %v, want 1s", got)
	}
	if got := parseFloat("0.5", 1); got != 0.5 {
		t.Errorf("parseFloat(0.5) = %v, want 0.5", got)
	}
}
