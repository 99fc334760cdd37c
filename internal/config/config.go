package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Controller configuration
	ControllerCommand []string      `yaml:"controller_command"`
	ControllerURL     string        `yaml:"controller_url"`
	StopGrace         time.Duration `yaml:"stop_grace"`

	// Stream configuration
	StreamDir     string   `yaml:"stream_dir"`
	Playlist      string   `yaml:"playlist"`
	StreamURL     string   `yaml:"stream_url"`
	PlayerCommand []string `yaml:"player_command"`
	ReadyMarker   string   `yaml:"ready_marker"`

	// Sentinel probe configuration
	Mode         string        `yaml:"mode"` // "watch" or "poll"
	PollInterval time.Duration `yaml:"poll_interval"`

	// Console configuration
	ConsoleLimit    int           `yaml:"console_limit"`
	ConsoleRefresh  time.Duration `yaml:"console_refresh"`
	FollowMargin    float64       `yaml:"follow_margin"` // 0 follows the visible console height
	FollowTolerance float64       `yaml:"follow_tolerance"`

	// Observability
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"` // 0 disables the server
	HealthPort  int    `yaml:"health_port"`  // 0 disables the server
}

// Default returns the configuration used when neither a file nor the
// environment override a value.
func Default() *Config {
	return &Config{
		StopGrace:       5 * time.Second,
		StreamDir:       "assets/hls",
		Playlist:        "live.m3u8",
		ReadyMarker:     "a",
		Mode:            "watch",
		PollInterval:    2 * time.Second,
		ConsoleLimit:    5000,
		ConsoleRefresh:  50 * time.Millisecond,
		FollowTolerance: 0.01,
		LogLevel:        "info",
		LogFile:         "chronos-console.log",
	}
}

// Load reads the optional YAML file at path, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CONTROLLER_COMMAND"); v != "" {
		cfg.ControllerCommand = strings.Fields(v)
	}
	if v := os.Getenv("PLAYER_COMMAND"); v != "" {
		cfg.PlayerCommand = strings.Fields(v)
	}

	cfg.ControllerURL = getEnvOrDefault("CONTROLLER_URL", cfg.ControllerURL)
	cfg.StopGrace = parseDuration(os.Getenv("STOP_GRACE"), cfg.StopGrace)
	cfg.StreamDir = getEnvOrDefault("STREAM_DIR", cfg.StreamDir)
	cfg.Playlist = getEnvOrDefault("STREAM_PLAYLIST", cfg.Playlist)
	cfg.StreamURL = getEnvOrDefault("STREAM_URL", cfg.StreamURL)
	cfg.ReadyMarker = getEnvOrDefault("READY_MARKER", cfg.ReadyMarker)
	cfg.Mode = getEnvOrDefault("MODE", cfg.Mode)
	cfg.PollInterval = parseDuration(os.Getenv("POLL_INTERVAL"), cfg.PollInterval)
	cfg.ConsoleLimit = parseInt(os.Getenv("CONSOLE_LIMIT"), cfg.ConsoleLimit)
	cfg.ConsoleRefresh = parseDuration(os.Getenv("CONSOLE_REFRESH_INTERVAL"), cfg.ConsoleRefresh)
	cfg.FollowMargin = parseFloat(os.Getenv("FOLLOW_MARGIN"), cfg.FollowMargin)
	cfg.FollowTolerance = parseFloat(os.Getenv("FOLLOW_TOLERANCE"), cfg.FollowTolerance)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnvOrDefault("LOG_FILE", cfg.LogFile)
	cfg.MetricsPort = parseInt(os.Getenv("METRICS_PORT"), cfg.MetricsPort)
	cfg.HealthPort = parseInt(os.Getenv("HEALTH_PORT"), cfg.HealthPort)
}

// Validate checks required fields and enumerations
func (c *Config) Validate() error {
	if len(c.ControllerCommand) == 0 && c.ControllerURL == "" {
		return fmt.Errorf("CONTROLLER_COMMAND or CONTROLLER_URL is required")
	}

	if c.Mode != "watch" && c.Mode != "poll" {
		return fmt.Errorf("MODE must be either 'watch' or 'poll', got: %s", c.Mode)
	}

	if c.Playlist == "" {
		return fmt.Errorf("STREAM_PLAYLIST must not be empty")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got: %s", c.PollInterval)
	}

	if c.FollowTolerance < 0 {
		return fmt.Errorf("FOLLOW_TOLERANCE must not be negative, got: %g", c.FollowTolerance)
	}

	return nil
}

// PlaylistPath is the on-disk location of the HLS playlist.
func (c *Config) PlaylistPath() string {
	return filepath.Join(c.StreamDir, c.Playlist)
}

// StreamSource is what the media view navigates to: the explicit stream URL
// when set, the playlist file otherwise.
func (c *Config) StreamSource() string {
	if c.StreamURL != "" {
		return c.StreamURL
	}
	return c.PlaylistPath()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}

func parseFloat(value string, defaultValue float64) float64 {
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
