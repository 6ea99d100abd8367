package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all mailsync configuration.
type Config struct {
	Sync  SyncConfig  `toml:"sync"`
	Feed  FeedConfig  `toml:"feed"`
	Cache CacheConfig `toml:"cache"`
	Index IndexConfig `toml:"index"`
}

// SyncConfig holds scheduler settings. Durations are strings in Go
// duration syntax ("30s", "5m").
type SyncConfig struct {
	Interval   string `toml:"interval"`
	RetryBase  string `toml:"retry_base"`
	RetryMax   string `toml:"retry_max"`
	FailureCap int    `toml:"failure_cap"`
}

// FeedConfig holds delta-feed client settings.
type FeedConfig struct {
	BaseURL           string  `toml:"base_url"`
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// CacheConfig holds hot-cache settings.
type CacheConfig struct {
	// MaxCost is the total cost budget of one per-account cache.
	MaxCost int64 `toml:"max_cost"`
}

// IndexConfig holds encrypted-search indexing settings.
type IndexConfig struct {
	PageSize int `toml:"page_size"`
	// RequireWiFi pauses indexing when the device leaves WiFi.
	RequireWiFi bool `toml:"require_wifi"`
}

func defaults() Config {
	return Config{
		Sync: SyncConfig{
			Interval:   "30s",
			RetryBase:  "10s",
			RetryMax:   "10m",
			FailureCap: 8,
		},
		Feed: FeedConfig{
			Timeout:           "30s",
			RequestsPerSecond: 2,
		},
		Cache: CacheConfig{
			MaxCost: 1 << 20,
		},
		Index: IndexConfig{
			PageSize:    100,
			RequireWiFi: true,
		},
	}
}

// Load reads config from path. If path is empty or the file does not
// exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Duration parses one of the config's duration strings.
func Duration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s duration %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s duration must be positive, got %q", field, value)
	}
	return d, nil
}

// ConfigDir returns the mailsync config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailsync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mailsync")
}

// DataDir returns the mailsync data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailsync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mailsync")
}
