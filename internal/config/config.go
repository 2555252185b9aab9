package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings tasksync reads at startup.
type Config struct {
	APIURL          string
	Token           string
	StateDir        string
	StorageBackend  string
	Freshness       time.Duration
	SettleWindow    time.Duration
	PollInterval    time.Duration
	MaxCacheEntries int
}

const (
	defaultConfigPath      = "~/.config/tasksync/config.toml"
	defaultStateDir        = "~/.local/share/tasksync"
	defaultAPIURL          = "http://127.0.0.1:8080"
	defaultStorageBackend  = "file"
	defaultFreshness       = 5 * time.Minute
	defaultSettleWindow    = 150 * time.Millisecond
	defaultPollInterval    = 5 * time.Second
	defaultMaxCacheEntries = 64

	envAPIURL = "TASKSYNC_API_URL"
	envToken  = "TASKSYNC_TOKEN"
)

var storageBackends = []string{"file", "sqlite", "memory"}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config at path, falling back to defaults when the file is
// missing. Environment variables override the API URL and token.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		applyEnv(&cfg)
		return cfg, nil
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL          string `toml:"api_url"`
		Token           string `toml:"token"`
		StateDir        string `toml:"state_dir"`
		StorageBackend  string `toml:"storage_backend"`
		Freshness       string `toml:"freshness"`
		SettleWindow    string `toml:"settle_window"`
		PollInterval    string `toml:"poll_interval"`
		MaxCacheEntries *int   `toml:"max_cache_entries"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	if v := strings.TrimSpace(raw.StateDir); v != "" {
		cfg.StateDir = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.StorageBackend)); v != "" {
		if !validBackend(v) {
			return Config{}, fmt.Errorf("storage_backend %q: want one of %s", v, strings.Join(storageBackends, ", "))
		}
		cfg.StorageBackend = v
	}
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"freshness", raw.Freshness, &cfg.Freshness},
		{"settle_window", raw.SettleWindow, &cfg.SettleWindow},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
	} {
		if err := parseDuration(d.key, d.raw, d.dst); err != nil {
			return Config{}, err
		}
	}
	if raw.MaxCacheEntries != nil {
		if *raw.MaxCacheEntries < 0 {
			return Config{}, fmt.Errorf("max_cache_entries must not be negative")
		}
		cfg.MaxCacheEntries = *raw.MaxCacheEntries
	}

	applyEnv(&cfg)
	return cfg, nil
}

// LogPath returns the log file used while the TUI owns the terminal.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.StateDir) == "" {
		return mustExpand(defaultStateDir + "/tasksync.log")
	}
	return filepath.Join(c.StateDir, "tasksync.log")
}

func defaults() Config {
	return Config{
		APIURL:          defaultAPIURL,
		StateDir:        mustExpand(defaultStateDir),
		StorageBackend:  defaultStorageBackend,
		Freshness:       defaultFreshness,
		SettleWindow:    defaultSettleWindow,
		PollInterval:    defaultPollInterval,
		MaxCacheEntries: defaultMaxCacheEntries,
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envToken)); v != "" {
		cfg.Token = v
	}
}

func parseDuration(key, raw string, dst *time.Duration) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	*dst = d
	return nil
}

func validBackend(name string) bool {
	for _, b := range storageBackends {
		if b == name {
			return true
		}
	}
	return false
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
