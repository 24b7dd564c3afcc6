package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/visitlog/config.yaml"

// Config holds all visitlog configuration.
type Config struct {
	History  HistoryConfig  `yaml:"history"`
	Identify IdentifyConfig `yaml:"identify"`
	Signals  SignalsConfig  `yaml:"signals"`
	Query    QueryConfig    `yaml:"query"`
	Storage  StorageConfig  `yaml:"storage"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type HistoryConfig struct {
	NamespaceKey        string `yaml:"namespace_key"`
	MaxVisitsPerChannel int    `yaml:"max_visits_per_channel"`
	DebounceWindowMs    int64  `yaml:"debounce_window_ms"`
}

type IdentifyConfig struct {
	ExcludedRoutes []string `yaml:"excluded_routes"`
	Selectors      []string `yaml:"selectors"`
	EmbedHost      string   `yaml:"embed_host"`
	ChannelURLBase string   `yaml:"channel_url_base"`
}

type SignalsConfig struct {
	LoadDelayMs      int `yaml:"load_delay_ms"`
	PlayDelayMs      int `yaml:"play_delay_ms"`
	SweepDelayMs     int `yaml:"sweep_delay_ms"`
	PreviewSustainMs int `yaml:"preview_sustain_ms"`
	NavigateDelayMs  int `yaml:"navigate_delay_ms"`
}

type QueryConfig struct {
	PageSize      int `yaml:"page_size"`
	RecentDisplay int `yaml:"recent_display"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type DaemonConfig struct {
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	MaxRequestSize int64   `yaml:"max_request_size"`
	RateLimit      float64 `yaml:"rate_limit"`
	RateBurst      int     `yaml:"rate_burst"`
	SpoolDir       string  `yaml:"spool_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the recorder and query engine cannot work with.
func (c *Config) Validate() error {
	if c.History.MaxVisitsPerChannel < 1 {
		return fmt.Errorf("history.max_visits_per_channel must be positive, got %d", c.History.MaxVisitsPerChannel)
	}
	if c.History.DebounceWindowMs < 0 {
		return fmt.Errorf("history.debounce_window_ms must not be negative, got %d", c.History.DebounceWindowMs)
	}
	if strings.TrimSpace(c.History.NamespaceKey) == "" {
		return fmt.Errorf("history.namespace_key must not be empty")
	}
	if c.Query.PageSize < 1 {
		return fmt.Errorf("query.page_size must be positive, got %d", c.Query.PageSize)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// DBPath returns the absolute SQLite file path described by the storage section.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
