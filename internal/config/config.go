// Package config provides configuration loading and structs for the Lector server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Library     LibraryConfig     `yaml:"library"`
	Search      SearchConfig      `yaml:"search"`
	Reading     ReadingConfig     `yaml:"reading"`
	Translation TranslationConfig `yaml:"translation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the path of the annotation/preferences database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LibraryConfig holds book directory settings.
type LibraryConfig struct {
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
	Watch      *bool    `yaml:"watch"`
}

// WatchOrDefault returns whether to watch the library directory for changes;
// defaults to true when unset.
func (l *LibraryConfig) WatchOrDefault() bool {
	if l.Watch != nil {
		return *l.Watch
	}
	return true
}

// SearchConfig holds in-book search settings.
type SearchConfig struct {
	ContextRadius int `yaml:"context_radius"`
	RecentMax     int `yaml:"recent_max"`
}

// ReadingConfig holds pagination and reading-time settings.
type ReadingConfig struct {
	WordsPerPage int `yaml:"words_per_page"`
	DefaultWPM   int `yaml:"default_wpm"`
}

// TranslationConfig holds settings for the external translation endpoint.
type TranslationConfig struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMS int    `yaml:"timeout_ms"`
	CacheSize int    `yaml:"cache_size"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Library.Path = expandPath(cfg.Library.Path, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path. Used for persisting library path changes.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks ranges that defaults cannot fix, e.g. an explicit
// out-of-range port.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Search,
		validation.Field(&c.Search.ContextRadius, validation.Min(1)),
		validation.Field(&c.Search.RecentMax, validation.Min(1)),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Reading,
		validation.Field(&c.Reading.WordsPerPage, validation.Min(1)),
		validation.Field(&c.Reading.DefaultWPM, validation.Min(1)),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Translation,
		validation.Field(&c.Translation.TimeoutMS, validation.Min(1)),
		validation.Field(&c.Translation.CacheSize, validation.Min(1)),
	)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
