package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API       APIConfig      `yaml:"api"`
	Database  DatabaseConfig `yaml:"database"`
	Retry     RetryConfig    `yaml:"retry"`
	Watch     WatchConfig    `yaml:"watch"`
	Bookmarks BookmarkConfig `yaml:"bookmarks"`
	Cache     CacheConfig    `yaml:"cache"`
	LogLevel  string         `yaml:"log_level"`
}

type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ResolvePath returns the database file location, defaulting to
// ~/.storyshare/storyshare.db when unset.
func (d DatabaseConfig) ResolvePath() (string, error) {
	if d.Path != "" {
		return d.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".storyshare", "storyshare.db"), nil
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
}

type WatchConfig struct {
	Interval      time.Duration `yaml:"interval"`
	PreviewLength int           `yaml:"preview_length"`
}

type BookmarkConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	Prefix          string        `yaml:"prefix"`
	OfflineURL      string        `yaml:"offline_url"`
	APIMaxAge       time.Duration `yaml:"api_max_age"`
	APIMaxEntries   int           `yaml:"api_max_entries"`
	ImageMaxAge     time.Duration `yaml:"image_max_age"`
	ImageMaxEntries int           `yaml:"image_max_entries"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine for a client, defaults apply.
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://story-api.dicoding.dev/v1"
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = 10
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = 1 * time.Second
	}
	if c.Watch.Interval == 0 {
		c.Watch.Interval = 15 * time.Second
	}
	if c.Watch.PreviewLength == 0 {
		c.Watch.PreviewLength = 100
	}
	if c.Bookmarks.TTL == 0 {
		c.Bookmarks.TTL = 7 * 24 * time.Hour
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "storyshare-v1"
	}
	if c.Cache.OfflineURL == "" {
		c.Cache.OfflineURL = "/offline.html"
	}
	if c.Cache.APIMaxAge == 0 {
		c.Cache.APIMaxAge = 24 * time.Hour
	}
	if c.Cache.APIMaxEntries == 0 {
		c.Cache.APIMaxEntries = 50
	}
	if c.Cache.ImageMaxAge == 0 {
		c.Cache.ImageMaxAge = 30 * 24 * time.Hour
	}
	if c.Cache.ImageMaxEntries == 0 {
		c.Cache.ImageMaxEntries = 100
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
