package repeche

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/repeche/internal/engine"
	"github.com/hazyhaar/repeche/internal/fetcher"
	"github.com/hazyhaar/repeche/internal/strategy"
)

// Config configures the repeche service. Durations are expressed in
// seconds so the file stays plain YAML.
type Config struct {
	// Strategies overrides the default try-order.
	Strategies []string `yaml:"strategies"`
	// MaxRetries is the per-strategy attempt count.
	MaxRetries int `yaml:"max_retries"`
	// AttemptTimeoutSec bounds one generic fetch attempt.
	AttemptTimeoutSec int `yaml:"attempt_timeout_sec"`

	// UserAgent is sent on direct fetches.
	UserAgent string `yaml:"user_agent"`
	// MaxBytes caps a fetched body.
	MaxBytes int64 `yaml:"max_bytes"`
	// ProxyURL enables the proxy strategy.
	ProxyURL string `yaml:"proxy_url"`
	// BraveAPIKey enables the brave search-snippet strategy.
	BraveAPIKey string `yaml:"brave_api_key"`

	// BrowserURL is a remote DevTools endpoint for the playwright
	// strategy. Empty launches a local headless browser on demand.
	BrowserURL string `yaml:"browser_url"`

	// StoreTimeoutSec bounds each memory-capability call.
	StoreTimeoutSec int `yaml:"store_timeout_sec"`
	// MemoryDB is the SQLite path backing the built-in memory capability.
	// Ignored when a Memory implementation is injected via WithMemory.
	MemoryDB string `yaml:"memory_db"`

	// OutputDir is where fetched content lands.
	OutputDir string `yaml:"output_dir"`

	// VideoCommand, when set, enables the video-platform special case by
	// shelling out to an external transcript tool (e.g. a yt-dlp wrapper).
	VideoCommand string   `yaml:"video_command"`
	VideoArgs    []string `yaml:"video_args"`

	// BatchConcurrency bounds simultaneously in-flight URLs in a batch.
	BatchConcurrency int `yaml:"batch_concurrency"`

	// MaxQuestions caps interview size.
	MaxQuestions int `yaml:"max_questions"`

	// ListenAddr is the HTTP API bind address used by the daemon.
	ListenAddr string `yaml:"listen_addr"`
}

func (c *Config) defaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.AttemptTimeoutSec <= 0 {
		c.AttemptTimeoutSec = 60
	}
	if c.UserAgent == "" {
		c.UserAgent = "repeche/1.0"
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.StoreTimeoutSec <= 0 {
		c.StoreTimeoutSec = 30
	}
	if c.MemoryDB == "" {
		c.MemoryDB = "data/memory.db"
	}
	if c.OutputDir == "" {
		c.OutputDir = "data/fetched"
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 3
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = 10
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8094"
	}
}

func defaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// LoadConfig reads a YAML config file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.defaults()
	return &c, nil
}

func (c *Config) engineConfig() engine.Config {
	return engine.Config{
		Strategies:     c.Strategies,
		MaxRetries:     c.MaxRetries,
		AttemptTimeout: time.Duration(c.AttemptTimeoutSec) * time.Second,
		OutputDir:      c.OutputDir,
	}
}

func (c *Config) httpConfig() fetcher.HTTPConfig {
	return fetcher.HTTPConfig{
		Timeout:     time.Duration(c.AttemptTimeoutSec) * time.Second,
		MaxBytes:    c.MaxBytes,
		UserAgent:   c.UserAgent,
		ProxyURL:    c.ProxyURL,
		BraveAPIKey: c.BraveAPIKey,
	}
}

func (c *Config) browserConfig() fetcher.BrowserConfig {
	return fetcher.BrowserConfig{
		RemoteURL: c.BrowserURL,
		Timeout:   time.Duration(c.AttemptTimeoutSec) * time.Second,
	}
}

func (c *Config) storeConfig() strategy.StoreConfig {
	return strategy.StoreConfig{
		Timeout: time.Duration(c.StoreTimeoutSec) * time.Second,
	}
}
