// Package config provides configuration loading and validation for the service and CLI.
// Values come from defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/showstart-scout/internal/server/ratelimit"
)

// Search modes for POST /search/rapper.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Browser   BrowserConfig   `yaml:"browser"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Verbose   bool            `yaml:"verbose"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Mode is sync (wait for the outcome) or async (202 with a task id).
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite3; inferred from URL when empty
	URL    string `yaml:"url"`
}

// LLMConfig configures the model behind the browsing agent.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// SearchConfig bounds search requests.
type SearchConfig struct {
	MinTimeoutSeconds     int    `yaml:"min_timeout_seconds"`
	MaxTimeoutSeconds     int    `yaml:"max_timeout_seconds"`
	DefaultTimeoutSeconds int    `yaml:"default_timeout_seconds"`
	MaxConcurrent         int    `yaml:"max_concurrent"`
	SiteURL               string `yaml:"site_url"`
}

// BrowserConfig controls page rendering.
type BrowserConfig struct {
	// Enabled selects headless Chrome; when false pages are fetched over plain HTTP.
	Enabled       bool          `yaml:"enabled"`
	Headless      bool          `yaml:"headless"`
	RenderTimeout time.Duration `yaml:"render_timeout"`
}

// RateLimitConfig mirrors ratelimit.Config in file form.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DefaultLimit    int           `yaml:"default_limit"`
	DefaultWindow   time.Duration `yaml:"default_window"`
	SearchLimit     int           `yaml:"search_limit"`
	SearchWindow    time.Duration `yaml:"search_window"`
	SearchBurst     int           `yaml:"search_burst"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Whitelist       string        `yaml:"whitelist"`
	Blacklist       string        `yaml:"blacklist"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Mode:            ModeSync,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "showscout.db",
		},
		LLM: LLMConfig{
			Model: "gemini-2.5-flash",
		},
		Search: SearchConfig{
			MinTimeoutSeconds:     30,
			MaxTimeoutSeconds:     600,
			DefaultTimeoutSeconds: 300,
			MaxConcurrent:         2,
			SiteURL:               "https://www.showstart.com/event/list",
		},
		Browser: BrowserConfig{
			Enabled:       true,
			Headless:      true,
			RenderTimeout: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			SearchLimit:     10,
			SearchWindow:    time.Hour,
			SearchBurst:     2,
			CleanupInterval: 5 * time.Minute,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if any), then environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from environment variables. Unparseable values are ignored.
func (c *Config) applyEnv(lookup lookupFunc) {
	setString(lookup, "HOST", &c.Server.Host)
	setInt(lookup, "PORT", &c.Server.Port)
	setString(lookup, "SEARCH_MODE", &c.Server.Mode)
	setDuration(lookup, "SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	setString(lookup, "DATABASE_DRIVER", &c.Database.Driver)
	setString(lookup, "DATABASE_URL", &c.Database.URL)

	setString(lookup, "GEMINI_API_KEY", &c.LLM.APIKey)
	setString(lookup, "LLM_MODEL", &c.LLM.Model)

	setInt(lookup, "MIN_TIMEOUT_SECONDS", &c.Search.MinTimeoutSeconds)
	setInt(lookup, "MAX_TIMEOUT_SECONDS", &c.Search.MaxTimeoutSeconds)
	setInt(lookup, "DEFAULT_TIMEOUT_SECONDS", &c.Search.DefaultTimeoutSeconds)
	setInt(lookup, "SEARCH_MAX_CONCURRENT", &c.Search.MaxConcurrent)
	setString(lookup, "SEARCH_SITE_URL", &c.Search.SiteURL)

	setBool(lookup, "BROWSER_ENABLED", &c.Browser.Enabled)
	setBool(lookup, "BROWSER_HEADLESS", &c.Browser.Headless)
	setDuration(lookup, "BROWSER_RENDER_TIMEOUT", &c.Browser.RenderTimeout)

	setBool(lookup, "RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	setInt(lookup, "RATE_LIMIT_DEFAULT_LIMIT", &c.RateLimit.DefaultLimit)
	setDuration(lookup, "RATE_LIMIT_DEFAULT_WINDOW", &c.RateLimit.DefaultWindow)
	setInt(lookup, "RATE_LIMIT_SEARCH_LIMIT", &c.RateLimit.SearchLimit)
	setDuration(lookup, "RATE_LIMIT_SEARCH_WINDOW", &c.RateLimit.SearchWindow)
	setInt(lookup, "RATE_LIMIT_SEARCH_BURST", &c.RateLimit.SearchBurst)
	setDuration(lookup, "RATE_LIMIT_CLEANUP_INTERVAL", &c.RateLimit.CleanupInterval)
	setString(lookup, "RATE_LIMIT_WHITELIST", &c.RateLimit.Whitelist)
	setString(lookup, "RATE_LIMIT_BLACKLIST", &c.RateLimit.Blacklist)

	setBool(lookup, "VERBOSE", &c.Verbose)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: port must be between 1 and 65535, got %d", c.Server.Port)
	}
	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
	if c.Server.Mode != ModeSync && c.Server.Mode != ModeAsync {
		return fmt.Errorf("config error: mode must be %q or %q, got %q", ModeSync, ModeAsync, c.Server.Mode)
	}

	s := c.Search
	if s.MinTimeoutSeconds < 1 {
		return fmt.Errorf("config error: min_timeout_seconds must be at least 1")
	}
	if s.MaxTimeoutSeconds < s.MinTimeoutSeconds {
		return fmt.Errorf("config error: max_timeout_seconds (%d) is below min_timeout_seconds (%d)", s.MaxTimeoutSeconds, s.MinTimeoutSeconds)
	}
	if s.DefaultTimeoutSeconds < 0 || s.DefaultTimeoutSeconds > s.MaxTimeoutSeconds {
		return fmt.Errorf("config error: default_timeout_seconds must be between 0 and %d", s.MaxTimeoutSeconds)
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("config error: max_concurrent must be at least 1")
	}

	if c.RateLimit.Enabled && (c.RateLimit.SearchLimit < 0 || c.RateLimit.DefaultLimit < 0) {
		return fmt.Errorf("config error: rate limits must be non-negative")
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CheckTimeout validates a requested timeout against the configured bounds.
func (s SearchConfig) CheckTimeout(seconds int) error {
	if seconds < s.MinTimeoutSeconds || seconds > s.MaxTimeoutSeconds {
		return fmt.Errorf("timeout_seconds must be between %d and %d", s.MinTimeoutSeconds, s.MaxTimeoutSeconds)
	}
	return nil
}

// RateLimiter converts the file form into a ratelimit.Config.
func (r RateLimitConfig) RateLimiter() *ratelimit.Config {
	return &ratelimit.Config{
		Enabled:         r.Enabled,
		DefaultLimit:    r.DefaultLimit,
		DefaultWindow:   r.DefaultWindow,
		CleanupInterval: r.CleanupInterval,
		Whitelist:       ratelimit.ParseIPList(r.Whitelist),
		Blacklist:       ratelimit.ParseIPList(r.Blacklist),
		EndpointConfigs: ratelimit.SearchEndpointConfigs(r.SearchLimit, r.SearchWindow, r.SearchBurst),
	}
}

func setString(lookup lookupFunc, key string, dst *string) {
	if value, ok := lookup(key); ok && value != "" {
		*dst = value
	}
}

func setInt(lookup lookupFunc, key string, dst *int) {
	if value, ok := lookup(key); ok && value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = n
		}
	}
}

func setBool(lookup lookupFunc, key string, dst *bool) {
	if value, ok := lookup(key); ok && value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}

// setDuration accepts Go durations ("90s") or plain seconds ("90").
func setDuration(lookup lookupFunc, key string, dst *time.Duration) {
	value, ok := lookup(key)
	if !ok || value == "" {
		return
	}
	if d, err := time.ParseDuration(value); err == nil {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(value); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}
