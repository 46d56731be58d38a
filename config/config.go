package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/use-agent/omniscrape/route"
	"github.com/use-agent/omniscrape/sites"
)

// EnvPrefix prefixes every environment override, e.g. OMNISCRAPE_BROWSER_HEADLESS.
const EnvPrefix = "OMNISCRAPE"

// DefaultUserAgent is presented by the browser and the HTTP engines.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Media     MediaConfig     `mapstructure:"media"`
	Download  DownloadConfig  `mapstructure:"download"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`

	// Sites adds card-list scrapers on top of the built-in ones.
	Sites []sites.Schema `mapstructure:"sites"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host"` // default: "0.0.0.0"
	Port int    `mapstructure:"port"` // default: 8080
	Mode string `mapstructure:"mode"` // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless hides the browser window. A visible browser lets an operator
	// solve challenges.
	Headless bool `mapstructure:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `mapstructure:"no_sandbox"`

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `mapstructure:"bin"`

	// Proxy is the proxy URL for all browser traffic.
	Proxy string `mapstructure:"proxy"`

	// Stealth injects anti-detection scripts into every page.
	Stealth bool `mapstructure:"stealth"` // default: true

	UserAgent      string `mapstructure:"user_agent"`
	ViewportWidth  int    `mapstructure:"viewport_width"`  // default: 1920
	ViewportHeight int    `mapstructure:"viewport_height"` // default: 1080

	// StorageState is the cookie jar file loaded at launch and saved on
	// close. Empty disables persistence.
	StorageState string `mapstructure:"storage_state"` // default: "storage_state.json"
}

// ScraperConfig controls page loading and extraction.
type ScraperConfig struct {
	// NavigationTimeout bounds page.Navigate alone.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"` // default: 30s

	// SelectorTimeout bounds waits for elements.
	SelectorTimeout time.Duration `mapstructure:"selector_timeout"` // default: 15s

	// RunTimeout bounds a whole run; 0 disables it.
	RunTimeout time.Duration `mapstructure:"run_timeout"` // default: 10m

	// ImageSettle is the pause after each scroll while waiting for lazy images.
	ImageSettle time.Duration `mapstructure:"image_settle"` // default: 1s

	// MinImageSize drops images at most this many pixels on a side.
	MinImageSize int `mapstructure:"min_image_size"` // default: 50

	// BlockedResourceTypes lists resource types the browser never loads.
	BlockedResourceTypes []string `mapstructure:"blocked_resource_types"` // default: ["Font"]

	// BlockAds drops requests to well-known ad and tracking hosts.
	BlockAds bool `mapstructure:"block_ads"` // default: true
}

// EngineConfig controls page sources and fast-path memory.
type EngineConfig struct {
	// Static reads pages over plain HTTP instead of a browser.
	Static bool `mapstructure:"static"`

	// StaticFallback uses the HTTP source when the browser cannot launch.
	StaticFallback bool `mapstructure:"static_fallback"` // default: true

	HTTPTimeout time.Duration `mapstructure:"http_timeout"` // default: 20s

	// ForbiddenTTL is how long a host that refused the fast path (403) is
	// sent straight to the browser.
	ForbiddenTTL time.Duration `mapstructure:"forbidden_ttl"` // default: 24h
}

// MediaConfig controls media resolution.
type MediaConfig struct {
	YTDLPBinary   string        `mapstructure:"ytdlp_binary"` // default: "yt-dlp"
	ExtraArgs     []string      `mapstructure:"extra_args"`
	DirectDomains []string      `mapstructure:"direct_domains"`
	Download      bool          `mapstructure:"download"` // default: true
	Timeout       time.Duration `mapstructure:"timeout"`  // default: 30m
}

// DownloadConfig controls file downloads.
type DownloadConfig struct {
	Dir             string        `mapstructure:"dir"` // default: "downloads"
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host"` // default: 8
	Timeout         time.Duration `mapstructure:"timeout"`            // default: 2m
	UserAgent       string        `mapstructure:"user_agent"`
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"` // default: true
	APIKeys []string `mapstructure:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"rps"`   // default: 2
	Burst             int     `mapstructure:"burst"` // default: 4
}

// CacheConfig controls the API report cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"` // default: 1h
}

// WebhookConfig controls run notifications. An empty URL disables them.
type WebhookConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`

	// FlushTimeout bounds how long shutdown waits for pending deliveries.
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // default: "info"
	Format string `mapstructure:"format"` // "json" or "text"; empty picks text for runs, json for serve
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.storage_state", "storage_state.json")

	v.SetDefault("scraper.navigation_timeout", 30*time.Second)
	v.SetDefault("scraper.selector_timeout", 15*time.Second)
	v.SetDefault("scraper.run_timeout", 10*time.Minute)
	v.SetDefault("scraper.image_settle", time.Second)
	v.SetDefault("scraper.min_image_size", 50)
	v.SetDefault("scraper.blocked_resource_types", []string{"Font"})
	v.SetDefault("scraper.block_ads", true)

	v.SetDefault("engine.static", false)
	v.SetDefault("engine.static_fallback", true)
	v.SetDefault("engine.http_timeout", 20*time.Second)
	v.SetDefault("engine.forbidden_ttl", 24*time.Hour)

	v.SetDefault("media.ytdlp_binary", "yt-dlp")
	v.SetDefault("media.extra_args", []string{})
	v.SetDefault("media.direct_domains", route.DefaultDirectDomains)
	v.SetDefault("media.download", true)
	v.SetDefault("media.timeout", 30*time.Minute)

	v.SetDefault("download.dir", "downloads")
	v.SetDefault("download.max_concurrent", 0)
	v.SetDefault("download.max_conns_per_host", 8)
	v.SetDefault("download.timeout", 2*time.Minute)
	v.SetDefault("download.user_agent", DefaultUserAgent)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.api_keys", []string{})

	v.SetDefault("rate_limit.rps", 2.0)
	v.SetDefault("rate_limit.burst", 4)

	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.flush_timeout", 45*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
}

// Load reads configuration from defaults, an optional YAML file and
// OMNISCRAPE_* environment variables, in increasing precedence.
//
// With an explicit path the file must exist. Otherwise omniscrape.yaml is
// looked up in the working directory and $HOME/.omniscrape.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("omniscrape")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.omniscrape")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Download.Dir = expandPath(cfg.Download.Dir)
	cfg.Browser.StorageState = expandPath(cfg.Browser.StorageState)
	cfg.Browser.BrowserBin = expandPath(cfg.Browser.BrowserBin)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case strings.TrimSpace(c.Download.Dir) == "":
		return errors.New("download.dir must not be empty")
	case c.Download.MaxConcurrent < 0:
		return errors.New("download.max_concurrent must not be negative")
	case c.Scraper.NavigationTimeout <= 0:
		return errors.New("scraper.navigation_timeout must be positive")
	case c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0:
		return errors.New("rate_limit.rps and rate_limit.burst must be positive")
	case c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0:
		return errors.New("browser viewport must be positive")
	}
	return nil
}

// expandPath expands environment variables and a leading ~ in path.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
