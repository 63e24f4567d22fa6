package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Limits    Limits          `yaml:"limits"`
	Store     StoreConfig     `yaml:"store"`
	Notify    NotifyConfig    `yaml:"notify"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Cache     CacheConfig     `yaml:"cache"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 5000
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance used for rendering.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// MaxSessions bounds how many rendering sessions may be open at once.
	// Further requests wait in FIFO order.
	MaxSessions int `yaml:"maxSessions"` // default: 4

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string `yaml:"proxy"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"noSandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"bin"`

	// Stealth injects the go-rod/stealth evasions into every session.
	Stealth bool `yaml:"stealth"` // default: false

	// UserAgent is sent by both the static client and the browser.
	UserAgent string `yaml:"userAgent"`

	ViewportWidth  int `yaml:"viewportWidth"`  // default: 1920
	ViewportHeight int `yaml:"viewportHeight"` // default: 1080

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string `yaml:"blockedResources"`
}

// StoreConfig controls result persistence.
type StoreConfig struct {
	// Path is the SQLite database file; ":memory:" keeps results in memory.
	Path string `yaml:"path"` // default: "sectionscraper.db"
}

// NotifyConfig controls completion webhooks. Notifications are disabled
// when WebhookURL is empty.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
	Secret     string `yaml:"secret"`
}

// Configured reports whether a webhook target is set.
func (c NotifyConfig) Configured() bool { return c.WebhookURL != "" }

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: false

	APIKeys []string `yaml:"apiKeys"`
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 `yaml:"rps"` // default: 2

	// Burst is the maximum burst size per identity.
	Burst int `yaml:"burst"` // default: 5
}

// CacheConfig controls the scrape result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int `yaml:"maxEntries"` // default: 500
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"` // default: ["http://localhost:3000"]
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// DefaultUserAgent is the desktop Chrome user agent used by both fetchers.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Mode: "release",
		},
		Browser: BrowserConfig{
			Headless:       true,
			MaxSessions:    4,
			UserAgent:      DefaultUserAgent,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			BlockedResourceTypes: []string{
				"Image", "Stylesheet", "Font", "Media",
			},
		},
		Limits: DefaultLimits(),
		Store: StoreConfig{
			Path: "sectionscraper.db",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Cache: CacheConfig{
			MaxEntries: 500,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by SECTIONSCRAPER_CONFIG, then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("SECTIONSCRAPER_CONFIG"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server = ServerConfig{
		Host: envOr("SECTIONSCRAPER_HOST", c.Server.Host),
		Port: envIntOr("SECTIONSCRAPER_PORT", c.Server.Port),
		Mode: envOr("SECTIONSCRAPER_MODE", c.Server.Mode),
	}
	c.Browser = BrowserConfig{
		Headless:             envBoolOr("SECTIONSCRAPER_HEADLESS", c.Browser.Headless),
		MaxSessions:          envIntOr("SECTIONSCRAPER_MAX_SESSIONS", c.Browser.MaxSessions),
		DefaultProxy:         envOr("SECTIONSCRAPER_PROXY", c.Browser.DefaultProxy),
		NoSandbox:            envBoolOr("SECTIONSCRAPER_NO_SANDBOX", c.Browser.NoSandbox),
		BrowserBin:           envOr("SECTIONSCRAPER_BROWSER_BIN", c.Browser.BrowserBin),
		Stealth:              envBoolOr("SECTIONSCRAPER_STEALTH", c.Browser.Stealth),
		UserAgent:            envOr("SECTIONSCRAPER_USER_AGENT", c.Browser.UserAgent),
		ViewportWidth:        envIntOr("SECTIONSCRAPER_VIEWPORT_WIDTH", c.Browser.ViewportWidth),
		ViewportHeight:       envIntOr("SECTIONSCRAPER_VIEWPORT_HEIGHT", c.Browser.ViewportHeight),
		BlockedResourceTypes: envSliceOr("SECTIONSCRAPER_BLOCKED_RESOURCES", c.Browser.BlockedResourceTypes),
	}
	c.Limits.LowContentThreshold = envIntOr("SECTIONSCRAPER_LOW_CONTENT", c.Limits.LowContentThreshold)
	c.Limits.MaxScrolls = envIntOr("SECTIONSCRAPER_MAX_SCROLLS", c.Limits.MaxScrolls)
	c.Limits.StaticTimeout = envDurationOr("SECTIONSCRAPER_STATIC_TIMEOUT", c.Limits.StaticTimeout)
	c.Limits.NavigationTimeout = envDurationOr("SECTIONSCRAPER_NAV_TIMEOUT", c.Limits.NavigationTimeout)
	c.Store.Path = envOr("SECTIONSCRAPER_DB", c.Store.Path)
	c.Notify = NotifyConfig{
		WebhookURL: envOr("SECTIONSCRAPER_WEBHOOK_URL", c.Notify.WebhookURL),
		Secret:     envOr("SECTIONSCRAPER_WEBHOOK_SECRET", c.Notify.Secret),
	}
	c.Auth = AuthConfig{
		Enabled: envBoolOr("SECTIONSCRAPER_AUTH_ENABLED", c.Auth.Enabled),
		APIKeys: envSliceOr("SECTIONSCRAPER_API_KEYS", c.Auth.APIKeys),
	}
	c.RateLimit = RateLimitConfig{
		RequestsPerSecond: envFloatOr("SECTIONSCRAPER_RATE_RPS", c.RateLimit.RequestsPerSecond),
		Burst:             envIntOr("SECTIONSCRAPER_RATE_BURST", c.RateLimit.Burst),
	}
	c.Cache.MaxEntries = envIntOr("SECTIONSCRAPER_CACHE_MAX_ENTRIES", c.Cache.MaxEntries)
	c.CORS.AllowedOrigins = envSliceOr("SECTIONSCRAPER_CORS_ORIGINS", c.CORS.AllowedOrigins)
	c.Log = LogConfig{
		Level:  envOr("SECTIONSCRAPER_LOG_LEVEL", c.Log.Level),
		Format: envOr("SECTIONSCRAPER_LOG_FORMAT", c.Log.Format),
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
