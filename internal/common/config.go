package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Storage     StorageConfig  `toml:"storage"`
	Auth        AuthConfig     `toml:"auth"`
	Upstream    UpstreamConfig `toml:"upstream"`
	Redirects   RedirectConfig `toml:"redirects"`
	Refresh     RefreshConfig  `toml:"refresh"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Type   string       `toml:"type"` // "badger" (durable) or "memory"
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// AuthConfig controls the EBSCO login flow that yields Motor credentials.
type AuthConfig struct {
	Mode              string        `toml:"mode"`               // "browser" (chromedp) or "http" (redirect follower)
	LoginURL          string        `toml:"login_url"`          // EBSCO entry point that triggers the OAuth flow
	NextStepURL       string        `toml:"next_step_url"`      // Prompted-login API endpoint (http mode)
	CardNumber        string        `toml:"card_number"`        // Library card for the shared single-tenant session
	TargetDomain      string        `toml:"target_domain"`      // Vendor domain that marks flow completion
	UserAgent         string        `toml:"user_agent"`         // Browser-like user agent for the login flow
	NavigationTimeout time.Duration `toml:"navigation_timeout"` // Page-load deadline
	SelectorTimeout   time.Duration `toml:"selector_timeout"`   // Card-input wait deadline
	PollInterval      time.Duration `toml:"poll_interval"`      // URL polling cadence after submit
	MaxPollAttempts   int           `toml:"max_poll_attempts"`  // Polling cap before timeout
	Headless          bool          `toml:"headless"`
	NoSandbox         bool          `toml:"no_sandbox"`
}

// UpstreamConfig describes the two Motor hosts and proxy behavior.
type UpstreamConfig struct {
	SitesURL       string        `toml:"sites_url"`      // Cookie-authenticated internal API host
	APIURL         string        `toml:"api_url"`        // Signature-authenticated API host (versioned prefix included)
	ProxyBaseURL   string        `toml:"proxy_base_url"` // When set, chained deployments forward here instead of the vendor
	HTMLPolicy     string        `toml:"html_policy"`    // "relay" (pass HTML through verbatim) or "error" (structured JSON error)
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// RedirectConfig bounds the manual redirect follower.
type RedirectConfig struct {
	MaxHops  int           `toml:"max_hops"`  // Hop-count ceiling
	HopDelay time.Duration `toml:"hop_delay"` // Minimum spacing between hops
}

// RefreshConfig schedules re-authentication of the shared session.
type RefreshConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
}

// NewDefaultConfig returns the built-in defaults. Config files, environment
// variables, and CLI flags override these in that order.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 3001,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path:           "./data/cruis",
				ResetOnStartup: false,
			},
		},
		Auth: AuthConfig{
			Mode:              "browser",
			LoginURL:          "https://search.ebscohost.com/login.aspx?authtype=ip,cpid&custid=s5672256&groupid=main&profile=autorepso",
			NextStepURL:       "https://login.ebsco.com/api/login/v1/prompted/next-step",
			TargetDomain:      "motor.com",
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36",
			NavigationTimeout: 30 * time.Second,
			SelectorTimeout:   15 * time.Second,
			PollInterval:      1 * time.Second,
			MaxPollAttempts:   30,
			Headless:          true,
			NoSandbox:         true,
		},
		Upstream: UpstreamConfig{
			SitesURL:       "https://sites.motor.com",
			APIURL:         "https://api.motor.com/v1",
			HTMLPolicy:     "relay",
			RequestTimeout: 30 * time.Second,
		},
		Redirects: RedirectConfig{
			MaxHops:  10,
			HopDelay: 100 * time.Millisecond,
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Schedule: "0 */6 * * *", // Every 6 hours
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CRUIS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("CRUIS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CRUIS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("CRUIS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if storageType := os.Getenv("CRUIS_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if path := os.Getenv("CRUIS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if mode := os.Getenv("CRUIS_AUTH_MODE"); mode != "" {
		config.Auth.Mode = mode
	}
	if card := os.Getenv("CRUIS_CARD_NUMBER"); card != "" {
		config.Auth.CardNumber = card
	}
	if loginURL := os.Getenv("CRUIS_LOGIN_URL"); loginURL != "" {
		config.Auth.LoginURL = loginURL
	}

	if proxyBase := os.Getenv("CRUIS_PROXY_BASE_URL"); proxyBase != "" {
		config.Upstream.ProxyBaseURL = proxyBase
	}
	if policy := os.Getenv("CRUIS_HTML_POLICY"); policy != "" {
		config.Upstream.HTMLPolicy = policy
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "badger", "memory":
	default:
		return fmt.Errorf("invalid storage type %q (expected badger or memory)", c.Storage.Type)
	}

	switch c.Auth.Mode {
	case "browser", "http":
	default:
		return fmt.Errorf("invalid auth mode %q (expected browser or http)", c.Auth.Mode)
	}

	switch c.Upstream.HTMLPolicy {
	case "relay", "error":
	default:
		return fmt.Errorf("invalid html policy %q (expected relay or error)", c.Upstream.HTMLPolicy)
	}

	if c.Redirects.MaxHops <= 0 {
		return fmt.Errorf("redirects.max_hops must be positive, got %d", c.Redirects.MaxHops)
	}

	return nil
}
