package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Source    SourceConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Extract   ExtractConfig
	Export    ExportConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// SourceConfig names the two external inputs of a run.
type SourceConfig struct {
	// URL is the match-history page rendered in the browser.
	URL string

	// PortraitsURL serves the JSON dictionary of character codes.
	PortraitsURL string

	// Timeout bounds the character code fetch.
	Timeout time.Duration // default: 10s
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// DefaultProxy is the proxy URL passed to Chromium.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// CDPURL connects to an already running browser instead of launching one.
	CDPURL string
}

// ScraperConfig controls page loading.
type ScraperConfig struct {
	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// WaitTimeout bounds the wait for the battle list to render.
	WaitTimeout time.Duration // default: 10s

	// SettleDelay is the upper bound on waiting for the DOM to stop changing
	// after the battle list appeared.
	SettleDelay time.Duration // default: 5s

	// WaitSelector must match at least one element before extraction starts.
	WaitSelector string

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth bool // default: true

	// AcceptLanguage is sent as an extra header so the page renders in English.
	AcceptLanguage string // default: "en-US,en;q=0.9"

	// BlockedResourceTypes lists resource types to block.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// Capacity is the fixed number of slots per side in a record.
type Capacity struct {
	MaxSelected  int // default: 4
	MaxBanned    int // default: 1
	MaxPrebanned int // default: 2
}

// ExtractConfig holds the structural selectors and class markers the
// extraction depends on. These are the only coupling to page markup.
type ExtractConfig struct {
	EntrySelector     string // default: "#battleList > ul > li.battle-info"
	DetailSelector    string // default: "div.battle-result-detail"
	OwnTeamSelector   string // default: ".my-team.w-100"
	EnemyTeamSelector string // default: ".enemy-team.w-100"
	IconSelector      string // default: "span > img"

	BanClass    string // default: "ban"
	PrebanClass string // default: "preban-hero"
	WinClass    string // default: "win"

	Capacity Capacity
}

// ExportConfig controls the output file.
type ExportConfig struct {
	// OutputPath is the destination file, overwritten each run.
	OutputPath string // default: "../data/battle_data.csv"

	// Format is "csv" or "xlsx". Empty means infer from OutputPath.
	Format string
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// RequestTimeout bounds one records request end to end.
	RequestTimeout time.Duration // default: 90s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 0.2

	// Burst is the maximum burst size per API key.
	Burst int // default: 2
}

// WebhookConfig controls the optional run notification.
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration // default: 10s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: ignoring unreadable .env file", "error", err)
	}

	return &Config{
		Source: SourceConfig{
			URL:          envOr("E7RECORD_SOURCE_URL", "https://epic7.gg.onstove.com/en/battlerecord/world_kor/119456895"),
			PortraitsURL: envOr("E7RECORD_PORTRAITS_URL", "https://www.e7vau.lt/static/portraits.json"),
			Timeout:      envDurationOr("E7RECORD_PORTRAITS_TIMEOUT", 10*time.Second),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("E7RECORD_HEADLESS", true),
			DefaultProxy: os.Getenv("E7RECORD_PROXY"),
			NoSandbox:    envBoolOr("E7RECORD_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("E7RECORD_BROWSER_BIN"),
			CDPURL:       os.Getenv("E7RECORD_CDP_URL"),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("E7RECORD_NAV_TIMEOUT", 30*time.Second),
			WaitTimeout:       envDurationOr("E7RECORD_WAIT_TIMEOUT", 10*time.Second),
			SettleDelay:       envDurationOr("E7RECORD_SETTLE_DELAY", 5*time.Second),
			WaitSelector:      envOr("E7RECORD_WAIT_SELECTOR", "#battleList > ul > li.battle-info"),
			Stealth:           envBoolOr("E7RECORD_STEALTH", true),
			AcceptLanguage:    envOr("E7RECORD_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			BlockedResourceTypes: envSliceOr("E7RECORD_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
		},
		Extract: DefaultExtract(),
		Export: ExportConfig{
			OutputPath: envOr("E7RECORD_OUTPUT", "../data/battle_data.csv"),
			Format:     os.Getenv("E7RECORD_FORMAT"),
		},
		Server: ServerConfig{
			Host:           envOr("E7RECORD_HOST", "0.0.0.0"),
			Port:           envIntOr("E7RECORD_PORT", 8080),
			Mode:           envOr("E7RECORD_MODE", "release"),
			RequestTimeout: envDurationOr("E7RECORD_REQUEST_TIMEOUT", 90*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("E7RECORD_AUTH_ENABLED", true),
			APIKeys: envSliceOr("E7RECORD_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("E7RECORD_RATE_RPS", 0.2),
			Burst:             envIntOr("E7RECORD_RATE_BURST", 2),
		},
		Webhook: WebhookConfig{
			URL:     os.Getenv("E7RECORD_WEBHOOK_URL"),
			Secret:  os.Getenv("E7RECORD_WEBHOOK_SECRET"),
			Timeout: envDurationOr("E7RECORD_WEBHOOK_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("E7RECORD_LOG_LEVEL", "info"),
			Format: envOr("E7RECORD_LOG_FORMAT", "text"),
		},
	}
}

// DefaultExtract returns the selectors matching the current match-history
// markup, with capacity overridable from the environment.
func DefaultExtract() ExtractConfig {
	return ExtractConfig{
		EntrySelector:     envOr("E7RECORD_ENTRY_SELECTOR", "#battleList > ul > li.battle-info"),
		DetailSelector:    envOr("E7RECORD_DETAIL_SELECTOR", "div.battle-result-detail"),
		OwnTeamSelector:   envOr("E7RECORD_OWN_TEAM_SELECTOR", ".my-team.w-100"),
		EnemyTeamSelector: envOr("E7RECORD_ENEMY_TEAM_SELECTOR", ".enemy-team.w-100"),
		IconSelector:      envOr("E7RECORD_ICON_SELECTOR", "span > img"),
		BanClass:          envOr("E7RECORD_BAN_CLASS", "ban"),
		PrebanClass:       envOr("E7RECORD_PREBAN_CLASS", "preban-hero"),
		WinClass:          envOr("E7RECORD_WIN_CLASS", "win"),
		Capacity: Capacity{
			MaxSelected:  envIntOr("E7RECORD_MAX_SELECTED", 4),
			MaxBanned:    envIntOr("E7RECORD_MAX_BANNED", 1),
			MaxPrebanned: envIntOr("E7RECORD_MAX_PREBANNED", 2),
		},
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
