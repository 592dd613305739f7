package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string
	DevMode  bool

	// Provider credentials. Yahoo endpoints are keyless.
	FinnhubAPIKey string
	FMPAPIKey     string

	// EventsProvider selects the economic calendar source: "fmp"
	// (month window) or "finnhub" (week window).
	EventsProvider string

	// Per-provider pacing between consecutive requests.
	YahooDelay   time.Duration
	FinnhubDelay time.Duration
	FMPDelay     time.Duration

	// Analytics sidecar. Empty command disables RSI enrichment.
	SidecarCommand []string
	SidecarTimeout time.Duration

	// Cache lifetime overrides; zero keeps the built-in defaults.
	TTLSectors      time.Duration
	TTLEvents       time.Duration
	TTLNews         time.Duration
	TTLWorldMarkets time.Duration
	TTLConstituents time.Duration

	// Delay between boot and the first automatic full fetch.
	StartupFetchDelay time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8090),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FinnhubAPIKey:  getEnv("FINNHUB_API_KEY", ""),
		FMPAPIKey:      getEnv("FMP_API_KEY", ""),
		EventsProvider: getEnv("EVENTS_PROVIDER", "fmp"),

		YahooDelay:   getEnvAsDuration("YAHOO_DELAY", 500*time.Millisecond),
		FinnhubDelay: getEnvAsDuration("FINNHUB_DELAY", time.Second),
		FMPDelay:     getEnvAsDuration("FMP_DELAY", time.Second),

		SidecarCommand: strings.Fields(getEnv("SIDECAR_COMMAND", "")),
		SidecarTimeout: getEnvAsDuration("SIDECAR_TIMEOUT", 30*time.Second),

		TTLSectors:      getEnvAsDuration("TTL_SECTORS", 0),
		TTLEvents:       getEnvAsDuration("TTL_EVENTS", 0),
		TTLNews:         getEnvAsDuration("TTL_NEWS", 0),
		TTLWorldMarkets: getEnvAsDuration("TTL_WORLD_MARKETS", 0),
		TTLConstituents: getEnvAsDuration("TTL_CONSTITUENTS", 0),

		StartupFetchDelay: getEnvAsDuration("STARTUP_FETCH_DELAY", 2*time.Second),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	switch c.EventsProvider {
	case "fmp", "finnhub":
	default:
		return fmt.Errorf("EVENTS_PROVIDER must be fmp or finnhub, got %q", c.EventsProvider)
	}

	// Note: provider API keys optional; requests fail at fetch time
	// with a provider error rather than blocking startup.

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
