package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, loaded from the environment.
type Config struct {
	Port    int
	BaseURL string // allowed CORS origin for the calculator frontend

	// DatabaseURL is optional. When empty the service runs stateless:
	// no calculation audit log and no rate-watch snapshots.
	DatabaseURL string

	RateWatch RateWatchConfig
}

// RateWatchConfig holds settings for the rate-table drift monitor.
type RateWatchConfig struct {
	Enabled bool
	FeedURL string
	Timeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for anything unset. There are no required settings; the service is fully
// functional with an empty environment.
func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RateWatch: RateWatchConfig{
			Enabled: getEnvBool("RATEWATCH_ENABLED", true),
			FeedURL: getEnv("RATEWATCH_FEED_URL", "https://euvatrates.com/rates.json"),
			Timeout: getEnvDuration("RATEWATCH_TIMEOUT", 30*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
