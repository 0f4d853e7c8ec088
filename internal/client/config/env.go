package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables, first seeding the
// environment from a .env file in the working directory if one exists.
// Already-set variables win over .env entries.
//
// Recognized variables:
//
//	PROFILEHUB_BROKER_URL       NATS broker URL
//	PROFILEHUB_REQUEST_TIMEOUT  duration, e.g. "5s"
//	PROFILEHUB_REFRESH_MARGIN   duration, e.g. "30s"
//	PROFILEHUB_TOKEN_CACHE      token cache file path
//	PROFILEHUB_METRICS_ADDR     metrics listen address
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("PROFILEHUB_BROKER_URL"); v != "" {
		cfg.BrokerURL = v
	}
	if v := os.Getenv("PROFILEHUB_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("PROFILEHUB_REFRESH_MARGIN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshMargin = d
		}
	}
	if v := os.Getenv("PROFILEHUB_TOKEN_CACHE"); v != "" {
		cfg.TokenCachePath = v
	}
	if v := os.Getenv("PROFILEHUB_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("PROFILEHUB_ACTIVITY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ActivityLimit = n
		}
	}
	if v := os.Getenv("PROFILEHUB_CHALLENGES_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChallengesLimit = n
		}
	}
}
