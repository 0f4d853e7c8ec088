// Package config loads runtime configuration for the ProfileHub CLI.
//
// Sources & precedence (later overrides earlier):
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables, optionally seeded from a .env file.
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags.
//
// Supported flags:
//
//	-a string   NATS broker URL
//	-t int      request timeout (seconds)
//	-m string   metrics listen address (empty disables the listener)
//	-demo       run against the built-in in-memory backend
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the ProfileHub CLI.
//
// RefreshMargin is how long before access-token expiry the proactive refresh
// fires. TokenCachePath is where the refresh token is persisted between runs.
type Config struct {
	BrokerURL       string
	RequestTimeout  time.Duration
	RefreshMargin   time.Duration
	TokenCachePath  string
	ActivityLimit   int
	ChallengesLimit int
	MetricsAddr     string
	Demo            bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BrokerURL = "nats://127.0.0.1:4222"
	c.RequestTimeout = 5 * time.Second
	c.RefreshMargin = 30 * time.Second
	c.TokenCachePath = defaultTokenCachePath()
	c.ActivityLimit = 10
	c.ChallengesLimit = 3
	c.MetricsAddr = ""
	c.Demo = false
}

// LoadConfig constructs a Config, applies defaults, then overlays environment
// variables, JSON (if present) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

func defaultTokenCachePath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, ".profilehub", "session.json")
}
