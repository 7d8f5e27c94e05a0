// Package config loads server configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Auth configures bearer-token verification.
type Auth struct {
	Mode       string `yaml:"mode"` // dev, hmac, jwks
	HMACSecret string `yaml:"hmac_secret"`
	JWKSURL    string `yaml:"jwks_url"`
	UserClaim  string `yaml:"user_claim"`
	RoleClaim  string `yaml:"role_claim"`
}

// Config is the full server configuration surface.
type Config struct {
	Addr              string  `yaml:"addr"`
	HeartbeatInterval int     `yaml:"heartbeat_interval"` // seconds
	RateRPS           float64 `yaml:"rate_rps"`
	RateBurst         int     `yaml:"rate_burst"`
	Auth              Auth    `yaml:"auth"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:              ":8080",
		HeartbeatInterval: 15,
		RateRPS:           100,
		RateBurst:         200,
		Auth:              Auth{Mode: "dev", UserClaim: "sub", RoleClaim: "role"},
	}
}

// Load reads the YAML file named by PUSHHUB_CONFIG (if set), then applies
// env overrides: PORT, HEARTBEAT_INTERVAL, RATE_RPS, RATE_BURST, AUTH_MODE,
// AUTH_HMAC_SECRET, AUTH_JWKS_URL.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("PUSHHUB_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("HEARTBEAT_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HeartbeatInterval = n
		}
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateRPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateBurst = n
		}
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}
	if v := os.Getenv("AUTH_JWKS_URL"); v != "" {
		cfg.Auth.JWKSURL = v
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = Default().HeartbeatInterval
	}
	return cfg, nil
}

// Heartbeat returns the heartbeat interval as a duration.
func (c Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatInterval) * time.Second
}
