// Package config holds the hub process configuration.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Config is the full hub configuration. File values are overlaid by
// environment variables; env always wins.
type Config struct {
	// Host and Port bind the HTTP listener.
	Host string `json:"host"`
	Port int    `json:"port"`

	// SelfURL is the public base URL of this process. Telegram webhooks
	// are registered against it.
	SelfURL string `json:"self_url"`
	// SelfToken authenticates control-plane requests (X-API-KEY).
	SelfToken string `json:"self_token"`

	// ServiceURL is the Designer Service base URL.
	ServiceURL string `json:"service_url"`
	// ServiceToken authenticates against the Designer Service.
	ServiceToken string `json:"service_token"`
	// ServiceUnixSock, when set, dials the Designer Service over a unix
	// socket instead of TCP.
	ServiceUnixSock string `json:"service_unix_sock"`

	// RedisURL is the scratch store backend.
	RedisURL string `json:"redis_url"`

	Debug bool `json:"debug"`

	// WebhookSecret is generated per process start and verified on every
	// webhook request. Never read from file or env.
	WebhookSecret string `json:"-"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Host:     "0.0.0.0",
		Port:     8000,
		RedisURL: "redis://localhost:6379/0",
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; env vars alone are a valid setup.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = GenerateWebhookSecret()
	}
	return cfg, nil
}

// Validate reports the first missing required value.
func (c *Config) Validate() error {
	switch {
	case c.SelfURL == "":
		return fmt.Errorf("config: self_url (SELF_URL) is required")
	case c.SelfToken == "":
		return fmt.Errorf("config: self_token (SELF_TOKEN) is required")
	case c.ServiceURL == "":
		return fmt.Errorf("config: service_url (SERVICE_URL) is required")
	case c.ServiceToken == "":
		return fmt.Errorf("config: service_token (SERVICE_TOKEN) is required")
	}
	return nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("SELF_URL", &c.SelfURL)
	envStr("SELF_TOKEN", &c.SelfToken)
	envStr("SERVICE_URL", &c.ServiceURL)
	envStr("SERVICE_TOKEN", &c.ServiceToken)
	envStr("SERVICE_UNIX_SOCK", &c.ServiceUnixSock)
	envStr("REDIS_URL", &c.RedisURL)
	envStr("HOST", &c.Host)

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = v == "true" || v == "1"
	}
}

// GenerateWebhookSecret returns a fresh 64-character hex secret.
func GenerateWebhookSecret() string {
	buf := make([]byte, 32)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
