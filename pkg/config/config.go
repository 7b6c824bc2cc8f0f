// Package config provides configuration parsing and validation for the
// gateway client.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration.
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	TicketPool TicketPoolConfig `yaml:"ticket_pool"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GatewayConfig identifies the upstream gateway and how to reach it.
type GatewayConfig struct {
	URL           string `yaml:"url"`             // base URL, e.g. https://gateway.example.com
	Path          string `yaml:"path"`             // request path, default /v1/infer
	PublicKeyB64  string `yaml:"public_key_b64"`   // gateway X25519 public key, standard base64
	BearerToken   string `yaml:"bearer_token"`     // optional Authorization bearer token
}

// TimeoutsConfig controls how long the orchestrator waits on the wire.
type TimeoutsConfig struct {
	Request time.Duration `yaml:"request"` // per-call timeout, default 60s
}

// TicketPoolConfig points at the dev ticket pool file, if any. When Path is
// empty the client falls back to ticket.DummySource.
type TicketPoolConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Path: "/v1/infer",
		},
		Timeouts: TimeoutsConfig{
			Request: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, starting from defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.URL == "" {
		errs = append(errs, "gateway.url is required")
	}
	if c.Gateway.Path == "" {
		errs = append(errs, "gateway.path is required")
	}
	if c.Gateway.PublicKeyB64 == "" {
		errs = append(errs, "gateway.public_key_b64 is required")
	}
	if c.Timeouts.Request <= 0 {
		errs = append(errs, "timeouts.request must be positive")
	}
	if !isValidLogLevel(c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level))
	}
	if !isValidLogFormat(c.Logging.Format) {
		errs = append(errs, fmt.Sprintf("invalid logging.format: %s (must be text or json)", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}

// redactedValue is the placeholder for sensitive values.
const redactedValue = "[REDACTED]"

// Redacted returns a copy of the config with the bearer token redacted. Safe
// to log or display to users.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Gateway.BearerToken != "" {
		cp.Gateway.BearerToken = redactedValue
	}
	return &cp
}

// String renders the config as YAML with sensitive values redacted.
func (c *Config) String() string {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return fmt.Sprintf("<config marshal error: %v>", err)
	}
	return string(data)
}
