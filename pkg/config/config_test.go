package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Gateway.Path != "/v1/infer" {
		t.Errorf("Gateway.Path = %s, want /v1/infer", cfg.Gateway.Path)
	}
	if cfg.Timeouts.Request != 60*time.Second {
		t.Errorf("Timeouts.Request = %s, want 60s", cfg.Timeouts.Request)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %s, want text", cfg.Logging.Format)
	}
}

func TestParse_ValidConfig(t *testing.T) {
	yamlConfig := `
gateway:
  url: "https://gateway.example.com"
  public_key_b64: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
  bearer_token: "secret-token"

timeouts:
  request: 30s

ticket_pool:
  path: "./tickets.json"

logging:
  level: "debug"
  format: "json"
`
	cfg, err := Parse([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	if cfg.Gateway.URL != "https://gateway.example.com" {
		t.Errorf("Gateway.URL = %s", cfg.Gateway.URL)
	}
	if cfg.Gateway.Path != "/v1/infer" {
		t.Errorf("Gateway.Path = %s, want default /v1/infer to survive merge", cfg.Gateway.Path)
	}
	if cfg.Timeouts.Request != 30*time.Second {
		t.Errorf("Timeouts.Request = %s, want 30s", cfg.Timeouts.Request)
	}
	if cfg.TicketPool.Path != "./tickets.json" {
		t.Errorf("TicketPool.Path = %s", cfg.TicketPool.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestParse_MissingGatewayURL(t *testing.T) {
	yamlConfig := `
gateway:
  public_key_b64: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
`
	_, err := Parse([]byte(yamlConfig))
	if err == nil {
		t.Fatal("expected error for missing gateway.url")
	}
	if !strings.Contains(err.Error(), "gateway.url is required") {
		t.Errorf("error = %v, want mention of gateway.url", err)
	}
}

func TestParse_MissingPublicKey(t *testing.T) {
	yamlConfig := `
gateway:
  url: "https://gateway.example.com"
`
	_, err := Parse([]byte(yamlConfig))
	if err == nil {
		t.Fatal("expected error for missing gateway.public_key_b64")
	}
	if !strings.Contains(err.Error(), "gateway.public_key_b64 is required") {
		t.Errorf("error = %v, want mention of public_key_b64", err)
	}
}

func TestParse_InvalidLogLevel(t *testing.T) {
	yamlConfig := `
gateway:
  url: "https://gateway.example.com"
  public_key_b64: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
logging:
  level: "verbose"
`
	_, err := Parse([]byte(yamlConfig))
	if err == nil {
		t.Fatal("expected error for invalid logging.level")
	}
	if !strings.Contains(err.Error(), "invalid logging.level") {
		t.Errorf("error = %v, want mention of invalid logging.level", err)
	}
}

func TestRedactedHidesBearerToken(t *testing.T) {
	cfg := Default()
	cfg.Gateway.URL = "https://gateway.example.com"
	cfg.Gateway.BearerToken = "super-secret"

	redacted := cfg.Redacted()
	if redacted.Gateway.BearerToken != redactedValue {
		t.Errorf("Redacted().Gateway.BearerToken = %s, want %s", redacted.Gateway.BearerToken, redactedValue)
	}
	if cfg.Gateway.BearerToken != "super-secret" {
		t.Error("Redacted() must not mutate the original config")
	}

	rendered := cfg.String()
	if strings.Contains(rendered, "super-secret") {
		t.Errorf("String() leaked bearer token: %s", rendered)
	}
	if !strings.Contains(rendered, redactedValue) {
		t.Errorf("String() missing redaction marker: %s", rendered)
	}
}
