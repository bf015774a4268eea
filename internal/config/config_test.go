package config

import (
	"strings"
	"testing"
)

func baseProdConfig() *Config {
	return &Config{
		IsProduction: true,
		Server: ServerConfig{
			BindAddress:  "127.0.0.1",
			Port:         "8080",
			AllowOrigins: "https://app.snapselect.example.com",
		},
		Auth: AuthConfig{
			JWTSecret:   strings.Repeat("x", 32),
			TokenTTL:    24,
			DefaultPlan: "free",
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: false,
		},
	}
}

func TestValidate_ProductionMetricsRequireTokenWhenEnabled(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Observability.MetricsEnabled = true
	cfg.Observability.MetricsToken = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "METRICS_TOKEN") {
		t.Fatalf("expected METRICS_TOKEN validation error, got: %v", err)
	}
}

func TestValidate_ProductionMetricsEnabledWithTokenPasses(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Observability.MetricsEnabled = true
	cfg.Observability.MetricsToken = "metrics-secret"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to validate, got: %v", err)
	}
}

func TestValidate_ProductionRejectsShortJWTSecret(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Auth.JWTSecret = "short"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET validation error, got: %v", err)
	}
}

func TestValidate_ProductionRejectsWildcardOrigins(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Server.AllowOrigins = "*"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "ALLOW_ORIGINS") {
		t.Fatalf("expected ALLOW_ORIGINS validation error, got: %v", err)
	}
}

func TestValidate_RejectsEmptyBindAddress(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Server.BindAddress = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_BIND_ADDRESS") {
		t.Fatalf("expected SERVER_BIND_ADDRESS validation error, got: %v", err)
	}
}

func TestValidate_RejectsInvalidPort(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Server.Port = "70000"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT validation error, got: %v", err)
	}
}

func TestValidate_RejectsZeroTokenTTL(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Auth.TokenTTL = 0

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "TOKEN_TTL_HOURS") {
		t.Fatalf("expected TOKEN_TTL_HOURS validation error, got: %v", err)
	}
}
