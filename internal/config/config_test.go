package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.NominatimURL == "" || cfg.OSRMURL == "" {
		t.Fatalf("expected default provider urls")
	}
	if cfg.ProviderUserAgent == "" {
		t.Fatalf("expected default user agent")
	}
	if cfg.LocationTTL != 30*time.Minute {
		t.Fatalf("expected 30m location ttl, got %v", cfg.LocationTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OSRM_URL", "http://osrm:5000")
	t.Setenv("PROVIDER_TIMEOUT", "3s")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.OSRMURL != "http://osrm:5000" {
		t.Fatalf("expected override osrm url")
	}
	if cfg.ProviderTimeout != 3*time.Second {
		t.Fatalf("expected override timeout, got %v", cfg.ProviderTimeout)
	}
}
