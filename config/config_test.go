package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerConfig.Port != 3789 {
		t.Errorf("default port = %d, want 3789", cfg.ServerConfig.Port)
	}
	if cfg.AuthConfig.TokenDuration != 8*time.Hour {
		t.Errorf("default token duration = %v, want 8h", cfg.AuthConfig.TokenDuration)
	}
	if cfg.RateLimitConfig.CheckLimit != 20 || cfg.RateLimitConfig.LoginLimit != 30 || cfg.RateLimitConfig.WindowMins != 15 {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimitConfig)
	}
	if cfg.LicenseConfig.KeyPrefix != "CVITE" || cfg.LicenseConfig.DefaultPlan != "monthly" {
		t.Errorf("unexpected license defaults: %+v", cfg.LicenseConfig)
	}
	if cfg.LicenseConfig.OpTimeout != 5*time.Second {
		t.Errorf("default op timeout = %v, want 5s", cfg.LicenseConfig.OpTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("AUTH_TOKEN_DURATION", "2h")
	t.Setenv("LICENSE_KEY_PREFIX", "acme")
	t.Setenv("LICENSE_OP_TIMEOUT", "750ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerConfig.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.ServerConfig.Port)
	}
	if cfg.AuthConfig.JWTSecret != "from-env" {
		t.Errorf("jwt secret not taken from environment")
	}
	if cfg.AuthConfig.TokenDuration != 2*time.Hour {
		t.Errorf("token duration = %v, want 2h", cfg.AuthConfig.TokenDuration)
	}
	if cfg.LicenseConfig.KeyPrefix != "acme" {
		t.Errorf("key prefix = %q, want acme", cfg.LicenseConfig.KeyPrefix)
	}
	if cfg.LicenseConfig.OpTimeout != 750*time.Millisecond {
		t.Errorf("op timeout = %v, want 750ms", cfg.LicenseConfig.OpTimeout)
	}
}
