package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_RequiresTokenSecret(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when TOKEN_SECRET is not set")
	}
	if !strings.Contains(err.Error(), "TOKEN_SECRET") {
		t.Errorf("error = %v, want mention of TOKEN_SECRET", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DatabasePath != "library.db" {
		t.Errorf("DatabasePath = %q, want library.db", cfg.DatabasePath)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
	if cfg.ModelsDir != "models/production" {
		t.Errorf("ModelsDir = %q, want models/production", cfg.ModelsDir)
	}
	if cfg.PredictTimeout != 5*time.Second {
		t.Errorf("PredictTimeout = %v, want 5s", cfg.PredictTimeout)
	}
	if cfg.RateLimitRequests != 200 || cfg.RateLimitWindow != time.Hour {
		t.Errorf("general rate limit = %d/%v, want 200/1h", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.AuthRateLimitRequests != 5 || cfg.AuthRateLimitWindow != time.Minute {
		t.Errorf("auth rate limit = %d/%v, want 5/1m", cfg.AuthRateLimitRequests, cfg.AuthRateLimitWindow)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.CORSAllowedOrigin != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigin = %q, want http://localhost:3000", cfg.CORSAllowedOrigin)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("DATABASE_PATH", "/data/app.db")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("RATE_LIMIT_REQUESTS", "50")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DatabasePath != "/data/app.db" {
		t.Errorf("DatabasePath = %q, want /data/app.db", cfg.DatabasePath)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
	if cfg.RateLimitRequests != 50 {
		t.Errorf("RateLimitRequests = %d, want 50", cfg.RateLimitRequests)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
}

// 不正な値はデフォルトにフォールバックする
func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("TOKEN_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RateLimitRequests != 200 {
		t.Errorf("RateLimitRequests = %d, want default 200", cfg.RateLimitRequests)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want default 24h", cfg.TokenTTL)
	}
}
