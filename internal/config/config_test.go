package config

import (
	"context"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/huddled_test")
	t.Setenv("BASE_URL", "https://huddled.example")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want default :8080", cfg.Addr)
	}
	if cfg.DBDSN != "postgres://localhost/huddled_test" {
		t.Errorf("DBDSN = %q", cfg.DBDSN)
	}
	if cfg.BaseURL != "https://huddled.example" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want two entries", cfg.AllowedOrigins)
	}
}
