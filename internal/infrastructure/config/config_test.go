package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"SERVER_PORT", "DB_DRIVER", "SEARCH_PROVIDER", "SEARCH_RPS", "OTEL_ENABLED", "OTEL_SERVICE_NAME"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "./catalog.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Search.Provider != "static" || cfg.Search.RequestsPerSecond != 2 || cfg.Search.Timeout != 30*time.Second {
		t.Fatalf("unexpected search defaults: %+v", cfg.Search)
	}
	if !cfg.OTLP.Enabled || cfg.OTLP.ServiceName != "price-watch-api" {
		t.Fatalf("unexpected otlp defaults: %+v", cfg.OTLP)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("SEARCH_PROVIDER", "html")
	t.Setenv("SEARCH_TIMEOUT", "2s")
	t.Setenv("SEARCH_RPS", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Database.Driver != "memory" || cfg.OTLP.Enabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Search.Provider != "html" || cfg.Search.Timeout != 2*time.Second || cfg.Search.RequestsPerSecond != 0.5 {
		t.Fatalf("unexpected search config: %+v", cfg.Search)
	}
}

func TestLoadConfigIgnoresInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OTEL_ENABLED", "maybe")
	t.Setenv("SEARCH_TIMEOUT", "soon")
	t.Setenv("SEARCH_RPS", "-3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.OTLP.Enabled || cfg.Search.Timeout != 30*time.Second || cfg.Search.RequestsPerSecond != 2 {
		t.Fatalf("invalid values should fall back to defaults: %+v", cfg)
	}
}
