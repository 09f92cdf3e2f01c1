package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Registry.Source != "file" {
		t.Errorf("expected default source file, got %q", cfg.Registry.Source)
	}
	if cfg.Registry.MinConfidence <= 0 {
		t.Error("default min_confidence should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  http_port: 9090
registry:
  persona_path: /data/personas
  min_confidence: 0.3
  load_timeout: 10s
cache:
  backend: redis
  redis_url: redis://localhost:6379/0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}

	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Registry.PersonaPath != "/data/personas" {
		t.Errorf("unexpected persona path: %q", cfg.Registry.PersonaPath)
	}
	if cfg.Registry.MinConfidence != 0.3 {
		t.Errorf("expected min_confidence 0.3, got %v", cfg.Registry.MinConfidence)
	}
	if cfg.Registry.LoadTimeout != 10*time.Second {
		t.Errorf("expected load_timeout 10s, got %v", cfg.Registry.LoadTimeout)
	}
	// Unset sections keep defaults
	if cfg.Bus.URL != "nats://localhost:4222" {
		t.Errorf("expected default bus url, got %q", cfg.Bus.URL)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("ROSTER_TEST_SECRET", "s3cret")
	content := "security:\n  jwt_secret: ${ROSTER_TEST_SECRET}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.Security.JWTSecret != "s3cret" {
		t.Errorf("expected env expansion, got %q", cfg.Security.JWTSecret)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min_confidence too high", func(c *Config) { c.Registry.MinConfidence = 1.5 }},
		{"negative hint bonus", func(c *Config) { c.Registry.HintBonus = -0.1 }},
		{"unknown source", func(c *Config) { c.Registry.Source = "ldap" }},
		{"postgres without dsn", func(c *Config) { c.Registry.Source = "postgres" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
