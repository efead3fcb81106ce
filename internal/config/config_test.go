package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SELF_URL", "SELF_TOKEN", "SERVICE_URL", "SERVICE_TOKEN",
		"SERVICE_UNIX_SOCK", "REDIS_URL", "HOST", "PORT", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 8000 {
		t.Errorf("defaults = %s:%d, want 0.0.0.0:8000", cfg.Host, cfg.Port)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("redis url = %q", cfg.RedisURL)
	}
}

func TestLoadFileWithComments(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		// the designer service
		service_url: "https://designer.example.org",
		service_token: "svc",
		self_url: "https://hub.example.org",
		self_token: "hub",
		port: 9000,
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServiceURL != "https://designer.example.org" || cfg.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_URL", "https://env.example.org")
	t.Setenv("PORT", "7777")
	t.Setenv("DEBUG", "true")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{service_url: "https://file.example.org", port: 9000}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServiceURL != "https://env.example.org" {
		t.Errorf("service url = %q, env should win", cfg.ServiceURL)
	}
	if cfg.Port != 7777 {
		t.Errorf("port = %d, want 7777", cfg.Port)
	}
	if !cfg.Debug {
		t.Error("debug flag not picked up from env")
	}
}

func TestValidateReportsFirstMissing(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() on empty config returned nil")
	}

	cfg.SelfURL = "https://hub.example.org"
	cfg.SelfToken = "hub"
	cfg.ServiceURL = "https://designer.example.org"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() without service token returned nil")
	}

	cfg.ServiceToken = "svc"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestWebhookSecret(t *testing.T) {
	clearEnv(t)

	first := GenerateWebhookSecret()
	second := GenerateWebhookSecret()
	if len(first) != 64 {
		t.Errorf("secret length = %d, want 64 hex characters", len(first))
	}
	if first == second {
		t.Error("two generated secrets are identical")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.WebhookSecret) != 64 {
		t.Errorf("loaded config secret length = %d, want 64", len(cfg.WebhookSecret))
	}
}
