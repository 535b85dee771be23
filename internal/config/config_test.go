package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "BASE_URL", "DATABASE_URL", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_TIMEOUT", "CONFIG_ENV_PATH"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.DatabaseURL != "sqlite://propertypost.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if cfg.OpenAITimeout != 60*time.Second {
		t.Errorf("OpenAITimeout = %v", cfg.OpenAITimeout)
	}
	if cfg.CheckoutEnabled() || cfg.WebhookEnabled() {
		t.Error("stripe features should be disabled without keys")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	content := "STRIPE_SECRET_KEY=sk_test_123\nSTRIPE_WEBHOOK_SECRET=whsec_123\nOPENAI_TIMEOUT=90\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("CONFIG_ENV_PATH", path)
	// Registered so t.Setenv restores the variables godotenv sets.
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("OPENAI_TIMEOUT", "")
	os.Unsetenv("STRIPE_SECRET_KEY")
	os.Unsetenv("STRIPE_WEBHOOK_SECRET")
	os.Unsetenv("OPENAI_TIMEOUT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StripeSecretKey != "sk_test_123" {
		t.Errorf("StripeSecretKey = %q", cfg.StripeSecretKey)
	}
	if !cfg.WebhookEnabled() {
		t.Error("expected webhook enabled")
	}
	if cfg.OpenAITimeout != 90*time.Second {
		t.Errorf("OpenAITimeout = %v, want 90s", cfg.OpenAITimeout)
	}
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	t.Setenv("CONFIG_ENV_PATH", filepath.Join(t.TempDir(), "nope.env"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{"", 5 * time.Second},
		{"2m", 2 * time.Minute},
		{"30", 30 * time.Second},
		{"garbage", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.val)
		if got := getDuration("TEST_DURATION", 5*time.Second); got != tt.want {
			t.Errorf("getDuration(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}
