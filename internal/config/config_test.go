package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
payments:
  base_url: "https://payments.example.com"
  api_key: "sk_test_123"
  success_url: "https://app.example.com/bookings/payment-success"
api:
  jwt_secret: "secret"
redis:
  address: "localhost:6379"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}
	if cfg.Payments.BaseURL != "https://payments.example.com" {
		t.Errorf("unexpected payments base_url: %s", cfg.Payments.BaseURL)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default server port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TEST_PAYMENTS_KEY", "sk_from_env")

	yamlContent := `
database:
  path: "test.db"
payments:
  base_url: "https://payments.example.com"
  api_key: "${TEST_PAYMENTS_KEY}"
  success_url: "https://app.example.com/success"
api:
  jwt_secret: "secret"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Payments.APIKey != "sk_from_env" {
		t.Errorf("expected api key from env, got %s", cfg.Payments.APIKey)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Path: "test.db"},
		Payments: PaymentsConfig{BaseURL: "https://p.example.com", SuccessURL: "https://a.example.com/s"},
		API:      APIConfig{JWTSecret: "secret"},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"missing payments base_url", func(c *Config) { c.Payments.BaseURL = "" }, true},
		{"missing success_url", func(c *Config) { c.Payments.SuccessURL = "" }, true},
		{"missing jwt secret", func(c *Config) { c.API.JWTSecret = "" }, true},
		{"telegram enabled without token", func(c *Config) { c.Telegram.Enabled = true }, true},
		{"telegram enabled with token and chat", func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, BotToken: "t", OpsChatID: 1}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Worker.MaxRetries != 5 {
		t.Errorf("expected default max retries 5, got %d", cfg.Worker.MaxRetries)
	}
	if cfg.Worker.SettleDelayMinutes != 60 {
		t.Errorf("expected default settle delay 60m, got %d", cfg.Worker.SettleDelayMinutes)
	}
	if cfg.Redis.CacheTTLSeconds != 30 {
		t.Errorf("expected default cache ttl 30s, got %d", cfg.Redis.CacheTTLSeconds)
	}
	if cfg.API.RateLimit.RPS != 10 {
		t.Errorf("expected default rate limit rps 10, got %f", cfg.API.RateLimit.RPS)
	}
	if cfg.Payments.Currency != "usd" {
		t.Errorf("expected default currency usd, got %s", cfg.Payments.Currency)
	}
}
