package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:             "8080",
		Words:            []string{"ocean"},
		Numbers:          []string{"four"},
		Expiry:           60 * time.Second,
		MaxAttempts:      3,
		ChallengeBackend: BackendMemory,
		HAMode:           HAModeTest,
		SweepInterval:    30 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"empty words", func(c *Config) { c.Words = nil }, true},
		{"empty numbers", func(c *Config) { c.Numbers = nil }, true},
		{"expiry below minimum", func(c *Config) { c.Expiry = 9 * time.Second }, true},
		{"expiry at minimum", func(c *Config) { c.Expiry = 10 * time.Second }, false},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"unknown backend", func(c *Config) { c.ChallengeBackend = "redis" }, true},
		{"sqlite needs db path", func(c *Config) {
			c.ChallengeBackend = BackendSQLite
			c.DBPath = ""
		}, true},
		{"sqlite with db path", func(c *Config) {
			c.ChallengeBackend = BackendSQLite
			c.DBPath = "./data/test.db"
		}, false},
		{"webhook needs webhook id", func(c *Config) { c.HAMode = HAModeWebhook }, true},
		{"webhook with webhook id", func(c *Config) {
			c.HAMode = HAModeWebhook
			c.HAWebhookID = "hook-1"
		}, false},
		{"websocket needs token", func(c *Config) { c.HAMode = HAModeWebsocket }, true},
		{"websocket with token", func(c *Config) {
			c.HAMode = HAModeWebsocket
			c.HAToken = "tok"
		}, false},
		{"unknown ha mode", func(c *Config) { c.HAMode = "carrier-pigeon" }, true},
		{"zero sweep interval", func(c *Config) { c.SweepInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	// Webhook mode is the default and requires a webhook ID.
	t.Setenv("HA_WEBHOOK_ID", "hook-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Expiry != 60*time.Second {
		t.Errorf("Expiry = %v, want 60s", cfg.Expiry)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if len(cfg.Words) == 0 || len(cfg.Numbers) == 0 {
		t.Error("default vocabularies should not be empty")
	}
	if cfg.ChallengeBackend != BackendMemory {
		t.Errorf("ChallengeBackend = %q, want memory", cfg.ChallengeBackend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHALLENGE_WORDS", "ocean, mountain ,sunset")
	t.Setenv("CHALLENGE_NUMBERS", "four")
	t.Setenv("CHALLENGE_EXPIRY_SECONDS", "120")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("TEST_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Words) != 3 || cfg.Words[1] != "mountain" {
		t.Errorf("Words = %v, want trimmed 3-element list", cfg.Words)
	}
	if cfg.Expiry != 120*time.Second {
		t.Errorf("Expiry = %v, want 120s", cfg.Expiry)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.HAMode != HAModeTest {
		t.Errorf("HAMode = %q, want test (TEST_MODE set)", cfg.HAMode)
	}
}
