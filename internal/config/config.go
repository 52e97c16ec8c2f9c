// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Home Assistant connection modes.
const (
	HAModeWebhook   = "webhook"
	HAModeWebsocket = "websocket"
	HAModeTest      = "test"
)

// Challenge store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// defaultWords is the challenge word vocabulary used when CHALLENGE_WORDS
// is not set. Every entry is normalizer-stable.
var defaultWords = []string{
	"apple", "banana", "dolphin", "elephant", "flower",
	"garden", "island", "jungle", "kitchen", "lemon",
	"mountain", "ocean", "piano", "rainbow", "sunset",
	"thunder", "umbrella", "village", "window", "zebra",
}

// defaultNumbers is the number-word vocabulary. Single-digit words only:
// the normalizer folds isolated digit tokens but not multi-digit numbers.
var defaultNumbers = []string{
	"one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "zero",
}

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	// Challenge engine settings.
	Words       []string
	Numbers     []string
	Expiry      time.Duration
	MaxAttempts int

	// Challenge store backend: "memory" (default) or "sqlite".
	ChallengeBackend string
	DBPath           string

	// Home Assistant integration.
	HAMode      string // "webhook", "websocket", or "test"
	HAURL       string
	HAWebhookID string
	HAToken     string
	SceneID     string

	// DefaultHomeID is used for Alexa users without an explicit mapping.
	// Empty means unmapped users are refused (and tracked).
	DefaultHomeID string

	// Admin surface.
	AdminAPIKey             string
	UnmappedTrackerCapacity int

	SweepInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),

		Words:       getEnvList("CHALLENGE_WORDS", defaultWords),
		Numbers:     getEnvList("CHALLENGE_NUMBERS", defaultNumbers),
		Expiry:      time.Duration(getEnvInt("CHALLENGE_EXPIRY_SECONDS", 60)) * time.Second,
		MaxAttempts: getEnvInt("MAX_ATTEMPTS", 3),

		ChallengeBackend: getEnv("CHALLENGE_BACKEND", BackendMemory),
		DBPath:           getEnv("DB_PATH", "./data/voicegate.db"),

		HAMode:      getEnv("HA_MODE", HAModeWebhook),
		HAURL:       getEnv("HA_URL", "http://homeassistant.local:8123"),
		HAWebhookID: getEnv("HA_WEBHOOK_ID", ""),
		HAToken:     getEnv("HA_TOKEN", ""),
		SceneID:     getEnv("SCENE_ID", "night_scene"),

		DefaultHomeID: getEnv("DEFAULT_HOME_ID", ""),

		AdminAPIKey:             getEnv("ADMIN_API_KEY", ""),
		UnmappedTrackerCapacity: getEnvInt("UNMAPPED_TRACKER_CAPACITY", 100),

		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 30)) * time.Second,
	}

	if getEnvBool("TEST_MODE", false) {
		cfg.HAMode = HAModeTest
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set and within
// their allowed ranges.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if len(c.Words) == 0 {
		return fmt.Errorf("CHALLENGE_WORDS cannot be empty")
	}
	if len(c.Numbers) == 0 {
		return fmt.Errorf("CHALLENGE_NUMBERS cannot be empty")
	}
	if c.Expiry < 10*time.Second {
		return fmt.Errorf("CHALLENGE_EXPIRY_SECONDS must be at least 10")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1")
	}
	switch c.ChallengeBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty with the sqlite backend")
		}
	default:
		return fmt.Errorf("CHALLENGE_BACKEND must be %q or %q", BackendMemory, BackendSQLite)
	}
	switch c.HAMode {
	case HAModeTest:
	case HAModeWebhook:
		if c.HAWebhookID == "" {
			return fmt.Errorf("HA_WEBHOOK_ID cannot be empty in webhook mode")
		}
	case HAModeWebsocket:
		if c.HAToken == "" {
			return fmt.Errorf("HA_TOKEN cannot be empty in websocket mode")
		}
	default:
		return fmt.Errorf("HA_MODE must be %q, %q, or %q", HAModeWebhook, HAModeWebsocket, HAModeTest)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvList reads a comma-separated list, trimming whitespace and dropping
// empty entries.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
