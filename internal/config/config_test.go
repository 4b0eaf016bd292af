package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":3000" {
		t.Fatalf("BindAddr = %q, want :3000", cfg.BindAddr)
	}
	if cfg.Production() {
		t.Fatalf("default env should not be production")
	}
	if cfg.HistoryPairs != 5 {
		t.Fatalf("HistoryPairs = %d, want 5", cfg.HistoryPairs)
	}
	if cfg.MaxSilentRetries != 2 {
		t.Fatalf("MaxSilentRetries = %d, want 2", cfg.MaxSilentRetries)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Fatalf("SweepInterval = %v, want 15m", cfg.SweepInterval)
	}
	if cfg.GeminiTimeout != 5*time.Second {
		t.Fatalf("GeminiTimeout = %v, want 5s", cfg.GeminiTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_BIND_ADDR", ":9000")
	t.Setenv("CALL_HISTORY_PAIRS", "3")
	t.Setenv("GEMINI_TIMEOUT", "2s")
	t.Setenv("TWILIO_WEBHOOK_URL", "https://example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9000" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.HistoryPairs != 3 {
		t.Fatalf("HistoryPairs = %d", cfg.HistoryPairs)
	}
	if cfg.GeminiTimeout != 2*time.Second {
		t.Fatalf("GeminiTimeout = %v", cfg.GeminiTimeout)
	}
	if cfg.TwilioWebhookURL != "https://example.com" {
		t.Fatalf("TwilioWebhookURL = %q, want trailing slash trimmed", cfg.TwilioWebhookURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"GEMINI_TIMEOUT":          "soon",
		"CALL_HISTORY_PAIRS":      "zero",
		"CALL_MAX_SILENT_RETRIES": "0",
		"CALL_SESSION_TTL":        "5s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() accepted %s=%q", key, value)
			}
		})
	}
}

func TestProductionRequiresTwilioSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should require Twilio settings in production")
	}

	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_WEBHOOK_URL", "https://example.com")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Production() {
		t.Fatalf("Production() = false, want true")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_ENV",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"COMPANY_NAME",
		"COMPANY_TAGLINE",
		"GEMINI_API_KEY",
		"GEMINI_BASE_URL",
		"GEMINI_MODEL",
		"GEMINI_TIMEOUT",
		"TWILIO_AUTH_TOKEN",
		"TWILIO_WEBHOOK_URL",
		"CALL_HISTORY_PAIRS",
		"CALL_MAX_SILENT_RETRIES",
		"CALL_SESSION_TTL",
		"CALL_SWEEP_INTERVAL",
		"GATHER_SPEECH_TIMEOUT",
		"GATHER_TIMEOUT",
		"RATE_LIMIT_REQUESTS",
		"RATE_LIMIT_WINDOW",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
