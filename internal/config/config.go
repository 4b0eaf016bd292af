package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the IVR webhook service.
type Config struct {
	BindAddr         string
	Env              string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	CompanyName    string
	CompanyTagline string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	GeminiTimeout time.Duration

	TwilioAuthToken  string
	TwilioWebhookURL string

	HistoryPairs     int
	MaxSilentRetries int
	SessionTTL       time.Duration
	SweepInterval    time.Duration

	GatherSpeechTimeout time.Duration
	GatherTimeout       time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Production reports whether webhook signature verification is enforced.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":3000"),
		Env:              envOrDefault("APP_ENV", "development"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "coverline"),
		CompanyName:      envOrDefault("COMPANY_NAME", "Acme Insurance"),
		CompanyTagline:   envOrDefault("COMPANY_TAGLINE", "where peace of mind is our policy"),
		GeminiAPIKey:     envTrimmed("GEMINI_API_KEY"),
		GeminiBaseURL:    envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		TwilioAuthToken:  envTrimmed("TWILIO_AUTH_TOKEN"),
		TwilioWebhookURL: strings.TrimRight(envTrimmed("TWILIO_WEBHOOK_URL"), "/"),

		ShutdownTimeout:     15 * time.Second,
		GeminiTimeout:       5 * time.Second,
		HistoryPairs:        5,
		MaxSilentRetries:    2,
		SessionTTL:          30 * time.Minute,
		SweepInterval:       15 * time.Minute,
		GatherSpeechTimeout: 4 * time.Second,
		GatherTimeout:       8 * time.Second,
		RateLimitRequests:   100,
		RateLimitWindow:     15 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GeminiTimeout, err = durationFromEnv("GEMINI_TIMEOUT", cfg.GeminiTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("CALL_SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("CALL_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.GatherSpeechTimeout, err = durationFromEnv("GATHER_SPEECH_TIMEOUT", cfg.GatherSpeechTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GatherTimeout, err = durationFromEnv("GATHER_TIMEOUT", cfg.GatherTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitWindow, err = durationFromEnv("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryPairs, err = intFromEnv("CALL_HISTORY_PAIRS", cfg.HistoryPairs)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxSilentRetries, err = intFromEnv("CALL_MAX_SILENT_RETRIES", cfg.MaxSilentRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitRequests, err = intFromEnv("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistoryPairs <= 0 {
		return Config{}, fmt.Errorf("CALL_HISTORY_PAIRS must be positive")
	}
	if cfg.MaxSilentRetries < 1 {
		return Config{}, fmt.Errorf("CALL_MAX_SILENT_RETRIES must be at least 1")
	}
	if cfg.SessionTTL < time.Minute {
		return Config{}, fmt.Errorf("CALL_SESSION_TTL must be at least 1m")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("CALL_SWEEP_INTERVAL must be positive")
	}
	if cfg.GeminiTimeout <= 0 {
		return Config{}, fmt.Errorf("GEMINI_TIMEOUT must be positive")
	}
	if cfg.RateLimitRequests <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if cfg.Production() {
		if cfg.TwilioAuthToken == "" {
			return Config{}, fmt.Errorf("TWILIO_AUTH_TOKEN is required when APP_ENV=production")
		}
		if cfg.TwilioWebhookURL == "" {
			return Config{}, fmt.Errorf("TWILIO_WEBHOOK_URL is required when APP_ENV=production")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
