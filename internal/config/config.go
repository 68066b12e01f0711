package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the triage service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	SessionTimeout  time.Duration
	SessionMaxTurns int
	ContextWindow   int
	JanitorInterval time.Duration

	EmergencyConfidenceThreshold float64
	RetrievalTopK                int
	KnowledgeBasePath            string

	LLMProvider       string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	LLMFallbackModel  string
	LLMTemperature    float64
	LLMMaxTokens      int
	LLMRequestTimeout time.Duration
	LLMMaxRetries     int
	LLMRetryBaseDelay time.Duration
	LLMRetryMaxDelay  time.Duration

	RateLimitPerMinute int
	RateLimitBurst     int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "triago"),
		AllowAnyOrigin:    false,
		ShutdownTimeout:   15 * time.Second,
		SessionTimeout:    time.Hour,
		SessionMaxTurns:   20,
		ContextWindow:     3,
		JanitorInterval:   5 * time.Minute,
		KnowledgeBasePath: stringsTrimSpace("KNOWLEDGE_BASE_PATH"),

		EmergencyConfidenceThreshold: 0.7,
		RetrievalTopK:                5,

		LLMProvider: envOrDefault("LLM_PROVIDER", "mock"),
		LLMAPIKey:   stringsTrimSpace("LLM_API_KEY"),
		LLMBaseURL:  stringsTrimSpace("LLM_BASE_URL"),
		// llama-3.1-8b-instant is the low-latency Groq default; any
		// OpenAI-compatible endpoint works through LLM_BASE_URL.
		LLMModel:          envOrDefault("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMFallbackModel:  stringsTrimSpace("LLM_FALLBACK_MODEL"),
		LLMTemperature:    0.1,
		LLMMaxTokens:      2048,
		LLMRequestTimeout: 30 * time.Second,
		LLMMaxRetries:     3,
		LLMRetryBaseDelay: 500 * time.Millisecond,
		LLMRetryMaxDelay:  8 * time.Second,

		RateLimitPerMinute: 60,
		RateLimitBurst:     10,

		DatabaseURL: stringsTrimSpace("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTimeout, err = durationFromEnv("SESSION_TIMEOUT", cfg.SessionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("SESSION_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMRequestTimeout, err = durationFromEnv("LLM_REQUEST_TIMEOUT", cfg.LLMRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMRetryBaseDelay, err = durationFromEnv("LLM_RETRY_BASE_DELAY", cfg.LLMRetryBaseDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMRetryMaxDelay, err = durationFromEnv("LLM_RETRY_MAX_DELAY", cfg.LLMRetryMaxDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionMaxTurns, err = intFromEnv("SESSION_MAX_TURNS", cfg.SessionMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWindow, err = intFromEnv("CONTEXT_TURN_WINDOW", cfg.ContextWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTopK, err = intFromEnv("RETRIEVAL_TOP_K", cfg.RetrievalTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxRetries, err = intFromEnv("LLM_MAX_RETRIES", cfg.LLMMaxRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitPerMinute, err = intFromEnv("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitBurst, err = intFromEnv("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	if err != nil {
		return Config{}, err
	}
	cfg.EmergencyConfidenceThreshold, err = floatFromEnv("EMERGENCY_CONFIDENCE_THRESHOLD", cfg.EmergencyConfidenceThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTemperature, err = floatFromEnv("LLM_TEMPERATURE", cfg.LLMTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTimeout < time.Minute {
		return Config{}, fmt.Errorf("SESSION_TIMEOUT must be at least 1m")
	}
	if cfg.SessionMaxTurns <= 0 {
		return Config{}, fmt.Errorf("SESSION_MAX_TURNS must be positive")
	}
	if cfg.ContextWindow <= 0 {
		return Config{}, fmt.Errorf("CONTEXT_TURN_WINDOW must be positive")
	}
	if cfg.RetrievalTopK <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	if cfg.EmergencyConfidenceThreshold <= 0 || cfg.EmergencyConfidenceThreshold > 1 {
		return Config{}, fmt.Errorf("EMERGENCY_CONFIDENCE_THRESHOLD must be in (0, 1]")
	}
	if cfg.LLMMaxRetries <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_RETRIES must be positive")
	}
	if cfg.LLMRetryBaseDelay <= 0 || cfg.LLMRetryMaxDelay < cfg.LLMRetryBaseDelay {
		return Config{}, fmt.Errorf("LLM retry delays must be positive with max >= base")
	}
	if cfg.RateLimitPerMinute <= 0 || cfg.RateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("rate limit settings must be positive")
	}
	switch cfg.LLMProvider {
	case "mock", "openai", "groq":
	default:
		return Config{}, fmt.Errorf("LLM_PROVIDER must be one of mock, openai, groq")
	}
	if cfg.LLMProvider != "mock" && cfg.LLMAPIKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY is required for provider %s", cfg.LLMProvider)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
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
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
