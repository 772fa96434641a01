// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAIAPIVersion string

	ClassifierEnabled bool
	ClassifierTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int64

	SessionIdleTimeout time.Duration
}

// ClassifierActive — LLM-классификатор включён и есть ключ
func (c *Config) ClassifierActive() bool {
	return c.ClassifierEnabled && c.OpenAIKey != ""
}

// Load читает переменные окружения; .env подгружается заранее в main
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnvWithDefault("PORT", "8080"),
		Env:              strings.ToLower(getEnvWithDefault("ENV", "dev")),
		LogLevel:         strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OpenAIAPIVersion: os.Getenv("OPENAI_API_VERSION"),
	}

	var err error
	if cfg.ClassifierEnabled, err = getBoolEnv("CLASSIFIER_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.ClassifierTimeout, err = getDurationEnv("CLASSIFIER_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = getDurationEnv("SESSION_IDLE_TIMEOUT", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt64Env("RATE_LIMIT_BURST", 50); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := oneOf(cfg.Env, "dev", "staging", "production"); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}
	if err := oneOf(cfg.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.OpenAIAPIVersion != "" && cfg.OpenAIBaseURL == "" {
		return fmt.Errorf("OPENAI_API_VERSION requires OPENAI_BASE_URL")
	}
	if cfg.ClassifierTimeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be positive, got: %s", cfg.ClassifierTimeout)
	}
	if cfg.SessionIdleTimeout < time.Minute {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be at least 1m, got: %s", cfg.SessionIdleTimeout)
	}
	if cfg.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got: %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got: %d", cfg.RateLimitBurst)
	}
	return nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", n)
	}
	return nil
}

func oneOf(v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %v, got: %q", allowed, v)
}

func getEnvWithDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getInt64Env(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
