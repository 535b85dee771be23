package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration. Missing secrets disable the
// feature that needs them rather than failing startup.
type Config struct {
	Port               string
	BaseURL            string
	LogLevel           string
	LogFormat          string
	DatabaseURL        string
	StripeSecretKey    string
	StripeWebhookKey   string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAITimeout      time.Duration
	RateLimitPerMinute int
}

// Load reads an optional env file and then the process environment.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	port := getEnv("PORT", "8080")
	cfg := Config{
		Port:               port,
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		DatabaseURL:        getEnv("DATABASE_URL", "sqlite://propertypost.db"),
		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookKey:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAITimeout:      getDuration("OPENAI_TIMEOUT", 60*time.Second),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 20),
	}
	return cfg, nil
}

// CheckoutEnabled reports whether Stripe checkout can be offered.
func (c Config) CheckoutEnabled() bool {
	return c.StripeSecretKey != ""
}

// WebhookEnabled reports whether Stripe webhooks can be verified.
func (c Config) WebhookEnabled() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookKey != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

// getDuration accepts Go duration strings ("90s") or plain seconds ("90").
func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// loadEnvFile loads CONFIG_ENV_PATH, or .env in the working directory.
// A missing default file is not an error; a missing explicit one is.
func loadEnvFile() error {
	path, explicit := os.LookupEnv("CONFIG_ENV_PATH")
	if !explicit || path == "" {
		path = ".env"
		explicit = false
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("access env file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("env file %s is a directory", path)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
