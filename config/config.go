package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StrategyTwoStep       = "two_step"
	StrategyFallbackChain = "fallback_chain"
)

type Config struct {
	Env  string
	Port string

	GeminiAPIKey      string
	GeminiBaseURL     string
	ReplicateAPIToken string

	Strategy    string
	BaseModels  []string // provider:model entries for the two-step base image
	Chain       []string // provider:model entries for the fallback chain
	CallTimeout time.Duration
	StyleModel  string

	MaxConcurrent int

	BrokerAddress string

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string

	SentryDSN string

	TelegramBot   bool
	TelegramToken string
}

func Load() (Config, error) {
	cfg := Config{
		Env:               GetEnv("ENV", "local"),
		Port:              GetEnv("PORT", "8083"),
		GeminiAPIKey:      GetEnv("GEMINI_API_KEY", GetEnv("GOOGLE_API_KEY", "")),
		GeminiBaseURL:     GetEnv("GEMINI_BASE_URL", ""),
		ReplicateAPIToken: GetEnv("REPLICATE_API_TOKEN", ""),
		Strategy:          strings.ToLower(GetEnv("TRYON_STRATEGY", StrategyTwoStep)),
		BaseModels:        GetEnvList("TRYON_BASE_MODELS", []string{"gemini:gemini-2.0-flash-exp-image-generation"}),
		Chain:             GetEnvList("TRYON_CHAIN", []string{"gemini:gemini-3-pro-image-preview", "gemini:gemini-2.5-flash-image"}),
		CallTimeout:       GetEnvDuration("TRYON_CALL_TIMEOUT", 90*time.Second),
		StyleModel:        GetEnv("STYLE_MODEL", "gemini-2.0-flash"),
		MaxConcurrent:     GetEnvInt("MAX_CONCURRENT", 4),
		BrokerAddress:     GetEnv("ASYNC_BROKER_ADDRESS", "localhost:6379"),
		R2AccountID:       GetEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     GetEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: GetEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      GetEnv("R2_BUCKET_NAME", ""),
		SentryDSN:         GetEnv("SENTRY_DSN", ""),
		TelegramBot:       GetEnvBool("TELEGRAM_BOT", false),
		TelegramToken:     GetEnv("TG_TOKEN", ""),
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}
	if cfg.Strategy != StrategyTwoStep && cfg.Strategy != StrategyFallbackChain {
		return Config{}, errors.New("TRYON_STRATEGY must be two_step or fallback_chain")
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 90 * time.Second
	}
	return cfg, nil
}

// FaceSwapEnabled is false when no Replicate token is configured.
func (c Config) FaceSwapEnabled() bool {
	return c.ReplicateAPIToken != ""
}

func (c Config) StorageEnabled() bool {
	return c.R2AccountID != "" && c.R2BucketName != ""
}

func GetEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if len(value) == 0 {
		return fallback
	}
	return value
}

func GetEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func GetEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func GetEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
