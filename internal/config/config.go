package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MimeLyc/subtitle-bot/pkg/icron"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// Config holds all application configuration.
// Values come from environment variables with sensible defaults, optionally
// overlaid by a TOML file (see LoadFile).
//
// Environment Variables:
// Telegram:
// - TELEGRAM_BOT_TOKEN: bot token (required for serve)
// - TELEGRAM_POLL_TIMEOUT: long-poll timeout in seconds (default: 60)
//
// LLM Configuration:
// - LLM_API_KEY: API key for the translation provider (required)
// - LLM_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LLM_MODEL: Model name to use (default: gpt-4o)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 3000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
// - LLM_SITE_URL / LLM_APP_NAME: optional attribution headers
//
// Transcription:
// - TRANSCRIBE_API_KEY: defaults to LLM_API_KEY
// - TRANSCRIBE_API_URL: defaults to https://api.openai.com/v1
// - TRANSCRIBE_MODEL: default whisper-1
// - TRANSCRIBE_TIMEOUT: default 10m
//
// Quota:
// - QUOTA_DAILY_LIMIT (5), QUOTA_WINDOW (24h), QUOTA_CHARGE_REJECTED (true)
// - ALLOWED_USERS_FILE (allowed_users.txt)
// - USERS_PRUNE_CRON (@hourly), USERS_RETENTION (72h)
//
// Pipeline:
// - DEFAULT_LANGUAGE (Hebrew), MAX_UPLOAD_BYTES (20 MiB)
// - PIPELINE_WORKERS (2), PIPELINE_WORK_DIR (os temp dir)
// - GLOSSARY_DIR (optional, term_map.<language>.json files)
//
// System:
// - DATA_DIR (/app/data), HTTP_ADDR (:8080)
// - LOG_LEVEL (info), LOG_FORMAT (text), LOG_FILE (optional)
// - CONFIG_FILE (optional TOML overlay, read by the CLI)
type Config struct {
	Telegram   TelegramConfig
	LLM        LLMConfig
	Transcribe TranscribeConfig
	Quota      QuotaConfig
	Pipeline   PipelineConfig
	System     SystemConfig
	HTTP       HTTPConfig
	Log        LogConfig
}

type TelegramConfig struct {
	Token       string
	PollTimeout int // seconds
}

// LLMConfig holds the configuration for the chat-completions client.
// Any OpenAI-compatible provider works.
type LLMConfig struct {
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     int
	SiteURL     string
	AppName     string
}

type TranscribeConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

type QuotaConfig struct {
	DailyLimit       int
	Window           time.Duration
	ChargeRejected   bool
	AllowedUsersFile string
	PruneCron        string
	Retention        time.Duration
}

type PipelineConfig struct {
	DefaultLanguage string
	MaxUploadBytes  int64
	Workers         int
	WorkDir         string
	GlossaryDir     string
}

type SystemConfig struct {
	DataDir string
}

type HTTPConfig struct {
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// LockPath is the single-instance lock file for serve.
func (c *Config) LockPath() string {
	return filepath.Join(c.System.DataDir, "subtitle-bot.lock")
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config from environment variables, then applies opts.
func NewFromEnv(opts ...Option) (*Config, error) {
	llmKey := getEnvString("LLM_API_KEY", "")
	config := &Config{
		Telegram: TelegramConfig{
			Token:       getEnvString("TELEGRAM_BOT_TOKEN", ""),
			PollTimeout: getEnvInt("TELEGRAM_POLL_TIMEOUT", 60),
		},
		LLM: LLMConfig{
			APIKey:      llmKey,
			APIURL:      getEnvString("LLM_API_URL", "https://api.openai.com/v1"),
			Model:       getEnvString("LLM_MODEL", "gpt-4o"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 3000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:     getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Transcribe: TranscribeConfig{
			APIKey:  getEnvString("TRANSCRIBE_API_KEY", llmKey),
			APIURL:  getEnvString("TRANSCRIBE_API_URL", "https://api.openai.com/v1"),
			Model:   getEnvString("TRANSCRIBE_MODEL", "whisper-1"),
			Timeout: getEnvDuration("TRANSCRIBE_TIMEOUT", 10*time.Minute),
		},
		Quota: QuotaConfig{
			DailyLimit:       getEnvInt("QUOTA_DAILY_LIMIT", 5),
			Window:           getEnvDuration("QUOTA_WINDOW", 24*time.Hour),
			ChargeRejected:   getEnvBool("QUOTA_CHARGE_REJECTED", true),
			AllowedUsersFile: getEnvString("ALLOWED_USERS_FILE", "allowed_users.txt"),
			PruneCron:        getEnvString("USERS_PRUNE_CRON", "@hourly"),
			Retention:        getEnvDuration("USERS_RETENTION", 72*time.Hour),
		},
		Pipeline: PipelineConfig{
			DefaultLanguage: getEnvString("DEFAULT_LANGUAGE", "Hebrew"),
			MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
			Workers:         getEnvInt("PIPELINE_WORKERS", 2),
			WorkDir:         getEnvString("PIPELINE_WORK_DIR", ""),
			GlossaryDir:     getEnvString("GLOSSARY_DIR", ""),
		},
		System: SystemConfig{
			DataDir: getEnvString("DATA_DIR", "/app/data"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", ":8080"),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "text"),
			File:   getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: model=%s transcribe=%s limit=%d window=%s workers=%d",
		config.LLM.Model, config.Transcribe.Model, config.Quota.DailyLimit, config.Quota.Window, config.Pipeline.Workers)
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.Transcribe.APIKey == "" {
		return fmt.Errorf("TRANSCRIBE_API_KEY is required")
	}
	if c.Quota.DailyLimit < 1 {
		return fmt.Errorf("QUOTA_DAILY_LIMIT must be at least 1, got %d", c.Quota.DailyLimit)
	}
	if c.Quota.Window <= 0 {
		return fmt.Errorf("QUOTA_WINDOW must be positive, got %s", c.Quota.Window)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if strings.TrimSpace(c.Pipeline.DefaultLanguage) == "" {
		return fmt.Errorf("DEFAULT_LANGUAGE is required")
	}
	if err := icron.Validate(c.Quota.PruneCron); err != nil {
		return fmt.Errorf("USERS_PRUNE_CRON: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
		log.Debug("Loaded environment from %s", path)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Warn("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}
