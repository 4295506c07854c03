package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileSettings is the optional TOML overlay. Keys left out of the file keep
// their environment or default value.
type FileSettings struct {
	Telegram struct {
		Token       string `toml:"token"`
		PollTimeout int    `toml:"poll_timeout"`
	} `toml:"telegram"`
	LLM struct {
		APIKey      string   `toml:"api_key"`
		APIURL      string   `toml:"api_url"`
		Model       string   `toml:"model"`
		MaxTokens   int      `toml:"max_tokens"`
		Temperature *float64 `toml:"temperature"`
		Timeout     int      `toml:"timeout"`
	} `toml:"llm"`
	Transcribe struct {
		APIKey  string `toml:"api_key"`
		APIURL  string `toml:"api_url"`
		Model   string `toml:"model"`
		Timeout string `toml:"timeout"`
	} `toml:"transcribe"`
	Quota struct {
		DailyLimit       int    `toml:"daily_limit"`
		Window           string `toml:"window"`
		ChargeRejected   *bool  `toml:"charge_rejected"`
		AllowedUsersFile string `toml:"allowed_users_file"`
		PruneCron        string `toml:"prune_cron"`
		Retention        string `toml:"retention"`
	} `toml:"quota"`
	Pipeline struct {
		DefaultLanguage string `toml:"default_language"`
		MaxUploadBytes  int64  `toml:"max_upload_bytes"`
		Workers         int    `toml:"workers"`
		WorkDir         string `toml:"work_dir"`
		GlossaryDir     string `toml:"glossary_dir"`
	} `toml:"pipeline"`
	DataDir  string `toml:"data_dir"`
	HTTPAddr string `toml:"http_addr"`
	Log      struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`
}

// LoadFile decodes a TOML settings file.
func LoadFile(path string) (FileSettings, error) {
	var settings FileSettings
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("open config: %w", err)
	}
	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse config: %w", err)
	}
	if err := settings.validate(); err != nil {
		return settings, fmt.Errorf("parse config: %w", err)
	}
	return settings, nil
}

func (s FileSettings) validate() error {
	for key, value := range map[string]string{
		"transcribe.timeout": s.Transcribe.Timeout,
		"quota.window":       s.Quota.Window,
		"quota.retention":    s.Quota.Retention,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

// WithFileSettings overlays every non-empty file value onto the config.
func WithFileSettings(s FileSettings) Option {
	return func(c *Config) {
		setString(&c.Telegram.Token, s.Telegram.Token)
		setInt(&c.Telegram.PollTimeout, s.Telegram.PollTimeout)

		setString(&c.LLM.APIKey, s.LLM.APIKey)
		setString(&c.LLM.APIURL, s.LLM.APIURL)
		setString(&c.LLM.Model, s.LLM.Model)
		setInt(&c.LLM.MaxTokens, s.LLM.MaxTokens)
		if s.LLM.Temperature != nil {
			c.LLM.Temperature = *s.LLM.Temperature
		}
		setInt(&c.LLM.Timeout, s.LLM.Timeout)

		setString(&c.Transcribe.APIKey, s.Transcribe.APIKey)
		setString(&c.Transcribe.APIURL, s.Transcribe.APIURL)
		setString(&c.Transcribe.Model, s.Transcribe.Model)
		setDuration(&c.Transcribe.Timeout, s.Transcribe.Timeout)

		setInt(&c.Quota.DailyLimit, s.Quota.DailyLimit)
		setDuration(&c.Quota.Window, s.Quota.Window)
		if s.Quota.ChargeRejected != nil {
			c.Quota.ChargeRejected = *s.Quota.ChargeRejected
		}
		setString(&c.Quota.AllowedUsersFile, s.Quota.AllowedUsersFile)
		setString(&c.Quota.PruneCron, s.Quota.PruneCron)
		setDuration(&c.Quota.Retention, s.Quota.Retention)

		setString(&c.Pipeline.DefaultLanguage, s.Pipeline.DefaultLanguage)
		if s.Pipeline.MaxUploadBytes > 0 {
			c.Pipeline.MaxUploadBytes = s.Pipeline.MaxUploadBytes
		}
		setInt(&c.Pipeline.Workers, s.Pipeline.Workers)
		setString(&c.Pipeline.WorkDir, s.Pipeline.WorkDir)
		setString(&c.Pipeline.GlossaryDir, s.Pipeline.GlossaryDir)

		setString(&c.System.DataDir, s.DataDir)
		setString(&c.HTTP.Addr, s.HTTPAddr)
		setString(&c.Log.Level, s.Log.Level)
		setString(&c.Log.Format, s.Log.Format)
		setString(&c.Log.File, s.Log.File)
	}
}

func setString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

// setDuration expects value to be pre-validated by LoadFile.
func setDuration(dst *time.Duration, value string) {
	if value == "" {
		return
	}
	if d, err := time.ParseDuration(value); err == nil {
		*dst = d
	}
}
