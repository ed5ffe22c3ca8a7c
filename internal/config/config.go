package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/mistward/fmgtrans/internal/batch"
	"github.com/mistward/fmgtrans/internal/fidelity"
	"github.com/mistward/fmgtrans/internal/pipeline"
)

// Config holds all application configuration, populated from environment
// variables with sensible defaults.
//
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required for the openai provider)
// - LLM_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LLM_MODEL: Model name to use (default: gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 2000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.0)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
//
// Translation Configuration:
// - PROVIDER: "openai" or "google" (default: openai)
// - TARGET_LANGUAGE: BCP 47 tag of the target language (default: zh)
// - BACK_LANGUAGE: language back-translations are scored in (default: en)
// - INSTRUCTIONS: free-text instructions appended to the provider prompt
//
// Pipeline Configuration:
// - WORKERS: concurrent batch workers (default: 4)
// - BATCH_MODE: "auto" or "manual" (default: auto)
// - MAX_TOKENS: token budget per batch in auto mode (default: 1000)
// - MANUAL_TOKENS: token budget per batch in manual mode (default: 800)
// - CHARS_PER_TOKEN: token estimate heuristic (default: 4)
// - SKIP_EMPTY: skip empty texts (default: true)
// - SKIP_TRANSLATED: skip texts already in the target language (default: true)
// - BACK_CHECK: enable back-translation fidelity checks (default: false)
// - FIDELITY_THRESHOLD: low-confidence score threshold (default: 0.6)
//
// Storage Configuration:
// - CHUNK_SIZE: entries per chunk at extraction, 0 = single chunk (default: 250)
// - CHUNK_FORMAT: "array" or "table" (default: array)
// - DB_PATH: SQLite database for run history (default: ./fmgtrans.db)
//
// Server Configuration:
// - HTTP_ADDR: status API listen address (default: :8480)
// - WATCH_DIR: directory scanned for extracted corpora (empty = disabled)
// - CRON_EXPR: watch scan schedule (default: @every 5m)
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Storage   StorageConfig   `json:"storage"`
	Server    ServerConfig    `json:"server"`
}

type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

type TranslateConfig struct {
	Provider       string       `json:"provider"`
	TargetLanguage language.Tag `json:"target_language"`
	BackLanguage   language.Tag `json:"back_language"`
	Instructions   string       `json:"instructions"`
}

type PipelineConfig struct {
	Workers           int           `json:"workers"`
	BatchMode         pipeline.Mode `json:"batch_mode"`
	MaxTokens         int           `json:"max_tokens"`
	ManualTokens      int           `json:"manual_tokens"`
	CharsPerToken     int           `json:"chars_per_token"`
	SkipEmpty         bool          `json:"skip_empty"`
	SkipTranslated    bool          `json:"skip_translated"`
	BackCheck         bool          `json:"back_check"`
	FidelityThreshold float64       `json:"fidelity_threshold"`
}

type StorageConfig struct {
	ChunkSize   int    `json:"chunk_size"`
	ChunkFormat string `json:"chunk_format"`
	DBPath      string `json:"db_path"`
}

type ServerConfig struct {
	HTTPAddr string `json:"http_addr"`
	WatchDir string `json:"watch_dir"`
	CronExpr string `json:"cron_expr"`
}

// Option is a function type for configuring Config.
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	target, err := language.Parse(getEnvString("TARGET_LANGUAGE", "zh"))
	if err != nil {
		return nil, fmt.Errorf("invalid TARGET_LANGUAGE: %w", err)
	}
	back, err := language.Parse(getEnvString("BACK_LANGUAGE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACK_LANGUAGE: %w", err)
	}

	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://api.openai.com/v1"),
			Model:       getEnvString("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
		},
		Translate: TranslateConfig{
			Provider:       getEnvString("PROVIDER", ProviderOpenAI),
			TargetLanguage: target,
			BackLanguage:   back,
			Instructions:   getEnvString("INSTRUCTIONS", ""),
		},
		Pipeline: PipelineConfig{
			Workers:           getEnvInt("WORKERS", 4),
			BatchMode:         pipeline.Mode(getEnvString("BATCH_MODE", string(pipeline.ModeAuto))),
			MaxTokens:         getEnvInt("MAX_TOKENS", 1000),
			ManualTokens:      getEnvInt("MANUAL_TOKENS", 800),
			CharsPerToken:     getEnvInt("CHARS_PER_TOKEN", batch.DefaultCharsPerToken),
			SkipEmpty:         getEnvBool("SKIP_EMPTY", true),
			SkipTranslated:    getEnvBool("SKIP_TRANSLATED", true),
			BackCheck:         getEnvBool("BACK_CHECK", false),
			FidelityThreshold: getEnvFloat("FIDELITY_THRESHOLD", fidelity.DefaultThreshold),
		},
		Storage: StorageConfig{
			ChunkSize:   getEnvInt("CHUNK_SIZE", 250),
			ChunkFormat: getEnvString("CHUNK_FORMAT", "array"),
			DBPath:      getEnvString("DB_PATH", "./fmgtrans.db"),
		},
		Server: ServerConfig{
			HTTPAddr: getEnvString("HTTP_ADDR", ":8480"),
			WatchDir: getEnvString("WATCH_DIR", ""),
			CronExpr: getEnvString("CRON_EXPR", "@every 5m"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

func (c *Config) validate() error {
	switch c.Translate.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for the openai provider")
		}
	case ProviderGoogle:
	default:
		return fmt.Errorf("unknown PROVIDER %q", c.Translate.Provider)
	}
	if m := c.Pipeline.BatchMode; m != pipeline.ModeAuto && m != pipeline.ModeManual {
		return fmt.Errorf("BATCH_MODE must be %q or %q", pipeline.ModeAuto, pipeline.ModeManual)
	}
	if t := c.Pipeline.FidelityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("FIDELITY_THRESHOLD must be within [0,1]")
	}
	return nil
}

// PipelineOptions maps the configuration onto session options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Workers:           c.Pipeline.Workers,
		Mode:              c.Pipeline.BatchMode,
		MaxTokens:         c.Pipeline.MaxTokens,
		ManualTokens:      c.Pipeline.ManualTokens,
		CharsPerToken:     c.Pipeline.CharsPerToken,
		TargetLanguage:    c.Translate.TargetLanguage,
		Instructions:      c.Translate.Instructions,
		SkipEmpty:         c.Pipeline.SkipEmpty,
		SkipTranslated:    c.Pipeline.SkipTranslated,
		BackCheck:         c.Pipeline.BackCheck,
		FidelityThreshold: c.Pipeline.FidelityThreshold,
	}
}

// getEnvString gets a string value from environment variables with default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
