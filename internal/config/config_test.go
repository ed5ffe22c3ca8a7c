package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/mistward/fmgtrans/internal/pipeline"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.APIURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 60, cfg.LLM.Timeout)

	assert.Equal(t, ProviderOpenAI, cfg.Translate.Provider)
	assert.Equal(t, language.MustParse("zh"), cfg.Translate.TargetLanguage)
	assert.Equal(t, language.MustParse("en"), cfg.Translate.BackLanguage)

	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, pipeline.ModeAuto, cfg.Pipeline.BatchMode)
	assert.Equal(t, 1000, cfg.Pipeline.MaxTokens)
	assert.True(t, cfg.Pipeline.SkipEmpty)
	assert.True(t, cfg.Pipeline.SkipTranslated)
	assert.False(t, cfg.Pipeline.BackCheck)
	assert.Equal(t, 0.6, cfg.Pipeline.FidelityThreshold)

	assert.Equal(t, 250, cfg.Storage.ChunkSize)
	assert.Equal(t, "array", cfg.Storage.ChunkFormat)
	assert.Equal(t, ":8480", cfg.Server.HTTPAddr)
	assert.Equal(t, "@every 5m", cfg.Server.CronExpr)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("PROVIDER", "google")
	t.Setenv("TARGET_LANGUAGE", "ja")
	t.Setenv("WORKERS", "8")
	t.Setenv("BATCH_MODE", "manual")
	t.Setenv("MANUAL_TOKENS", "300")
	t.Setenv("SKIP_EMPTY", "false")
	t.Setenv("BACK_CHECK", "1")
	t.Setenv("FIDELITY_THRESHOLD", "0.75")
	t.Setenv("CHUNK_SIZE", "100")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogle, cfg.Translate.Provider)
	assert.Equal(t, language.MustParse("ja"), cfg.Translate.TargetLanguage)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, pipeline.ModeManual, cfg.Pipeline.BatchMode)
	assert.Equal(t, 300, cfg.Pipeline.ManualTokens)
	assert.False(t, cfg.Pipeline.SkipEmpty)
	assert.True(t, cfg.Pipeline.BackCheck)
	assert.Equal(t, 0.75, cfg.Pipeline.FidelityThreshold)
	assert.Equal(t, 100, cfg.Storage.ChunkSize)
}

func TestNewFromEnv_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}

func TestNewFromEnv_GoogleNeedsNoKey(t *testing.T) {
	t.Setenv("PROVIDER", "google")
	t.Setenv("LLM_API_KEY", "")

	_, err := NewFromEnv()
	assert.NoError(t, err)
}

func TestNewFromEnv_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("PROVIDER", "deepl")
	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_RejectsBadLanguage(t *testing.T) {
	t.Setenv("PROVIDER", "google")
	t.Setenv("TARGET_LANGUAGE", "not-a-tag-at-all!")
	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_RejectsBadBatchMode(t *testing.T) {
	t.Setenv("PROVIDER", "google")
	t.Setenv("BATCH_MODE", "turbo")
	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("PROVIDER", "google")
	t.Setenv("FIDELITY_THRESHOLD", "1.5")
	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_Options(t *testing.T) {
	t.Setenv("PROVIDER", "google")

	cfg, err := NewFromEnv(func(c *Config) { c.Pipeline.Workers = 2 })
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
}

func TestPipelineOptions_Mapping(t *testing.T) {
	t.Setenv("PROVIDER", "google")
	t.Setenv("WORKERS", "3")
	t.Setenv("INSTRUCTIONS", "keep <br> markup")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	opts := cfg.PipelineOptions()
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, pipeline.ModeAuto, opts.Mode)
	assert.Equal(t, cfg.Translate.TargetLanguage, opts.TargetLanguage)
	assert.Equal(t, "keep <br> markup", opts.Instructions)
	assert.True(t, opts.SkipEmpty)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_INT", "42")
	t.Setenv("X_BAD_INT", "nope")
	t.Setenv("X_FLOAT", "0.25")
	t.Setenv("X_BOOL_ON", "yes")
	t.Setenv("X_BOOL_OFF", "off")
	t.Setenv("X_BOOL_BAD", "maybe")

	assert.Equal(t, "value", getEnvString("X_STR", "d"))
	assert.Equal(t, "d", getEnvString("X_UNSET", "d"))
	assert.Equal(t, 42, getEnvInt("X_INT", 1))
	assert.Equal(t, 1, getEnvInt("X_BAD_INT", 1))
	assert.Equal(t, 0.25, getEnvFloat("X_FLOAT", 1.0))
	assert.True(t, getEnvBool("X_BOOL_ON", false))
	assert.False(t, getEnvBool("X_BOOL_OFF", true))
	assert.True(t, getEnvBool("X_BOOL_BAD", true))
}
