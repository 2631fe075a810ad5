package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("REPLICATE_API_TOKEN", "")
	t.Setenv("TRYON_STRATEGY", "")
	t.Setenv("TRYON_CHAIN", "")
	t.Setenv("TRYON_CALL_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StrategyTwoStep, cfg.Strategy)
	assert.Equal(t, []string{"gemini:gemini-3-pro-image-preview", "gemini:gemini-2.5-flash-image"}, cfg.Chain)
	assert.Equal(t, 90*time.Second, cfg.CallTimeout)
	assert.False(t, cfg.FaceSwapEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("REPLICATE_API_TOKEN", "r8_token")
	t.Setenv("TRYON_STRATEGY", "FALLBACK_CHAIN")
	t.Setenv("TRYON_CHAIN", " gemini:a , replicate:fashn ,")
	t.Setenv("TRYON_CALL_TIMEOUT", "45")
	t.Setenv("MAX_CONCURRENT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.GeminiAPIKey)
	assert.Equal(t, StrategyFallbackChain, cfg.Strategy)
	assert.Equal(t, []string{"gemini:a", "replicate:fashn"}, cfg.Chain)
	assert.Equal(t, 45*time.Second, cfg.CallTimeout)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.True(t, cfg.FaceSwapEnabled())
}

func TestLoadRejectsMissingKeyAndUnknownStrategy(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("TRYON_STRATEGY", "random")
	_, err = Load()
	assert.Error(t, err)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "1m30s")
	assert.Equal(t, 90*time.Second, GetEnvDuration("SOME_TIMEOUT", time.Second))
	t.Setenv("SOME_TIMEOUT", "nope")
	assert.Equal(t, time.Second, GetEnvDuration("SOME_TIMEOUT", time.Second))
}
