package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key")
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-3-flash-preview", cfg.AI.Gemini.ChatModel)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.AI.Gemini.ImageModel)
	assert.Equal(t, "model", cfg.Interpreter)
	assert.Equal(t, "gemini", cfg.Renderer)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 200, cfg.Session.MaxSessions)
	assert.Equal(t, "golden hour, late afternoon", cfg.Lighting)
}

func TestFromEnvMissingKeyStillReturnsConfig(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("APP_PORT", "9000")
	cfg, err := FromEnv()
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, "9000", cfg.Port)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key")
	t.Setenv("INTERPRETER", "Keyword")
	t.Setenv("RENDERER", "imagen")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("MAX_SESSIONS", "nope")
	t.Setenv("S3_KEY_PREFIX", "/renders/")
	t.Setenv("S3_FORCE_PATH_STYLE", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "keyword", cfg.Interpreter)
	assert.Equal(t, "imagen", cfg.Renderer)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 200, cfg.Session.MaxSessions)
	assert.Equal(t, "renders", cfg.Media.KeyPrefix)
	assert.True(t, cfg.Media.ForcePathStyle)
}

func TestFromEnvRejectsUnknownStrategies(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key")
	t.Setenv("RENDERER", "dalle")
	_, err := FromEnv()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingAPIKey)
}
