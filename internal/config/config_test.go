package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, overrides map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(t, map[string]any{"JWT_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "ollama", cfg.LLMBackend)
	assert.Equal(t, "sqlite", cfg.TranslationCache)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "https://api.mymemory.translated.net/get", cfg.TranslationAPIURL)
}

func TestFromViperRequiresSecret(t *testing.T) {
	_, err := fromViper(newViper(t, nil))
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestFromViperRejectsUnknownCache(t *testing.T) {
	_, err := fromViper(newViper(t, map[string]any{
		"JWT_SECRET":        "s3cret",
		"TRANSLATION_CACHE": "memcached",
	}))
	assert.Error(t, err)
}

func TestFromViperNormalizesBackend(t *testing.T) {
	cfg, err := fromViper(newViper(t, map[string]any{
		"JWT_SECRET":        "s3cret",
		"LLM_BACKEND":       "Gemini",
		"TRANSLATION_CACHE": "REDIS",
		"JWT_TTL":           "2h",
	}))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLMBackend)
	assert.Equal(t, "redis", cfg.TranslationCache)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
}
